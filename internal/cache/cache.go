// Package cache keeps recently fetched financial rows in memory so
// repeated builder actions for the same company do not hit the CIQ API
// again. Fundamentals change at most once per reporting period, so the
// default TTL is generous.
package cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/decksmithhq/decksmith/internal/ciq"
)

// DefaultTTL is how long fetched fundamentals stay fresh.
const DefaultTTL = 7 * 24 * time.Hour

// entry wraps cached rows with expiry and insertion order tracking.
type entry struct {
	rows      []ciq.Row
	expiry    time.Time
	insertIdx int64
}

// RowCache caches CIQ fetch results. Keys are "ticker:years:mnemonics".
// Thread-safe with sync.RWMutex.
type RowCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
}

// New creates a RowCache with the given TTL and max entry count.
func New(ttl time.Duration, maxEntries int) *RowCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RowCache{
		items:      make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// MakeKey builds a cache key from a ticker, year span and mnemonic set.
// Mnemonic order does not affect the key.
func MakeKey(ticker string, years int, mnemonics []string) string {
	sorted := make([]string, len(mnemonics))
	copy(sorted, mnemonics)
	sort.Strings(sorted)
	return fmt.Sprintf("%s:%d:%s", strings.ToUpper(ticker), years, strings.Join(sorted, ","))
}

// Get returns cached rows if found and not expired.
func (c *RowCache) Get(key string) ([]ciq.Row, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(e.expiry) {
		// Expired: remove lazily
		c.mu.Lock()
		if e2, ok2 := c.items[key]; ok2 && time.Now().After(e2.expiry) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.rows, true
}

// Set stores rows in the cache. Evicts the oldest entry if at capacity.
func (c *RowCache) Set(key string, rows []ciq.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{
		rows:      rows,
		expiry:    time.Now().Add(c.ttl),
		insertIdx: c.nextIdx,
	}
	c.nextIdx++

	// If key already exists, update in place (no capacity change)
	if _, exists := c.items[key]; exists {
		c.items[key] = e
		return
	}

	// Evict oldest if at capacity
	if len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	c.items[key] = e
}

// InvalidateTicker removes all entries for the given ticker.
func (c *RowCache) InvalidateTicker(ticker string) {
	prefix := strings.ToUpper(ticker) + ":"

	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

// Len returns the number of live entries, expired ones included until
// their lazy removal.
func (c *RowCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (c *RowCache) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
