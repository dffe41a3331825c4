// Package session keeps one in-progress deck per browser session.
// State lives in memory only; restarting the server starts everyone
// with an empty deck again.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/decksmithhq/decksmith/internal/deck"
)

// CookieName is the browser cookie that carries the session ID.
const CookieName = "decksmith_session"

// entry pairs a deck with its expiry and insertion order.
type entry struct {
	deck      *deck.Deck
	expires   time.Time
	insertIdx int64
}

// Store maps session IDs to decks. Expiry is sliding: any access
// extends the session. Thread-safe with sync.RWMutex.
type Store struct {
	mu         sync.RWMutex
	items      map[string]*entry
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
}

// NewStore creates a session store with the given TTL and capacity.
func NewStore(ttl time.Duration, maxEntries int) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &Store{
		items:      make(map[string]*entry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// NewID mints a fresh session identifier.
func NewID() string {
	return uuid.New().String()
}

// Get returns the deck for a session if it exists and has not expired.
// A hit extends the session's expiry.
func (s *Store) Get(id string) (*deck.Deck, bool) {
	if id == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[id]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(s.items, id)
		return nil, false
	}
	e.expires = time.Now().Add(s.ttl)
	return e.deck, true
}

// GetOrCreate returns the deck for a session, creating an empty one
// when the ID is unknown or expired.
func (s *Store) GetOrCreate(id string) *deck.Deck {
	if d, ok := s.Get(id); ok {
		return d
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check: another request may have created it between locks.
	if e, ok := s.items[id]; ok && time.Now().Before(e.expires) {
		e.expires = time.Now().Add(s.ttl)
		return e.deck
	}

	if len(s.items) >= s.maxEntries {
		s.evictOldest()
	}

	d := deck.New()
	s.items[id] = &entry{
		deck:      d,
		expires:   time.Now().Add(s.ttl),
		insertIdx: s.nextIdx,
	}
	s.nextIdx++
	return d
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// Len returns the number of sessions, expired ones included until
// their lazy removal.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// evictOldest removes the session with the lowest insertIdx. Must be
// called with mu held.
func (s *Store) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range s.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(s.items, oldestKey)
	}
}
