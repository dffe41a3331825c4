package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/decksmithhq/decksmith/internal/deck"
)

func TestStoreGetOrCreate(t *testing.T) {
	s := NewStore(time.Minute, 100)
	id := NewID()

	d := s.GetOrCreate(id)
	if d == nil {
		t.Fatal("expected a deck")
	}
	d.Add(deck.Slide{Title: "one", Kind: deck.KindText, Body: "x"})

	again := s.GetOrCreate(id)
	if again != d {
		t.Error("same session should return the same deck")
	}
	if again.Len() != 1 {
		t.Errorf("deck lost state: %d slides", again.Len())
	}
}

func TestStoreGetUnknown(t *testing.T) {
	s := NewStore(time.Minute, 100)

	if _, ok := s.Get("unknown"); ok {
		t.Error("expected miss for unknown session")
	}
	if _, ok := s.Get(""); ok {
		t.Error("expected miss for empty session ID")
	}
}

func TestStoreSessionsAreIsolated(t *testing.T) {
	s := NewStore(time.Minute, 100)

	d1 := s.GetOrCreate("session-a")
	d2 := s.GetOrCreate("session-b")
	if d1 == d2 {
		t.Fatal("different sessions must not share a deck")
	}

	d1.Add(deck.Slide{Title: "only in a", Kind: deck.KindText, Body: "x"})
	if d2.Len() != 0 {
		t.Error("slide leaked across sessions")
	}
}

func TestStoreExpiry(t *testing.T) {
	s := NewStore(30*time.Millisecond, 100)
	id := NewID()

	d := s.GetOrCreate(id)
	d.Add(deck.Slide{Title: "one", Kind: deck.KindText, Body: "x"})

	time.Sleep(40 * time.Millisecond)

	if _, ok := s.Get(id); ok {
		t.Error("expected session to expire")
	}
	fresh := s.GetOrCreate(id)
	if fresh.Len() != 0 {
		t.Error("expired session should restart with an empty deck")
	}
}

func TestStoreSlidingExpiry(t *testing.T) {
	s := NewStore(50*time.Millisecond, 100)
	id := NewID()
	s.GetOrCreate(id)

	// Keep touching the session past the original TTL.
	for i := 0; i < 4; i++ {
		time.Sleep(20 * time.Millisecond)
		if _, ok := s.Get(id); !ok {
			t.Fatalf("session expired despite activity (iteration %d)", i)
		}
	}
}

func TestStoreDelete(t *testing.T) {
	s := NewStore(time.Minute, 100)
	id := NewID()
	s.GetOrCreate(id)

	s.Delete(id)

	if _, ok := s.Get(id); ok {
		t.Error("expected miss after delete")
	}
}

func TestStoreCapacityEviction(t *testing.T) {
	s := NewStore(time.Minute, 3)

	s.GetOrCreate("s1")
	s.GetOrCreate("s2")
	s.GetOrCreate("s3")
	s.GetOrCreate("s4")

	if s.Len() > 3 {
		t.Errorf("store exceeded capacity: %d", s.Len())
	}
	if _, ok := s.Get("s1"); ok {
		t.Error("expected oldest session to be evicted")
	}
	if _, ok := s.Get("s4"); !ok {
		t.Error("expected newest session to survive")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore(time.Minute, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("session-%d", n%10)
			d := s.GetOrCreate(id)
			d.Add(deck.Slide{Title: "t", Kind: deck.KindText, Body: "x"})
			s.Get(id)
		}(i)
	}
	wg.Wait()

	if s.Len() != 10 {
		t.Errorf("expected 10 sessions, got %d", s.Len())
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if seen[id] {
			t.Fatal("duplicate session ID")
		}
		seen[id] = true
	}
}
