// Package session implements C8, the session store (spec.md §4.8):
// mapping a client-supplied session id to a pinned model so a multi-turn
// conversation doesn't get reclassified to a different model mid-stream,
// with a periodic sweep evicting stale entries. Grounded on
// internal/respcache's TTL-map shape, simplified to a plain map since
// sessions need no LRU ordering.
package session

import (
	"sync"
	"time"
)

type entry struct {
	modelID    string
	lastSeenAt time.Time
}

// Store maps session id -> pinned model id.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]entry
	now      func() time.Time
	stopCh   chan struct{}
}

// New builds a Store whose entries expire after ttl of inactivity.
func New(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		sessions: make(map[string]entry),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Pin records modelID as sessionID's pinned model, refreshing its TTL.
func (s *Store) Pin(sessionID, modelID string) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = entry{modelID: modelID, lastSeenAt: s.now()}
}

// Get returns sessionID's pinned model, if any and not stale.
func (s *Store) Get(sessionID string) (string, bool) {
	if sessionID == "" {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return "", false
	}
	if s.now().Sub(e.lastSeenAt) > s.ttl {
		delete(s.sessions, sessionID)
		return "", false
	}
	return e.modelID, true
}

// sweep removes every entry stale by more than ttl. Called periodically
// by RunSweeper rather than on every Get, so a burst of expired sessions
// doesn't all pay the cleanup cost on the same request.
func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, e := range s.sessions {
		if now.Sub(e.lastSeenAt) > s.ttl {
			delete(s.sessions, id)
		}
	}
}

// RunSweeper blocks, sweeping every interval until Stop is called. Meant
// to run in its own goroutine for the process lifetime.
func (s *Store) RunSweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// Stop terminates a running RunSweeper.
func (s *Store) Stop() {
	close(s.stopCh)
}

// Size returns the current number of tracked sessions (for /stats).
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
