package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"roomStylerAi/internal/logger"
)

// Store is a thread-safe in-memory registry of live sessions.
// Idle sessions expire after ttl; when full, the least recently used one is evicted.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	deps     Dependencies
	ttl      time.Duration
	max      int
	now      func() time.Time
}

type entry struct {
	ctrl     *Controller
	lastSeen time.Time
}

// StoreOptions bound the store size and session lifetime.
type StoreOptions struct {
	TTL         time.Duration
	MaxSessions int
}

// NewStore constructs an empty store whose controllers share deps.
func NewStore(deps Dependencies, opts StoreOptions) *Store {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 500
	}
	return &Store{
		sessions: make(map[string]*entry),
		deps:     deps,
		ttl:      opts.TTL,
		max:      opts.MaxSessions,
		now:      time.Now,
	}
}

// Create starts a new session in the UPLOAD step.
func (s *Store) Create() *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.max {
		s.evictOldestLocked()
	}
	ctrl := NewController(uuid.NewString(), s.deps)
	s.sessions[ctrl.ID()] = &entry{ctrl: ctrl, lastSeen: s.now()}
	return ctrl
}

// Get returns the session and marks it as recently used.
func (s *Store) Get(id string) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := s.now()
	if now.Sub(e.lastSeen) > s.ttl {
		delete(s.sessions, id)
		e.ctrl.Close()
		return nil, ErrNotFound
	}
	e.lastSeen = now
	return e.ctrl, nil
}

// Delete removes a session and releases its chat.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	e.ctrl.Close()
	return nil
}

// Len reports the number of sessions held, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops every session idle for longer than the ttl and returns how many went.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.sessions, id)
			e.ctrl.Close()
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logger.InfoWithFields("expired sessions removed", logger.Fields{"count": n})
			}
		}
	}
}

func (s *Store) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range s.sessions {
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID = id
			oldest = e.lastSeen
		}
	}
	if oldestID == "" {
		return
	}
	s.sessions[oldestID].ctrl.Close()
	delete(s.sessions, oldestID)
	logger.InfoWithFields("session evicted", logger.Fields{"session_id": oldestID})
}
