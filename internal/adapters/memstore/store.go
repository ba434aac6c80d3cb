// Package memstore provides an in-memory BehaviorStore. It backs the
// session-scoped variant: state lives exactly as long as the process.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/ewilliams-labs/nextsong/internal/core/domain"
	"github.com/ewilliams-labs/nextsong/internal/core/ports"
)

type sessionState struct {
	record    domain.BehaviorRecord
	hasRecord bool
	shownAt   time.Time
	touchedAt time.Time
}

// Store is a mutex-guarded map of session state. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
	now      func() time.Time
}

// compile-time interface assertion
var _ ports.BehaviorStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*sessionState),
		now:      time.Now,
	}
}

func (s *Store) Load(ctx context.Context, sessionID string) (domain.BehaviorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok || !st.hasRecord {
		return domain.BehaviorRecord{}, domain.ErrNotFound
	}
	return st.record.Clone(), nil
}

func (s *Store) Save(ctx context.Context, sessionID string, rec domain.BehaviorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.touch(sessionID)
	st.record = rec.Clone()
	st.hasRecord = true
	return nil
}

func (s *Store) LastShown(ctx context.Context, sessionID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok || st.shownAt.IsZero() {
		return time.Time{}, domain.ErrNotFound
	}
	return st.shownAt, nil
}

func (s *Store) MarkShown(ctx context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.touch(sessionID)
	st.shownAt = at
	return nil
}

func (s *Store) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, st := range s.sessions {
		if st.touchedAt.Before(cutoff) {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged, nil
}

// touch returns the session state, creating it if needed, and bumps its
// last-touched time. Caller must hold the mutex.
func (s *Store) touch(sessionID string) *sessionState {
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &sessionState{}
		s.sessions[sessionID] = st
	}
	st.touchedAt = s.now()
	return st
}
