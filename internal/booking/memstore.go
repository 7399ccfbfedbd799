package booking

import (
	"context"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is suitable for single-desk demo use and testing.
type MemStore struct {
	mu    sync.RWMutex
	appts []Appointment
	byID  map[string]int
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		byID: make(map[string]int),
	}
}

// Append implements [Store.Append].
func (s *MemStore) Append(ctx context.Context, appt Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byID == nil {
		s.byID = make(map[string]int)
	}
	if _, exists := s.byID[appt.ID]; exists {
		return ErrDuplicateID
	}

	s.byID[appt.ID] = len(s.appts)
	s.appts = append(s.appts, appt)
	return nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return Appointment{}, ErrNotFound
	}
	return s.appts[i], nil
}

// List implements [Store.List]. Appointments are returned in append order.
func (s *MemStore) List(ctx context.Context) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Appointment, len(s.appts))
	copy(out, s.appts)
	return out, nil
}

// Search implements [Store.Search].
func (s *MemStore) Search(ctx context.Context, term string) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Appointment, 0, len(s.appts))
	for _, a := range s.appts {
		if a.matchesTerm(term) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Ping implements [Store.Ping]. A MemStore is always reachable.
func (s *MemStore) Ping(ctx context.Context) error { return nil }

// Close implements [Store.Close]. A MemStore holds no external resources.
func (s *MemStore) Close() error { return nil }
