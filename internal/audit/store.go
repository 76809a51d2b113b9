package audit

import (
	"context"
	"sync"
)

// DefaultListLimit caps List when no limit is given
const DefaultListLimit = 50

// Filter narrows List results
type Filter struct {
	PatientID string
	Limit     int
}

func (f Filter) limit() int {
	if f.Limit <= 0 || f.Limit > 500 {
		return DefaultListLimit
	}
	return f.Limit
}

// Store persists audit entries
type Store interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter) ([]Entry, error)
}

// MemoryStore keeps entries in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append stores a copy of e
func (s *MemoryStore) Append(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *e)
	return nil
}

// List returns matching entries, newest first
func (s *MemoryStore) List(_ context.Context, f Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0)
	for i := len(s.entries) - 1; i >= 0 && len(out) < f.limit(); i-- {
		e := s.entries[i]
		if f.PatientID != "" && e.PatientID != f.PatientID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
