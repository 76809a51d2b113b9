// Package cache provides the tiered TTL cache shared across checks.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a byte-oriented key/value backend with per-entry expiry
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore keeps entries in process memory. Expired entries are evicted
// lazily on read; there is no background sweep and no capacity bound.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates a store that reads time from now
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     now,
	}
}

// Get returns the value if present and unexpired, evicting stale entries
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value until now+ttl, overwriting any existing entry
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
}

// Delete removes key
func (s *MemoryStore) Delete(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Clear removes every entry
func (s *MemoryStore) Clear(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
}

// Len returns the number of stored entries, including expired ones not yet evicted
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
