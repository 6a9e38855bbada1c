package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is a process-local Store backed by a map. It is the default
// backend and the one tests use.
type MemoryStore struct {
	mu   sync.Mutex
	vals map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vals: make(map[string][]byte)}
}

// Get retrieves the bytes stored under key, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.vals[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Set stores data under key.
func (s *MemoryStore) Set(ctx context.Context, key string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	s.vals[key] = cp
	s.mu.Unlock()
	return nil
}

// Delete removes key, reporting whether it existed.
func (s *MemoryStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.vals[key]
	delete(s.vals, key)
	return ok, nil
}

// Incr atomically adds delta to the integer under key. A missing key
// counts as 0; a non-integer value is an error.
func (s *MemoryStore) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	if data, ok := s.vals[key]; ok {
		if err := json.Unmarshal(data, &n); err != nil {
			return 0, fmt.Errorf("key %q holds a non-integer value", key)
		}
	}
	n += delta
	data, _ := json.Marshal(n)
	s.vals[key] = data
	return n, nil
}

// Close discards all entries.
func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	s.vals = make(map[string][]byte)
	s.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
