package fold

import (
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Stash is a small named-value store shared by all handlers of one root
// fold call, including handlers running in subfolds it launches. It is the
// home of fold-scoped handler state — mutable cells, counters — which must
// survive loop-iteration subfolds but never leak across independent folds.
//
// Stash is safe for concurrent use.
type Stash struct {
	mu   sync.Mutex
	vals map[string]cty.Value
}

// NewStash returns an empty stash.
func NewStash() *Stash {
	return &Stash{vals: make(map[string]cty.Value)}
}

// Get returns the value stored under name and whether it exists.
func (s *Stash) Get(name string) (cty.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vals[name]
	return v, ok
}

// Set stores a value under name, replacing any previous value.
func (s *Stash) Set(name string, v cty.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[name] = v
}

// Update applies fn to the value stored under name (or to cty.NilVal and
// false if absent) and stores the result, all under one lock. Use it for
// read-modify-write operations like incrementing a counter; concurrent
// updates to the same name serialize rather than losing writes.
func (s *Stash) Update(name string, fn func(v cty.Value, ok bool) (cty.Value, error)) (cty.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vals[name]
	next, err := fn(v, ok)
	if err != nil {
		return cty.NilVal, err
	}
	s.vals[name] = next
	return next, nil
}

// Len returns the number of stored names.
func (s *Stash) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.vals)
}
