// Package kv provides the kv/* operation kinds: a key-value store binding
// with pluggable backends.
//
// Handlers speak cty values; backends speak bytes. Values cross the
// boundary as ctyjson envelopes (value plus its type), so a value written
// by one process round-trips faithfully when read by another.
//
// Kinds and child shapes:
//
//	kv/get  [key]          stored value, or null if absent
//	kv/set  [key, value]   stores value, returns it
//	kv/del  [key]          deletes key, returns true if it existed
//	kv/incr [key, delta?]  atomically adds delta (default 1) to a numeric
//	                       key, treating absent as 0; returns the new value
//
// Backends: in-memory (default, test-friendly), Redis via go-redis, and
// MongoDB via the official driver.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by backends when a key doesn't exist. Handlers
// translate it to a null value at the kv/get boundary.
var ErrNotFound = errors.New("key not found")

// Store is the backend contract for the kv/* handlers. Implementations
// must be safe for concurrent use; Incr must be atomic per key.
type Store interface {
	// Get retrieves the bytes stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores data under key, overwriting any previous value.
	Set(ctx context.Context, key string, data []byte) error

	// Delete removes key. The bool reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Incr atomically adds delta to the integer stored under key, treating
	// a missing key as 0, and returns the new value.
	Incr(ctx context.Context, key string, delta int64) (int64, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
