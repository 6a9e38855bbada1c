// Package cache provides a byte-oriented cache interface with file-based,
// in-memory, and no-op backends. The web plugin uses it for HTTP response
// caching; the CLI uses the file backend so repeated evaluations of
// fetch-heavy graphs stay cheap.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound is returned by backends that distinguish "missing" from
// other failures. [Cache.Get] reports misses through its bool result;
// this sentinel exists for backends layered over stores with their own
// not-found errors.
var ErrNotFound = errors.New("not found")

// Cache stores opaque byte values under string keys with per-entry TTLs.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves the value stored under key. The second result reports
	// whether a live (non-expired) entry was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes the entry under key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}

// Key builds a collision-resistant cache key from a namespace and the raw
// key material: "<namespace>:<sha256 hex>". Hashing keeps keys filesystem-
// and protocol-safe regardless of what the material contains (URLs,
// whitespace, separators).
func Key(namespace, material string) string {
	sum := sha256.Sum256([]byte(material))
	return namespace + ":" + hex.EncodeToString(sum[:])
}
