// Package cache stores serialized parse results so unchanged sources are
// not re-parsed on every conversion.
//
// Values are opaque byte blobs - in practice the JSON envelope produced
// by graphio - keyed by a content hash of the source plus the parser
// options that shaped the result. Three backends are provided:
//   - FileCache: directory-based, for CLI usage
//   - RedisCache: shared cache for server deployments
//   - NullCache: disabled caching
//
// Schema-version safety comes from the values themselves: cached blobs
// are re-read through graphio, whose version gate migrates or rejects
// stale documents, so the cache never needs flushing across upgrades.
package cache

import (
	"context"
	"time"
)

// Cache is the interface all caching backends implement.
type Cache interface {
	// Get retrieves the value for key. The second return reports whether
	// the key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes the value for key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
