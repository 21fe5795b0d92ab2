// Package provider defines the storage capability contract consumed by nscache.
//
// A Provider is a plain byte store with optional per-entry TTL. The narrow
// optional interfaces (Flusher, StatsReporter, MultiGetter, MultiSetter) are
// probed by the cache with type assertions; implement only what the backend
// supports natively.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the bytes previously passed to Set for the same key.
//
// Important: keys beginning with a decimal digit and keys beginning with
// "NamespaceCacheKey[" are owned by nscache. External code sharing the backend
// MUST NOT write values under them.
package provider

import (
	"context"
	"time"
)

// Provider is the minimal byte store every backend supplies.
// Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Has reports whether a live entry exists for key.
	Has(ctx context.Context, key string) (bool, error)

	// Set stores value under key. ttl <= 0 means no expiry.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Removing a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// Flusher drops every entry of the backend, regardless of namespace.
type Flusher interface {
	FlushAll(ctx context.Context) error
}

// StatsReporter exposes backend statistics.
type StatsReporter interface {
	Stats(ctx context.Context) (*Stats, error)
}

// MultiGetter fetches many keys in one call. Only found keys are present
// in the returned map.
type MultiGetter interface {
	GetMulti(ctx context.Context, keys []string) (map[string][]byte, error)
}

// MultiSetter stores many entries in one call with a shared TTL.
// ok=false means at least one entry was rejected.
type MultiSetter interface {
	SetMulti(ctx context.Context, items map[string][]byte, ttl time.Duration) (ok bool, err error)
}
