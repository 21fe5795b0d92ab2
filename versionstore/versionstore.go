// Package versionstore holds namespace versions for nscache.
//
// Provider (the default) keeps each version in a sentinel entry of the same
// backend the cache writes to. Local shares versions between caches of one
// process. Redis bumps atomically across processes.
package versionstore

import (
	"context"
	"errors"
)

var (
	// ErrNotStored means the backend refused to persist a new version.
	ErrNotStored = errors.New("versionstore: version not stored")
	// ErrMalformed means the stored version could not be decoded.
	ErrMalformed = errors.New("versionstore: malformed version")
)

// Store abstracts where namespace versions live.
type Store interface {
	// Load returns the persisted version of namespace. found=false when none
	// was ever persisted. A stored value that is not a positive integer is
	// reported as ErrMalformed.
	Load(ctx context.Context, namespace string) (version uint64, found bool, err error)
	// Bump persists a version greater than current and returns it.
	Bump(ctx context.Context, namespace string, current uint64) (uint64, error)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
