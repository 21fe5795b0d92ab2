package nscache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/nscache/codec"
	pr "github.com/unkn0wn-root/nscache/provider"
	vs "github.com/unkn0wn-root/nscache/versionstore"
)

// NoExpiration stores an entry without TTL even when Options.DefaultTTL is set.
const NoExpiration time.Duration = -1

// Cache is the namespaced, provider-agnostic cache API.
// V is the caller's value type. Serialization is handled by a pluggable Codec[V].
type Cache[V any] interface {
	Enabled() bool
	Close(context.Context) error

	// Namespace
	Namespace() string
	SetNamespace(ns string) // also forgets the resolved version

	// Single
	Fetch(ctx context.Context, id string) (v V, ok bool, err error)
	Contains(ctx context.Context, id string) (bool, error) // true iff Fetch would return ok
	Save(ctx context.Context, id string, value V, ttl time.Duration) error
	Delete(ctx context.Context, id string) error

	// Batch (falls back to single calls when the provider has no native support)
	FetchMulti(ctx context.Context, ids []string) (map[string]V, error)
	SaveMulti(ctx context.Context, items map[string]V, ttl time.Duration) error

	// Namespace-wide
	DeleteAll(ctx context.Context) error

	// Provider pass-through, not namespaced
	Stats(ctx context.Context) (*pr.Stats, error)
	FlushAll(ctx context.Context) error
}

// Options tune the behavior of the namespaced cache.
// Only Provider and Codec are required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Provider pr.Provider
	Codec    c.Codec[V]

	Namespace    string        // logical partition, e.g. "user", "app:prod:order"; may be empty
	VersionStore vs.Store      // nil => sentinel entries in Provider
	Logger       Logger        // nil => NopLogger
	Hooks        Hooks         // nil => NopHooks
	DefaultTTL   time.Duration // used when Save gets ttl == 0; 0 => no expiry
	Disabled     bool          // default false (enabled)
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
