package versionstore

import (
	"context"
	"fmt"

	"github.com/unkn0wn-root/nscache/internal/keys"
	pr "github.com/unkn0wn-root/nscache/provider"
)

// Provider stores versions as sentinel entries ("NamespaceCacheKey[<ns>]")
// in a cache provider. Bump is a plain write of current+1: two processes
// bumping concurrently may both write the same value, collapsing two
// invalidations into one.
//
// The sentinel lives only as long as the backend keeps it. Ristretto can
// drop or evict an accepted write through its admission policy, and
// bigcache evicts under memory pressure; a fresh instance then resolves
// version 1 again and old entries become visible. Use Redis or Local with
// such lossy backends.
type Provider struct {
	p pr.Provider
}

var _ Store = (*Provider)(nil)

func NewProvider(p pr.Provider) *Provider {
	return &Provider{p: p}
}

func (s *Provider) Load(ctx context.Context, namespace string) (uint64, bool, error) {
	raw, ok, err := s.p.Get(ctx, keys.Sentinel(namespace))
	if err != nil || !ok {
		return 0, false, err
	}
	v, ok := keys.ParseVersion(raw)
	if !ok {
		return 0, false, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	return v, true, nil
}

func (s *Provider) Bump(ctx context.Context, namespace string, current uint64) (uint64, error) {
	next := current + 1
	ok, err := s.p.Set(ctx, keys.Sentinel(namespace), keys.FormatVersion(next), 0)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotStored
	}
	return next, nil
}

// Close is a no-op; the provider belongs to the cache.
func (s *Provider) Close(context.Context) error { return nil }
