package nscache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	c "github.com/unkn0wn-root/nscache/codec"
	"github.com/unkn0wn-root/nscache/internal/keys"
	pr "github.com/unkn0wn-root/nscache/provider"
	vs "github.com/unkn0wn-root/nscache/versionstore"
)

type cache[V any] struct {
	provider   pr.Provider
	codec      c.Codec[V]
	versions   vs.Store
	log        Logger
	hooks      Hooks
	enabled    bool
	defaultTTL time.Duration

	// namespace state; version 0 => not resolved yet
	mu      sync.RWMutex
	ns      string
	version uint64

	// serializes DeleteAll within this instance
	bumpMu sync.Mutex
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("nscache: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("nscache: codec is required")
	}

	c := &cache[V]{
		ns:         opts.Namespace,
		provider:   opts.Provider,
		codec:      opts.Codec,
		enabled:    !opts.Disabled,
		defaultTTL: opts.DefaultTTL,
	}

	// defaults
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	if opts.VersionStore != nil {
		c.versions = opts.VersionStore
	} else {
		c.versions = vs.NewProvider(opts.Provider)
	}

	return c, nil
}

func (c *cache[V]) Enabled() bool { return c.enabled }

func (c *cache[V]) Close(ctx context.Context) error {
	// Close version store first (best effort)
	if c.versions != nil {
		_ = c.versions.Close(ctx)
	}
	if c.provider != nil {
		return c.provider.Close(ctx)
	}
	return nil
}

func (c *cache[V]) Namespace() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ns
}

func (c *cache[V]) SetNamespace(ns string) {
	c.mu.Lock()
	c.ns = ns
	c.version = 0
	c.mu.Unlock()
}

func (c *cache[V]) Fetch(ctx context.Context, id string) (V, bool, error) {
	var zero V
	if !c.enabled {
		return zero, false, nil
	}
	k, err := c.key(ctx, id)
	if err != nil {
		return zero, false, err
	}
	return c.fetchKey(ctx, k)
}

func (c *cache[V]) fetchKey(ctx context.Context, k string) (V, bool, error) {
	var zero V
	raw, ok, err := c.provider.Get(ctx, k)
	if err != nil || !ok {
		return zero, false, err
	}
	return c.decode(ctx, k, raw)
}

func (c *cache[V]) decode(ctx context.Context, k string, raw []byte) (V, bool, error) {
	v, err := c.codec.Decode(raw)
	if err != nil {
		var zero V
		_ = c.provider.Del(ctx, k) // self-heal
		c.hooks.SelfHeal(k, "value_decode")
		c.log.Debug("dropped undecodable entry", Fields{"key": k, "err": err})
		return zero, false, nil
	}
	return v, true, nil
}

func (c *cache[V]) Contains(ctx context.Context, id string) (bool, error) {
	if !c.enabled {
		return false, nil
	}
	k, err := c.key(ctx, id)
	if err != nil {
		return false, err
	}
	// Reads and decodes so an undecodable entry is healed and reported
	// absent, the same as Fetch.
	_, ok, err := c.fetchKey(ctx, k)
	return ok, err
}

func (c *cache[V]) Save(ctx context.Context, id string, value V, ttl time.Duration) error {
	if !c.enabled {
		return nil
	}
	k, err := c.key(ctx, id)
	if err != nil {
		return err
	}
	payload, err := c.codec.Encode(value)
	if err != nil {
		return err
	}
	ok, err := c.provider.Set(ctx, k, payload, effectiveTTL(ttl, c.defaultTTL))
	if err != nil {
		return err
	}
	if !ok {
		c.hooks.ProviderSetRejected(k, false)
		c.log.Debug("Save rejected by provider", Fields{"id": id})
		return fmt.Errorf("%w: %q", ErrRejected, id)
	}
	return nil
}

func (c *cache[V]) Delete(ctx context.Context, id string) error {
	if !c.enabled {
		return nil
	}
	k, err := c.key(ctx, id)
	if err != nil {
		return err
	}
	return c.provider.Del(ctx, k)
}

func (c *cache[V]) DeleteAll(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	c.bumpMu.Lock()
	defer c.bumpMu.Unlock()

	ns, cur, err := c.resolveVersion(ctx)
	if err != nil {
		return &DeleteAllError{Namespace: ns, Err: err}
	}
	next, err := c.versions.Bump(ctx, ns, cur)
	if err != nil {
		c.hooks.VersionBumpError(ns, err)
		c.log.Warn("namespace version bump failed", Fields{"namespace": ns, "version": cur, "err": err})
		return &DeleteAllError{Namespace: ns, Version: cur, Err: err}
	}

	c.mu.Lock()
	if c.ns == ns && next > c.version {
		c.version = next
	}
	c.mu.Unlock()

	c.hooks.NamespaceBumped(ns, cur, next)
	c.log.Debug("namespace invalidated (version bumped)", Fields{"namespace": ns, "from": cur, "to": next})
	return nil
}

func (c *cache[V]) Stats(ctx context.Context) (*pr.Stats, error) {
	sr, ok := c.provider.(pr.StatsReporter)
	if !ok {
		return nil, nil
	}
	return sr.Stats(ctx)
}

func (c *cache[V]) FlushAll(ctx context.Context) error {
	f, ok := c.provider.(pr.Flusher)
	if !ok {
		return ErrUnsupported
	}
	return f.FlushAll(ctx)
}

func (c *cache[V]) FetchMulti(ctx context.Context, ids []string) (map[string]V, error) {
	out := make(map[string]V, len(ids))
	if !c.enabled || len(ids) == 0 {
		return out, nil
	}
	ns, ver, err := c.resolveVersion(ctx)
	if err != nil {
		return out, err
	}

	// composite key -> caller id; duplicates collapse
	idByKey := make(map[string]string, len(ids))
	storage := make([]string, 0, len(ids))
	for _, id := range ids {
		k := keys.Composite(ns, id, ver)
		if _, dup := idByKey[k]; dup {
			continue
		}
		idByKey[k] = id
		storage = append(storage, k)
	}

	if mg, ok := c.provider.(pr.MultiGetter); ok {
		raws, err := mg.GetMulti(ctx, storage)
		if err != nil {
			return out, err
		}
		for k, raw := range raws {
			id, ok := idByKey[k]
			if !ok {
				continue
			}
			if v, ok, _ := c.decode(ctx, k, raw); ok {
				out[id] = v
			}
		}
		return out, nil
	}

	// Fallback: singles
	c.hooks.MultiFallback(ns, "fetch", len(storage))
	var errs []error
	for _, k := range storage {
		v, ok, err := c.fetchKey(ctx, k)
		if err != nil {
			errs = append(errs, fmt.Errorf("fetch %q: %w", idByKey[k], err))
			continue
		}
		if ok {
			out[idByKey[k]] = v
		}
	}
	return out, errors.Join(errs...)
}

func (c *cache[V]) SaveMulti(ctx context.Context, items map[string]V, ttl time.Duration) error {
	if !c.enabled || len(items) == 0 {
		return nil
	}
	ns, ver, err := c.resolveVersion(ctx)
	if err != nil {
		return err
	}
	ttl = effectiveTTL(ttl, c.defaultTTL)

	encoded := make(map[string][]byte, len(items))
	idByKey := make(map[string]string, len(items))
	for id, v := range items {
		payload, err := c.codec.Encode(v)
		if err != nil {
			return fmt.Errorf("encode %q: %w", id, err)
		}
		k := keys.Composite(ns, id, ver)
		encoded[k] = payload
		idByKey[k] = id
	}

	if ms, ok := c.provider.(pr.MultiSetter); ok {
		ok, err := ms.SetMulti(ctx, encoded, ttl)
		if err != nil {
			return err
		}
		if !ok {
			c.hooks.ProviderSetRejected(ns, true)
			c.log.Debug("SaveMulti rejected by provider", Fields{"namespace": ns, "count": len(items)})
			return ErrRejected
		}
		return nil
	}

	// Fallback: singles; every one must succeed
	c.hooks.MultiFallback(ns, "save", len(encoded))
	var errs []error
	for k, payload := range encoded {
		ok, err := c.provider.Set(ctx, k, payload, ttl)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("save %q: %w", idByKey[k], err))
		case !ok:
			c.hooks.ProviderSetRejected(k, false)
			errs = append(errs, fmt.Errorf("%w: %q", ErrRejected, idByKey[k]))
		}
	}
	return errors.Join(errs...)
}

func (c *cache[V]) key(ctx context.Context, id string) (string, error) {
	ns, ver, err := c.resolveVersion(ctx)
	if err != nil {
		return "", err
	}
	return keys.Composite(ns, id, ver), nil
}

// resolveVersion returns the namespace and its version, loading the version
// from the version store on first use. A missing version resolves to 1 and
// is not persisted until the first DeleteAll.
func (c *cache[V]) resolveVersion(ctx context.Context) (string, uint64, error) {
	c.mu.RLock()
	ns, ver := c.ns, c.version
	c.mu.RUnlock()
	if ver != 0 {
		return ns, ver, nil
	}

	loaded, found, err := c.versions.Load(ctx, ns)
	switch {
	case errors.Is(err, vs.ErrMalformed):
		c.hooks.VersionLoadError(ns, err)
		c.log.Warn("ignoring malformed namespace version", Fields{"namespace": ns, "err": err})
		loaded = 1
	case err != nil:
		c.hooks.VersionLoadError(ns, err)
		c.log.Error("namespace version load failed", Fields{"namespace": ns, "err": err})
		return ns, 0, err
	case !found:
		loaded = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ns != ns {
		// namespace switched while loading; serve this call, memoize nothing
		return ns, loaded, nil
	}
	if loaded > c.version {
		c.version = loaded
	}
	return ns, c.version, nil
}
