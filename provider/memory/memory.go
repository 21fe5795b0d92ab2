// Package memory is the dependency-free test and reference Provider, backed
// by a plain map. Production in-process caching belongs to the bigcache and
// ristretto providers. Expired entries are dropped lazily on access; there
// is no background sweep. Values are copied on the way in and on the way out.
package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	pr "github.com/unkn0wn-root/nscache/provider"
)

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type Memory struct {
	mu      sync.RWMutex
	m       map[string]entry
	bytes   uint64
	started time.Time
	now     func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
}

var (
	_ pr.Provider      = (*Memory)(nil)
	_ pr.Flusher       = (*Memory)(nil)
	_ pr.StatsReporter = (*Memory)(nil)
	_ pr.MultiGetter   = (*Memory)(nil)
	_ pr.MultiSetter   = (*Memory)(nil)
)

func New() *Memory {
	return &Memory{m: make(map[string]entry), started: time.Now(), now: time.Now}
}

// lookup must be called with at least the read lock held.
func (p *Memory) lookup(key string, now time.Time) ([]byte, bool) {
	e, ok := p.m[key]
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && !now.Before(e.exp) {
		return nil, false
	}
	return e.v, true
}

func (p *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := p.now()
	p.mu.RLock()
	v, ok := p.lookup(key, now)
	p.mu.RUnlock()
	if !ok {
		p.misses.Add(1)
		p.dropExpired(key, now)
		return nil, false, nil
	}
	p.hits.Add(1)
	return append([]byte(nil), v...), true, nil
}

func (p *Memory) Has(_ context.Context, key string) (bool, error) {
	p.mu.RLock()
	_, ok := p.lookup(key, p.now())
	p.mu.RUnlock()
	return ok, nil
}

func (p *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	p.setLocked(key, value, ttl, p.now())
	p.mu.Unlock()
	return true, nil
}

func (p *Memory) setLocked(key string, value []byte, ttl time.Duration, now time.Time) {
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	if old, ok := p.m[key]; ok {
		p.bytes -= uint64(len(old.v))
	}
	v := make([]byte, len(value))
	copy(v, value)
	p.m[key] = entry{v: v, exp: exp}
	p.bytes += uint64(len(v))
}

func (p *Memory) Del(_ context.Context, key string) error {
	p.mu.Lock()
	if old, ok := p.m[key]; ok {
		p.bytes -= uint64(len(old.v))
		delete(p.m, key)
	}
	p.mu.Unlock()
	return nil
}

func (p *Memory) GetMulti(_ context.Context, keys []string) (map[string][]byte, error) {
	now := p.now()
	out := make(map[string][]byte, len(keys))
	p.mu.RLock()
	for _, k := range keys {
		if v, ok := p.lookup(k, now); ok {
			out[k] = append([]byte(nil), v...)
		}
	}
	p.mu.RUnlock()
	p.hits.Add(uint64(len(out)))
	p.misses.Add(uint64(len(keys) - len(out)))
	return out, nil
}

func (p *Memory) SetMulti(_ context.Context, items map[string][]byte, ttl time.Duration) (bool, error) {
	now := p.now()
	p.mu.Lock()
	for k, v := range items {
		p.setLocked(k, v, ttl, now)
	}
	p.mu.Unlock()
	return true, nil
}

func (p *Memory) FlushAll(_ context.Context) error {
	p.mu.Lock()
	p.m = make(map[string]entry)
	p.bytes = 0
	p.mu.Unlock()
	return nil
}

func (p *Memory) Stats(_ context.Context) (*pr.Stats, error) {
	p.mu.RLock()
	used := p.bytes
	p.mu.RUnlock()
	return &pr.Stats{
		Hits:        p.hits.Load(),
		Misses:      p.misses.Load(),
		Uptime:      time.Since(p.started),
		MemoryUsage: used,
	}, nil
}

// Len returns the number of stored entries, expired ones included.
func (p *Memory) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}

func (p *Memory) Close(_ context.Context) error { return nil }

func (p *Memory) dropExpired(key string, now time.Time) {
	p.mu.Lock()
	if e, ok := p.m[key]; ok && !e.exp.IsZero() && !now.Before(e.exp) {
		p.bytes -= uint64(len(e.v))
		delete(p.m, key)
	}
	p.mu.Unlock()
}
