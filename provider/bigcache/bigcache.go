// Package bigcache is a Provider on top of allegro/bigcache.
//
// BigCache only knows a global LifeWindow, so each value is stored framed
// with its own expiry and key (internal/wire). Per-entry TTLs are enforced
// on read; LifeWindow still caps how long any entry can live.
package bigcache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/nscache/internal/wire"
	pr "github.com/unkn0wn-root/nscache/provider"
)

// DefaultLifeWindow is used when Config.LifeWindow is zero.
const DefaultLifeWindow = 24 * time.Hour

type Provider struct {
	c       *bc.BigCache
	hardMB  int
	started time.Time
	now     func() time.Time

	// reads that found a framed entry past its own expiry
	expired atomic.Int64
}

var (
	_ pr.Provider      = (*Provider)(nil)
	_ pr.Flusher       = (*Provider)(nil)
	_ pr.StatsReporter = (*Provider)(nil)
)

type Config struct {
	LifeWindow         time.Duration // 0 => DefaultLifeWindow
	CleanWindow        time.Duration
	Shards             int // power of two; 0 => bigcache default
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = DefaultLifeWindow
	}
	conf := bc.DefaultConfig(life)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	conf.Verbose = false
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, hardMB: cfg.HardMaxCacheSizeMB, started: time.Now(), now: time.Now}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok, err := p.read(key)
	if err != nil || !ok {
		return nil, false, err
	}
	return e.Payload, true, nil
}

func (p *Provider) Has(_ context.Context, key string) (bool, error) {
	_, ok, err := p.read(key)
	return ok, err
}

func (p *Provider) read(key string) (wire.Entry, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return wire.Entry{}, false, nil
	}
	if err != nil {
		return wire.Entry{}, false, err
	}
	e, err := wire.Decode(b)
	if err != nil || e.Key != key {
		// self-heal: foreign bytes or a hash collision never reach the caller
		_ = p.c.Delete(key)
		return wire.Entry{}, false, nil
	}
	if e.Expired(p.now()) {
		p.expired.Add(1)
		_ = p.c.Delete(key)
		return wire.Entry{}, false, nil
	}
	return e, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	e := wire.Entry{Key: key, Payload: value}
	if ttl > 0 {
		e.ExpiresAt = p.now().Add(ttl)
	}
	b, err := wire.Encode(e)
	if err != nil {
		return false, err
	}
	// bigcache only fails a Set when the entry cannot fit in its shard
	if err := p.c.Set(key, b); err != nil {
		return false, nil
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	if err := p.c.Delete(key); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return err
	}
	return nil
}

func (p *Provider) FlushAll(_ context.Context) error {
	return p.c.Reset()
}

// Stats maps bigcache counters. Reads of entries past their own expiry are
// moved from hits to misses.
func (p *Provider) Stats(_ context.Context) (*pr.Stats, error) {
	s := p.c.Stats()
	expired := p.expired.Load()
	hits := s.Hits - expired
	if hits < 0 {
		hits = 0
	}
	st := &pr.Stats{
		Hits:        uint64(hits),
		Misses:      uint64(s.Misses + expired),
		Uptime:      time.Since(p.started),
		MemoryUsage: uint64(p.c.Capacity()),
	}
	if p.hardMB > 0 {
		limit := uint64(p.hardMB) * 1024 * 1024
		if limit > st.MemoryUsage {
			st.MemoryAvailable = limit - st.MemoryUsage
		}
	}
	return st, nil
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (p *Provider) Len() int { return p.c.Len() }

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}
