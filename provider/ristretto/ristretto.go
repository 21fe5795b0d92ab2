// Package ristretto is a Provider on top of dgraph-io/ristretto.
//
// Ristretto admits writes probabilistically: Set may return ok=false, which
// the cache reports as a rejected write. Each Set waits for the write
// buffers so a following Get observes it. An accepted write can still be
// evicted later by the admission policy, so version sentinels kept here
// are lossy; pair this backend with a Redis or Local version store.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/nscache/provider"
)

type Provider struct {
	c       *rc.Cache
	maxCost int64
	cost    func([]byte) int64
	started time.Time
}

var (
	_ pr.Provider      = (*Provider)(nil)
	_ pr.Flusher       = (*Provider)(nil)
	_ pr.StatsReporter = (*Provider)(nil)
)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost of one entry. nil => len(value), so MaxCost is a byte budget.
	Cost func(value []byte) int64
}

func byteCost(v []byte) int64 { return int64(len(v)) }

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
		// cost is exactly what Config.Cost reports
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	cost := cfg.Cost
	if cost == nil {
		cost = byteCost
	}
	return &Provider{c: c, maxCost: cfg.MaxCost, cost: cost, started: time.Now()}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

func (p *Provider) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := p.Get(ctx, key)
	return ok, err
}

func (p *Provider) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	// ristretto keeps the slice; detach it from the caller's buffer
	v := make([]byte, len(value))
	copy(v, value)
	ok := p.c.SetWithTTL(key, v, p.cost(v), ttl)
	p.c.Wait()
	return ok, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

func (p *Provider) FlushAll(_ context.Context) error {
	p.c.Clear()
	return nil
}

// Stats needs Config.Metrics; without it counters and usage read as zero.
func (p *Provider) Stats(_ context.Context) (*pr.Stats, error) {
	m := p.c.Metrics
	st := &pr.Stats{Uptime: time.Since(p.started)}
	if m == nil {
		return st, nil
	}
	st.Hits = m.Hits()
	st.Misses = m.Misses()
	if added, evicted := m.CostAdded(), m.CostEvicted(); added > evicted {
		st.MemoryUsage = added - evicted
	}
	if uint64(p.maxCost) > st.MemoryUsage {
		st.MemoryAvailable = uint64(p.maxCost) - st.MemoryUsage
	}
	return st, nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes the raw ristretto counters (nil unless Config.Metrics).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
