package bigcache

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, cfg Config) *Provider {
	t.Helper()
	if cfg.Shards == 0 {
		cfg.Shards = 16
	}
	if cfg.MaxEntriesInWindow == 0 {
		cfg.MaxEntriesInWindow = 1024
	}
	if cfg.MaxEntrySize == 0 {
		cfg.MaxEntrySize = 256
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestRoundTripAndDelete(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, Config{})

	if _, ok, err := p.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get miss: ok=%v err=%v", ok, err)
	}
	if ok, err := p.Set(ctx, "k", []byte("v1"), 0); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	b, ok, err := p.Get(ctx, "k")
	if err != nil || !ok || !bytes.Equal(b, []byte("v1")) {
		t.Fatalf("Get: %q ok=%v err=%v", b, ok, err)
	}
	if has, _ := p.Has(ctx, "k"); !has {
		t.Fatalf("Has = false")
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del of missing key: %v", err)
	}
	if has, _ := p.Has(ctx, "k"); has {
		t.Fatalf("Has after Del")
	}
}

func TestPerEntryTTL(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, Config{})
	now := time.Unix(1_700_000_000, 0)
	p.now = func() time.Time { return now }

	_, _ = p.Set(ctx, "short", []byte("x"), time.Second)
	_, _ = p.Set(ctx, "forever", []byte("y"), 0)

	now = now.Add(2 * time.Second)
	if _, ok, _ := p.Get(ctx, "short"); ok {
		t.Fatalf("expired entry served")
	}
	if _, ok, _ := p.Get(ctx, "forever"); !ok {
		t.Fatalf("entry without ttl missing")
	}

	st, _ := p.Stats(ctx)
	if st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("stats = %+v, want 1 hit 1 miss", st)
	}
}

func TestForeignBytesAreDropped(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, Config{})
	if err := p.c.Set("k", []byte("not framed")); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := p.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get foreign: ok=%v err=%v", ok, err)
	}
	if p.Len() != 0 {
		t.Fatalf("foreign entry not removed")
	}
}

func TestOversizedEntryRejected(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, Config{HardMaxCacheSizeMB: 1})
	ok, err := p.Set(ctx, "big", make([]byte, 2<<20), 0)
	if err != nil || ok {
		t.Fatalf("Set oversized: ok=%v err=%v", ok, err)
	}
}

func TestFlushAllAndStats(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, Config{HardMaxCacheSizeMB: 8})
	for _, k := range []string{"a", "b", "c"} {
		_, _ = p.Set(ctx, k, []byte(k), 0)
	}
	if err := p.FlushAll(ctx); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}
	if p.Len() != 0 {
		t.Fatalf("Len after FlushAll = %d", p.Len())
	}
	st, err := p.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.MemoryUsage == 0 || st.MemoryAvailable == 0 {
		t.Fatalf("stats = %+v", st)
	}
}
