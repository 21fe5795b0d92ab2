package redis

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

func newTestProvider(t *testing.T) *Redis {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping: %v", err)
	}
	client.FlushDB(ctx)
	p, err := New(Config{Client: client, CloseClient: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		_ = p.Close(context.Background())
	})
	return p
}

func TestNewNilClient(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNilClient) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseInfo(t *testing.T) {
	info := "# Server\r\nredis_version:7.2.4\r\nuptime_in_seconds:3600\r\n\r\n" +
		"# Memory\r\nused_memory:1048576\r\nmaxmemory:4194304\r\n\r\n" +
		"# Stats\r\nkeyspace_hits:42\r\nkeyspace_misses:7\r\nbogus_line\r\n"
	st := parseInfo(info)
	if st.Hits != 42 || st.Misses != 7 {
		t.Fatalf("hits/misses = %d/%d", st.Hits, st.Misses)
	}
	if st.Uptime != time.Hour {
		t.Fatalf("uptime = %v", st.Uptime)
	}
	if st.MemoryUsage != 1<<20 || st.MemoryAvailable != 3<<20 {
		t.Fatalf("memory = %d/%d", st.MemoryUsage, st.MemoryAvailable)
	}

	unlimited := parseInfo("used_memory:100\r\nmaxmemory:0\r\n")
	if unlimited.MemoryAvailable != 0 {
		t.Fatalf("maxmemory 0 should leave available at 0, got %d", unlimited.MemoryAvailable)
	}
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	if _, ok, err := p.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get miss: ok=%v err=%v", ok, err)
	}
	if ok, err := p.Set(ctx, "k", []byte{0, 1, 2}, 0); err != nil || !ok {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	b, ok, err := p.Get(ctx, "k")
	if err != nil || !ok || !bytes.Equal(b, []byte{0, 1, 2}) {
		t.Fatalf("Get: %v ok=%v err=%v", b, ok, err)
	}
	if has, _ := p.Has(ctx, "k"); !has {
		t.Fatalf("Has = false")
	}
	if ttl := p.rdb.TTL(ctx, "k").Val(); ttl != -1 {
		t.Fatalf("ttl = %v, want no expiry", ttl)
	}
	_ = p.Del(ctx, "k")
	if has, _ := p.Has(ctx, "k"); has {
		t.Fatalf("Has after Del")
	}
}

func TestRedisNegativeTTLIsNoExpiry(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)
	_, _ = p.Set(ctx, "k", []byte("v"), time.Minute)
	_, _ = p.Set(ctx, "k", []byte("v2"), -1)
	if ttl := p.rdb.TTL(ctx, "k").Val(); ttl != -1 {
		t.Fatalf("ttl = %v, want no expiry", ttl)
	}
}

func TestRedisMulti(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t)

	items := map[string][]byte{"a": []byte("1"), "b": []byte("2")}
	if ok, err := p.SetMulti(ctx, items, time.Minute); err != nil || !ok {
		t.Fatalf("SetMulti: ok=%v err=%v", ok, err)
	}
	got, err := p.GetMulti(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("GetMulti: %v", err)
	}
	if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Fatalf("GetMulti = %v", got)
	}

	if err := p.FlushAll(ctx); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}
	if got, _ := p.GetMulti(ctx, []string{"a", "b"}); len(got) != 0 {
		t.Fatalf("GetMulti after FlushAll = %v", got)
	}

	st, err := p.Stats(ctx)
	if err != nil || st.Uptime == 0 {
		t.Fatalf("Stats = %+v, %v", st, err)
	}
}
