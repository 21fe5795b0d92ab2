package redis

import (
	"bufio"
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/nscache/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var (
	_ pr.Provider      = (*Redis)(nil)
	_ pr.Flusher       = (*Redis)(nil)
	_ pr.StatsReporter = (*Redis)(nil)
	_ pr.MultiGetter   = (*Redis)(nil)
	_ pr.MultiSetter   = (*Redis)(nil)
)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this provider exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (p *Redis) Has(ctx context.Context, key string) (bool, error) {
	n, err := p.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// expiry maps the provider contract onto SET: go-redis reads -1 as KEEPTTL,
// so every non-positive ttl becomes 0 (no expiry).
func expiry(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	err := p.rdb.Set(ctx, key, value, expiry(ttl)).Err()
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Redis) Del(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, key).Err()
}

// GetMulti is a single MGET. In cluster mode all keys must hash to one slot.
func (p *Redis) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := p.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		switch s := v.(type) {
		case string:
			out[keys[i]] = []byte(s)
		case []byte:
			out[keys[i]] = s
		}
	}
	return out, nil
}

// SetMulti pipelines one SET per entry.
func (p *Redis) SetMulti(ctx context.Context, items map[string][]byte, ttl time.Duration) (bool, error) {
	if len(items) == 0 {
		return true, nil
	}
	ttl = expiry(ttl)
	_, err := p.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for k, v := range items {
			pipe.Set(ctx, k, v, ttl)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// FlushAll empties the selected database (FLUSHDB), not the whole server.
func (p *Redis) FlushAll(ctx context.Context) error {
	return p.rdb.FlushDB(ctx).Err()
}

func (p *Redis) Stats(ctx context.Context) (*pr.Stats, error) {
	info, err := p.rdb.Info(ctx, "server", "memory", "stats").Result()
	if err != nil {
		return nil, err
	}
	return parseInfo(info), nil
}

// parseInfo reads the INFO fields that map onto Stats. maxmemory 0 means
// unlimited and leaves MemoryAvailable at 0.
func parseInfo(info string) *pr.Stats {
	fields := make(map[string]uint64)
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch k {
		case "keyspace_hits", "keyspace_misses", "uptime_in_seconds", "used_memory", "maxmemory":
			if n, err := strconv.ParseUint(v, 10, 64); err == nil {
				fields[k] = n
			}
		}
	}

	st := &pr.Stats{
		Hits:        fields["keyspace_hits"],
		Misses:      fields["keyspace_misses"],
		Uptime:      time.Duration(fields["uptime_in_seconds"]) * time.Second,
		MemoryUsage: fields["used_memory"],
	}
	if limit := fields["maxmemory"]; limit > st.MemoryUsage {
		st.MemoryAvailable = limit - st.MemoryUsage
	}
	return st
}

// Close releases the underlying redis client only when this provider owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
