package versionstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/nscache/internal/keys"
)

// bumpScript raises the stored version to max(stored, current)+1 in one step.
var bumpScript = redis.NewScript(`
local v = tonumber(redis.call('GET', KEYS[1]) or '0') or 0
local c = tonumber(ARGV[1])
if c > v then v = c end
v = v + 1
redis.call('SET', KEYS[1], v)
return v
`)

// Redis shares namespace versions across processes and bumps them
// atomically. With an empty prefix it reads and writes the same sentinel
// keys as Provider, so both can be mixed over one Redis database.
type Redis struct {
	rdb         redis.UniversalClient
	prefix      string
	closeClient bool
}

var _ Store = (*Redis)(nil)

// NewRedis creates a Redis-backed version store. The client is not closed
// by Close.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{rdb: client, prefix: prefix}
}

// NewRedisOwned is like NewRedis but Close also closes the client.
func NewRedisOwned(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{rdb: client, prefix: prefix, closeClient: true}
}

func (s *Redis) key(ns string) string { return s.prefix + keys.Sentinel(ns) }

func (s *Redis) Load(ctx context.Context, namespace string) (uint64, bool, error) {
	res, err := s.rdb.Get(ctx, s.key(namespace)).Bytes()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	v, ok := keys.ParseVersion(res)
	if !ok {
		return 0, false, fmt.Errorf("%w: %q", ErrMalformed, res)
	}
	return v, true, nil
}

func (s *Redis) Bump(ctx context.Context, namespace string, current uint64) (uint64, error) {
	v, err := bumpScript.Run(ctx, s.rdb, []string{s.key(namespace)}, current).Uint64()
	if err != nil {
		return 0, fmt.Errorf("redis version bump: %w", err)
	}
	return v, nil
}

func (s *Redis) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			return err
		}
	}
	return nil
}
