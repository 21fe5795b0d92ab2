package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/nscache"
	"github.com/unkn0wn-root/nscache/codec"
	asynchook "github.com/unkn0wn-root/nscache/hooks/async"
	"github.com/unkn0wn-root/nscache/internal/config"
	"github.com/unkn0wn-root/nscache/internal/logging"
	nslogrus "github.com/unkn0wn-root/nscache/log/logrus"
	pr "github.com/unkn0wn-root/nscache/provider"
	"github.com/unkn0wn-root/nscache/provider/bigcache"
	"github.com/unkn0wn-root/nscache/provider/filesystem"
	"github.com/unkn0wn-root/nscache/provider/memory"
	rprov "github.com/unkn0wn-root/nscache/provider/redis"
	"github.com/unkn0wn-root/nscache/provider/ristretto"
	"github.com/unkn0wn-root/nscache/sloghooks"
	vs "github.com/unkn0wn-root/nscache/versionstore"
)

// session is one opened cache plus what the commands need besides it.
type session struct {
	cfg      *config.Config
	log      *logrus.Logger
	cache    nscache.Cache[string]
	provider pr.Provider
	versions vs.Store
	hooks    *asynchook.Hooks
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if namespace != "" {
		cfg.Namespace = namespace
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	p, err := newProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}

	versions, err := newVersionStore(ctx, cfg, p)
	if err != nil {
		_ = p.Close(ctx)
		return nil, err
	}
	if cfg.VersionStore == "provider" && (cfg.Backend == "ristretto" || cfg.Backend == "bigcache") {
		logger.WithField("backend", cfg.Backend).Warn("version sentinel may be evicted; prefer version_store=redis")
	}

	s := &session{cfg: cfg, log: logger, provider: p, versions: versions}

	opts := nscache.Options[string]{
		Namespace:    cfg.Namespace,
		Provider:     p,
		Codec:        newCodec(cfg.Codec),
		VersionStore: versions,
		Logger:       nslogrus.New(logger),
		DefaultTTL:   cfg.DefaultTTL,
	}
	if traceHooks {
		raw := sloghooks.New(slog.New(slog.NewTextHandler(os.Stderr, nil)), sloghooks.Options{})
		s.hooks = asynchook.New(raw, 1, 256)
		opts.Hooks = s.hooks
	}

	c, err := nscache.New[string](opts)
	if err != nil {
		_ = versions.Close(ctx)
		_ = p.Close(ctx)
		return nil, err
	}
	s.cache = c

	logger.WithFields(logrus.Fields{
		"action":    "open",
		"backend":   cfg.Backend,
		"namespace": cfg.Namespace,
		"codec":     cfg.Codec,
	}).Debug("cache opened")
	return s, nil
}

func (s *session) Close(ctx context.Context) {
	if err := s.cache.Close(ctx); err != nil {
		s.log.WithError(err).Warn("close cache")
	}
	if s.hooks != nil {
		s.hooks.Close()
	}
}

func newProvider(cfg *config.Config) (pr.Provider, error) {
	switch cfg.Backend {
	case "filesystem":
		return filesystem.New(filesystem.Config{
			Dir:       cfg.Filesystem.Dir,
			Extension: cfg.Filesystem.Extension,
			Umask:     cfg.Filesystem.Umask,
		})
	case "memory":
		return memory.New(), nil
	case "bigcache":
		return bigcache.New(bigcache.Config{
			LifeWindow:         cfg.BigCache.LifeWindow,
			Shards:             cfg.BigCache.Shards,
			HardMaxCacheSizeMB: cfg.BigCache.HardMaxCacheSizeMB,
		})
	case "ristretto":
		return ristretto.New(ristretto.Config{
			NumCounters: cfg.Ristretto.NumCounters,
			MaxCost:     cfg.Ristretto.MaxCost,
			BufferItems: cfg.Ristretto.BufferItems,
			Metrics:     true,
		})
	case "redis":
		return rprov.New(rprov.Config{Client: newRedisClient(cfg.Redis), CloseClient: true})
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func newRedisClient(rc config.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
}

func newVersionStore(ctx context.Context, cfg *config.Config, p pr.Provider) (vs.Store, error) {
	if cfg.VersionStore != "redis" {
		return vs.NewProvider(p), nil
	}
	client := newRedisClient(cfg.Redis)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis version store: %w", err)
	}
	return vs.NewRedisOwned(client, cfg.Redis.Prefix), nil
}

func newCodec(name string) codec.Codec[string] {
	switch name {
	case "json":
		return codec.JSON[string]{}
	case "msgpack":
		return codec.Msgpack[string]{}
	case "cbor":
		return codec.MustCBOR[string](true)
	}
	return codec.String{}
}

// currentVersion mirrors how the cache resolves a namespace version.
func currentVersion(ctx context.Context, store vs.Store, ns string) (uint64, error) {
	v, found, err := store.Load(ctx, ns)
	switch {
	case errors.Is(err, vs.ErrMalformed):
		return 1, nil
	case err != nil:
		return 0, err
	case !found:
		return 1, nil
	}
	return v, nil
}
