package config

import (
	"errors"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	supportedBackends      = []string{"filesystem", "memory", "bigcache", "ristretto", "redis"}
	supportedCodecs        = []string{"raw", "json", "msgpack", "cbor"}
	supportedVersionStores = []string{"provider", "redis"}
)

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// Validate rejects settings the CLI could not open a store with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if !oneOf(c.Backend, supportedBackends) {
		return newFieldError("backend", "must be one of "+strings.Join(supportedBackends, "|"))
	}
	if !oneOf(c.Codec, supportedCodecs) {
		return newFieldError("codec", "must be one of "+strings.Join(supportedCodecs, "|"))
	}
	if !oneOf(c.VersionStore, supportedVersionStores) {
		return newFieldError("version_store", "must be one of "+strings.Join(supportedVersionStores, "|"))
	}
	if c.DefaultTTL < 0 {
		return newFieldError("default_ttl", "must not be negative")
	}

	switch c.Backend {
	case "filesystem":
		if strings.TrimSpace(c.Filesystem.Dir) == "" {
			return newFieldError("filesystem.dir", "must not be empty")
		}
		if c.Filesystem.Umask&^os.ModePerm != 0 {
			return newFieldError("filesystem.umask", "must be within 0777")
		}
	case "ristretto":
		r := c.Ristretto
		if r.NumCounters <= 0 || r.MaxCost <= 0 || r.BufferItems <= 0 {
			return newFieldError("ristretto", "num_counters, max_cost and buffer_items must be positive")
		}
	case "bigcache":
		if s := c.BigCache.Shards; s <= 0 || s&(s-1) != 0 {
			return newFieldError("bigcache.shards", "must be a power of two")
		}
	}
	if (c.Backend == "redis" || c.VersionStore == "redis") && strings.TrimSpace(c.Redis.Addr) == "" {
		return newFieldError("redis.addr", "must not be empty")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return newFieldError("log.level", err.Error())
	}
	if c.Log.File != "" && c.Log.MaxSizeMB <= 0 {
		return newFieldError("log.max_size_mb", "must be positive when log.file is set")
	}
	return nil
}
