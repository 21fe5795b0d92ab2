package config

import (
	"os"
	"time"
)

// Config drives the nscache CLI: which backend to open, how values are
// encoded, and where logs go.
type Config struct {
	Namespace  string        `mapstructure:"namespace"`
	Backend    string        `mapstructure:"backend"`
	Codec      string        `mapstructure:"codec"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	// VersionStore selects where namespace versions live: "provider" keeps
	// sentinel entries in the backend, "redis" bumps them atomically.
	VersionStore string `mapstructure:"version_store"`

	Filesystem FilesystemConfig `mapstructure:"filesystem"`
	BigCache   BigCacheConfig   `mapstructure:"bigcache"`
	Ristretto  RistrettoConfig  `mapstructure:"ristretto"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
}

type FilesystemConfig struct {
	Dir       string      `mapstructure:"dir"`
	Extension string      `mapstructure:"extension"`
	Umask     os.FileMode `mapstructure:"umask"`
}

type BigCacheConfig struct {
	LifeWindow         time.Duration `mapstructure:"life_window"`
	Shards             int           `mapstructure:"shards"`
	HardMaxCacheSizeMB int           `mapstructure:"hard_max_cache_size_mb"`
}

type RistrettoConfig struct {
	NumCounters int64 `mapstructure:"num_counters"`
	MaxCost     int64 `mapstructure:"max_cost"`
	BufferItems int64 `mapstructure:"buffer_items"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Prefix is prepended to version keys when VersionStore is "redis".
	Prefix string `mapstructure:"prefix"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}
