package config

import (
	"fmt"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. NSCACHE_FILESYSTEM_DIR.
const EnvPrefix = "NSCACHE"

// Load reads path (any format viper knows; empty => defaults only), applies
// NSCACHE_* environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		fileModeDecodeHook(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	normalize(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("namespace", "")
	v.SetDefault("backend", "filesystem")
	v.SetDefault("codec", "raw")
	v.SetDefault("default_ttl", "0s")
	v.SetDefault("version_store", "provider")

	v.SetDefault("filesystem.dir", "./nscache-data")
	v.SetDefault("filesystem.extension", ".cache")
	v.SetDefault("filesystem.umask", "0002")

	v.SetDefault("bigcache.life_window", "24h")
	v.SetDefault("bigcache.shards", 1024)
	v.SetDefault("bigcache.hard_max_cache_size_mb", 0)

	v.SetDefault("ristretto.num_counters", 1_000_000)
	v.SetDefault("ristretto.max_cost", 64<<20)
	v.SetDefault("ristretto.buffer_items", 64)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.compress", true)
}

func normalize(cfg *Config) {
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	cfg.Codec = strings.ToLower(strings.TrimSpace(cfg.Codec))
	cfg.VersionStore = strings.ToLower(strings.TrimSpace(cfg.VersionStore))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
}

// fileModeDecodeHook reads umasks as octal digits in every form: "022",
// "0o022" and the integer 22 all decode to 0o022. An integer holding the
// digits 8 or 9 is rejected, so a TOML literal like 0o022 (18) fails
// instead of silently turning into a different mask.
func fileModeDecodeHook() mapstructure.DecodeHookFunc {
	target := reflect.TypeOf(os.FileMode(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != target {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return parseOctalMode(v)
		case int:
			return parseOctalMode(strconv.FormatInt(int64(v), 10))
		case int64:
			return parseOctalMode(strconv.FormatInt(v, 10))
		case uint32:
			return parseOctalMode(strconv.FormatUint(uint64(v), 10))
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("invalid file mode %v", v)
			}
			return parseOctalMode(strconv.FormatInt(int64(v), 10))
		case os.FileMode:
			return v, nil
		default:
			return nil, fmt.Errorf("unsupported file mode type: %T", v)
		}
	}
}

func parseOctalMode(raw string) (os.FileMode, error) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "0o")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid file mode %q: %w", raw, err)
	}
	return os.FileMode(n), nil
}
