package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != "filesystem" || cfg.Codec != "raw" || cfg.VersionStore != "provider" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Filesystem.Umask != 0o002 || cfg.Filesystem.Extension != ".cache" {
		t.Fatalf("filesystem defaults = %+v", cfg.Filesystem)
	}
	if cfg.BigCache.LifeWindow != 24*time.Hour {
		t.Fatalf("bigcache.life_window = %v", cfg.BigCache.LifeWindow)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeTempConfig(t, "nscache.toml", `
namespace = "app:prod:user"
backend = "Redis"
codec = "json"
default_ttl = "90s"

[filesystem]
umask = "0o027"

[redis]
addr = "cache:6379"
db = 3

[log]
level = "debug"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Namespace != "app:prod:user" || cfg.Backend != "redis" || cfg.Codec != "json" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.DefaultTTL != 90*time.Second {
		t.Fatalf("default_ttl = %v", cfg.DefaultTTL)
	}
	if cfg.Filesystem.Umask != 0o027 {
		t.Fatalf("umask = %#o", cfg.Filesystem.Umask)
	}
	if cfg.Redis.Addr != "cache:6379" || cfg.Redis.DB != 3 {
		t.Fatalf("redis = %+v", cfg.Redis)
	}
}

func TestLoadIntegerUmaskReadsOctalDigits(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want os.FileMode
	}{
		{"yaml", "nscache.yaml", "filesystem:\n  umask: 22\n", 0o022},
		{"json", "nscache.json", `{"filesystem":{"umask":27}}`, 0o027},
		{"toml", "nscache.toml", "[filesystem]\numask = 77", 0o077},
		{"string matches integer", "nscache.json", `{"filesystem":{"umask":"22"}}`, 0o022},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeTempConfig(t, tt.file, tt.body))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Filesystem.Umask != tt.want {
				t.Fatalf("umask = %#o, want %#o", cfg.Filesystem.Umask, tt.want)
			}
		})
	}
}

func TestLoadIntegerUmaskRejectsNonOctalDigits(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"json decimal 18", "nscache.json", `{"filesystem":{"umask":18}}`},
		{"toml octal literal", "nscache.toml", "[filesystem]\numask = 0o022"},
		{"json fraction", "nscache.json", `{"filesystem":{"umask":2.5}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeTempConfig(t, tt.file, tt.body)); err == nil {
				t.Fatalf("expected umask decode error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NSCACHE_BACKEND", "memory")
	t.Setenv("NSCACHE_FILESYSTEM_DIR", "/tmp/elsewhere")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != "memory" || cfg.Filesystem.Dir != "/tmp/elsewhere" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"backend", `backend = "memcached"`, "backend"},
		{"codec", `codec = "xml"`, "codec"},
		{"umask", "[filesystem]\numask = \"1777\"", "filesystem.umask"},
		{"shards", "backend = \"bigcache\"\n[bigcache]\nshards = 3", "bigcache.shards"},
		{"log level", "[log]\nlevel = \"loud\"", "log.level"},
		{"negative ttl", `default_ttl = "-1s"`, "default_ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, "c.toml", tt.body))
			var fe FieldError
			if !errors.As(err, &fe) || fe.Field != tt.field {
				t.Fatalf("err = %v, want FieldError on %s", err, tt.field)
			}
		})
	}
}

func TestLoadRejectsBadSyntax(t *testing.T) {
	if _, err := Load(writeTempConfig(t, "c.toml", `umask = `)); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := Load(writeTempConfig(t, "c.toml", "[filesystem]\numask = \"9z\"")); err == nil {
		t.Fatalf("expected umask decode error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
