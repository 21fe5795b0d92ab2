// Package filesystem is a Provider that keeps one file per entry under a
// root directory. File locations come from MapPath; each file holds the
// wire-framed entry (key, expiry, payload) so expiry survives restarts and
// digest-named files can be checked against the requested key.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/nscache/internal/wire"
	pr "github.com/unkn0wn-root/nscache/provider"
)

// DefaultUmask matches the usual shared-group setup: group-writable, not world-writable.
const DefaultUmask os.FileMode = 0o002

const tempPrefix = ".tmp-"

var (
	ErrNoDir         = errors.New("filesystem provider: directory required")
	ErrInvalidUmask  = errors.New("filesystem provider: umask must be within 0o777")
	ErrDirNotCreated = errors.New("filesystem provider: directory does not exist and could not be created")
	ErrNotWritable   = errors.New("filesystem provider: directory is not writable")
)

type Config struct {
	Dir       string      // root directory; created if missing
	Extension string      // appended to every entry file name, e.g. ".cache"
	Umask     os.FileMode // masked out of 0o777 (dirs) and 0o666 (files)
	Limits    Limits      // zero value => DefaultLimits()
}

type Provider struct {
	dir    string
	ext    string
	umask  os.FileMode
	limits Limits

	started time.Time
	now     func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

var (
	_ pr.Provider      = (*Provider)(nil)
	_ pr.Flusher       = (*Provider)(nil)
	_ pr.StatsReporter = (*Provider)(nil)
)

// New validates cfg and prepares the root directory. Any failure here is
// final; there is no partially configured Provider.
func New(cfg Config) (*Provider, error) {
	if cfg.Dir == "" {
		return nil, ErrNoDir
	}
	if cfg.Umask&^os.ModePerm != 0 {
		return nil, fmt.Errorf("%w, was: %#o", ErrInvalidUmask, uint32(cfg.Umask))
	}

	if err := os.MkdirAll(cfg.Dir, os.ModePerm&^cfg.Umask); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrDirNotCreated, cfg.Dir, err)
	}
	abs, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("filesystem provider: resolve %q: %w", cfg.Dir, err)
	}
	if abs, err = filepath.EvalSymlinks(abs); err != nil {
		return nil, fmt.Errorf("filesystem provider: resolve %q: %w", cfg.Dir, err)
	}
	if err := probeWritable(abs); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrNotWritable, abs, err)
	}

	lim := cfg.Limits
	if lim == (Limits{}) {
		lim = DefaultLimits()
	}

	return &Provider{
		dir:     abs,
		ext:     cfg.Extension,
		umask:   cfg.Umask,
		limits:  lim,
		started: time.Now(),
		now:     time.Now,
		locks:   make(map[string]*entryLock),
	}, nil
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, tempPrefix+"probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// Dir returns the canonical root directory.
func (p *Provider) Dir() string { return p.dir }

// Extension returns the entry file extension.
func (p *Provider) Extension() string { return p.ext }

// Path returns the file that holds key.
func (p *Provider) Path(key string) string {
	return MapPath(p.dir, p.ext, key, p.limits)
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, ok, err := p.read(ctx, key)
	if err != nil || !ok {
		p.misses.Add(1)
		return nil, false, err
	}
	p.hits.Add(1)
	return e.Payload, true, nil
}

func (p *Provider) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := p.read(ctx, key)
	return ok, err
}

func (p *Provider) read(ctx context.Context, key string) (wire.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return wire.Entry{}, false, err
	}
	path := p.Path(key)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return wire.Entry{}, false, nil
		}
		return wire.Entry{}, false, err
	}
	e, err := wire.Decode(b)
	if err != nil {
		// self-heal: a torn or foreign file is never served
		p.removeIfUnchanged(key, path, b)
		return wire.Entry{}, false, nil
	}
	if e.Key != key {
		return wire.Entry{}, false, nil
	}
	if e.Expired(p.now()) {
		p.removeIfUnchanged(key, path, b)
		return wire.Entry{}, false, nil
	}
	return e, true, nil
}

// removeIfUnchanged deletes path unless a writer replaced it after we read seen.
func (p *Provider) removeIfUnchanged(key, path string, seen []byte) {
	unlock := p.lockEntry(key)
	defer unlock()
	cur, err := os.ReadFile(path)
	if err != nil || string(cur) != string(seen) {
		return
	}
	_ = os.Remove(path)
}

func (p *Provider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e := wire.Entry{Key: key, Payload: value}
	if ttl > 0 {
		e.ExpiresAt = p.now().Add(ttl)
	}
	b, err := wire.Encode(e)
	if err != nil {
		return false, err
	}

	unlock := p.lockEntry(key)
	defer unlock()

	path := p.Path(key)
	if err := p.writeFile(path, b); err != nil {
		return false, err
	}
	return true, nil
}

// writeFile writes b to a temp file next to path and renames it into place,
// so readers observe either the old or the new entry, never a torn one.
func (p *Provider) writeFile(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm&^p.umask); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(b)
	if err == nil {
		err = tmp.Chmod(0o666 &^ p.umask)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func (p *Provider) Del(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := p.lockEntry(key)
	defer unlock()

	if err := os.Remove(p.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// FlushAll removes everything under the root directory but keeps the root.
func (p *Provider) FlushAll(ctx context.Context) error {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.RemoveAll(filepath.Join(p.dir, de.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stats reports hit/miss counters since New, total bytes of entry files and
// the free space left on the root's filesystem.
func (p *Provider) Stats(ctx context.Context) (*pr.Stats, error) {
	var used uint64
	err := filepath.WalkDir(p.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		used += uint64(info.Size())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pr.Stats{
		Hits:            p.hits.Load(),
		Misses:          p.misses.Load(),
		Uptime:          time.Since(p.started),
		MemoryUsage:     used,
		MemoryAvailable: freeBytes(p.dir),
	}, nil
}

func (p *Provider) Close(_ context.Context) error { return nil }

func (p *Provider) lockEntry(key string) func() {
	p.mu.Lock()
	lock := p.locks[key]
	if lock == nil {
		lock = &entryLock{}
		p.locks[key] = lock
	}
	lock.refs++
	p.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		p.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(p.locks, key)
		}
		p.mu.Unlock()
	}
}
