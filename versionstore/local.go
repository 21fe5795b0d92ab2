package versionstore

import (
	"context"
	"sync"
)

// Local keeps versions in-process. Caches sharing one Local never lose a
// bump to each other.
type Local struct {
	mu       sync.Mutex
	versions map[string]uint64
}

var _ Store = (*Local)(nil)

func NewLocal() *Local {
	return &Local{versions: make(map[string]uint64)}
}

func (s *Local) Load(_ context.Context, namespace string) (uint64, bool, error) {
	s.mu.Lock()
	v, ok := s.versions[namespace]
	s.mu.Unlock()
	return v, ok, nil
}

func (s *Local) Bump(_ context.Context, namespace string, current uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.versions[namespace]
	if current > next {
		next = current
	}
	next++
	s.versions[namespace] = next
	return next, nil
}

func (s *Local) Close(context.Context) error { return nil }
