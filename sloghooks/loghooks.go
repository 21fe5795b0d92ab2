// Package sloghooks reports nscache hook events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/nscache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	FallbackEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	fallbackCtr atomic.Uint64
}

var _ nscache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("nscache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string, isMulti bool) {
	if h.l == nil {
		return
	}
	key := storageKey
	if !isMulti {
		key = h.redact(storageKey)
	}
	h.l.Warn("nscache.provider_set_rejected",
		"key", key,
		"is_multi", isMulti)
}

func (h *Hooks) MultiFallback(ns, op string, count int) {
	if h.l == nil || !sample(h.opts.FallbackEvery, &h.fallbackCtr) {
		return
	}
	h.l.Debug("nscache.multi_fallback",
		"ns", ns,
		"op", op,
		"count", count)
}

func (h *Hooks) VersionLoadError(ns string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("nscache.version_load_error",
		"ns", ns,
		"err", err)
}

func (h *Hooks) VersionBumpError(ns string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("nscache.version_bump_error",
		"ns", ns,
		"err", err)
}

func (h *Hooks) NamespaceBumped(ns string, from, to uint64) {
	if h.l == nil {
		return
	}
	h.l.Info("nscache.namespace_bumped",
		"ns", ns,
		"from", from,
		"to", to)
}
