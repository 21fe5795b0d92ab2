package nscache

import "time"

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// effectiveTTL maps the Save ttl argument onto the provider contract
// (0 => no expiry).
func effectiveTTL(ttl, def time.Duration) time.Duration {
	if ttl == 0 {
		ttl = def
	}
	if ttl < 0 {
		return 0
	}
	return ttl
}
