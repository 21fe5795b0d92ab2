// Package nscache implements a namespaced cache over pluggable byte stores.
// Many logical caches share one physical backend without key collisions, and
// a whole namespace is invalidated in O(1) by bumping its version instead of
// deleting entries.
//
// Components:
//   - Provider: byte store with TTL (filesystem, in-memory, BigCache, Ristretto, Redis).
//     Optional capabilities (flush, stats, multi-get, multi-set) are probed per call.
//   - Codec[V]: (de)serializes V <-> []byte.
//   - versionstore.Store: where namespace versions live. Defaults to a sentinel
//     entry inside the Provider itself.
//
// Keys:
//
//	<len(ns)>:<ns>[<id>][<version>]  - entries
//	NamespaceCacheKey[<ns>]          - version sentinel
//
// Invalidation:
//
//	_ = cache.Save(ctx, "k", v1, 0)
//	_ = cache.DeleteAll(ctx)          // version n -> n+1
//	_, ok, _ := cache.Fetch(ctx, "k") // ok == false; the old entry is orphaned
//
// The version is resolved lazily once per Cache and kept in memory. Other
// instances sharing the namespace see a DeleteAll only after they resolve
// again (new instance or SetNamespace).
package nscache
