package nscache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// An entry was deleted by the cache on read.
	// reason ∈ {"value_decode"}
	SelfHeal(storageKey, reason string)

	// Provider returned ok=false on a write.
	// For multi-writes storageKey is the namespace.
	ProviderSetRejected(storageKey string, isMulti bool)

	// A batch call ran as single calls because the provider has no native support.
	// op ∈ {"fetch", "save"}
	MultiFallback(namespace, op string, count int)

	// The namespace version could not be loaded (backend error or malformed value).
	VersionLoadError(namespace string, err error)

	// DeleteAll could not persist the next version.
	VersionBumpError(namespace string, err error)

	// DeleteAll moved the namespace from one version to the next.
	NamespaceBumped(namespace string, from, to uint64)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)                {}
func (NopHooks) ProviderSetRejected(string, bool)       {}
func (NopHooks) MultiFallback(string, string, int)      {}
func (NopHooks) VersionLoadError(string, error)         {}
func (NopHooks) VersionBumpError(string, error)         {}
func (NopHooks) NamespaceBumped(string, uint64, uint64) {}
