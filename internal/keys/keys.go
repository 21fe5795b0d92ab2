package keys

import (
	"strconv"
	"strings"
)

// SentinelPrefix starts every version sentinel key. Composite keys always
// start with a decimal digit, so the two keyspaces never overlap.
const SentinelPrefix = "NamespaceCacheKey["

// Composite returns the storage key for id under namespace ns at version.
//
//	<len(ns)>:<ns>[<id>][<version>]
//
// The length prefix pins where ns ends and the version is read from the
// tail, so the mapping is injective over (ns, id, version).
func Composite(ns, id string, version uint64) string {
	var b strings.Builder
	b.Grow(len(ns) + len(id) + 28)
	b.WriteString(strconv.Itoa(len(ns)))
	b.WriteByte(':')
	b.WriteString(ns)
	b.WriteByte('[')
	b.WriteString(id)
	b.WriteString("][")
	b.WriteString(strconv.FormatUint(version, 10))
	b.WriteByte(']')
	return b.String()
}

// Sentinel returns the key holding the current version of namespace ns.
func Sentinel(ns string) string {
	return SentinelPrefix + ns + "]"
}

// ParseVersion decodes a stored sentinel value. Zero and non-decimal
// payloads are rejected.
func ParseVersion(b []byte) (uint64, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

// FormatVersion encodes v the way ParseVersion expects it.
func FormatVersion(v uint64) []byte {
	return strconv.AppendUint(nil, v, 10)
}
