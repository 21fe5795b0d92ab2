package filesystem

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"runtime"
)

const (
	// DefaultMaxFilename is the common per-component limit (ext4, NTFS, APFS).
	DefaultMaxFilename = 255
	// WindowsMaxPath is MAX_PATH minus the terminating NUL and drive prefix slack.
	WindowsMaxPath = 258

	// digestMarker prefixes digest-only filenames. Hex output never contains
	// it, so a digest name cannot equal a hex-encoded id.
	digestMarker = "_"
)

// Limits bounds the names MapPath produces.
type Limits struct {
	MaxFilename int // bytes per path component; <= 0 => DefaultMaxFilename
	MaxPath     int // bytes for the full path; 0 => unbounded
}

// DefaultLimits returns the limits of the host platform.
func DefaultLimits() Limits {
	l := Limits{MaxFilename: DefaultMaxFilename}
	if runtime.GOOS == "windows" {
		l.MaxPath = WindowsMaxPath
	}
	return l
}

// Digest returns the hex SHA-256 of id.
func Digest(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// MapPath maps id to a file under root:
//
//	<root>/<digest[:2]>/<hex(id) | "_"+digest><ext>
//
// Short ids keep a reversible hex name; empty or oversized ids fall back to
// the digest. MapPath is pure: same inputs, same path.
func MapPath(root, ext, id string, lim Limits) string {
	digest := Digest(id)
	return filepath.Join(root, digest[:2], filename(len(root), ext, id, digest, lim)+ext)
}

func filename(rootLen int, ext, id, digest string, lim Limits) string {
	maxName := lim.MaxFilename
	if maxName <= 0 {
		maxName = DefaultMaxFilename
	}
	hexLen := hex.EncodedLen(len(id))
	switch {
	case id == "":
	case hexLen+len(ext) > maxName:
	// root + separator + 2-char shard + separator
	case lim.MaxPath > 0 && rootLen+4+hexLen+len(ext) > lim.MaxPath:
	default:
		return hex.EncodeToString([]byte(id))
	}
	return digestMarker + digest
}
