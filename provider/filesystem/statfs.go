//go:build linux || darwin || freebsd

package filesystem

import "golang.org/x/sys/unix"

// freeBytes returns the bytes available to unprivileged users on the
// filesystem holding dir, or 0 when it cannot be determined.
func freeBytes(dir string) uint64 {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0
	}
	return uint64(st.Bavail) * uint64(st.Bsize)
}
