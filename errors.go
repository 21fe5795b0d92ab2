package nscache

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected means the provider refused a write (ok=false), typically
	// under memory pressure or admission control.
	ErrRejected = errors.New("nscache: write rejected by provider")
	// ErrUnsupported means the provider lacks the optional capability.
	ErrUnsupported = errors.New("nscache: operation not supported by provider")
)

// DeleteAllError reports a namespace invalidation that did not happen.
// The cache state is unchanged when it is returned.
type DeleteAllError struct {
	Namespace string
	Version   uint64 // version that stayed current; 0 if it could not be resolved
	Err       error
}

func (e *DeleteAllError) Error() string {
	if e.Version == 0 {
		return fmt.Sprintf("delete all %q: resolve version: %v", e.Namespace, e.Err)
	}
	return fmt.Sprintf("delete all %q: bump version %d: %v", e.Namespace, e.Version, e.Err)
}

func (e *DeleteAllError) Unwrap() error { return e.Err }
