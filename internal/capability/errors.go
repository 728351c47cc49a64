package capability

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means no workspace has been designated.
	ErrNotConfigured = errors.New("workspace is not configured")
	// ErrStale means a token no longer refers to its original path. The
	// token has been discarded and the caller must grant again.
	ErrStale = errors.New("capability is stale")
	// ErrNoCapability means no token is stored for the file.
	ErrNoCapability = errors.New("no capability stored for file")
	// ErrOutsideWorkspace means a file grant was requested for a path that
	// the workspace root does not contain.
	ErrOutsideWorkspace = errors.New("path is outside the workspace")
)

// CapabilityError reports a token that could not be created or resolved.
type CapabilityError struct {
	Op   string
	Path string
	Err  error
}

func (e *CapabilityError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("capability %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("capability %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}
