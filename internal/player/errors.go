package player

import "errors"

var (
	// ErrMountPointRequired is returned from New when no mount point is configured
	ErrMountPointRequired = errors.New("option 'MountPoint' is required")
	// ErrInvalidURL is returned from PlayURL when the selected backend cannot play the URL
	ErrInvalidURL = errors.New("invalid URL")
	// ErrBackendDisabled is returned from PlayURL when the URL classifies to a backend that was not constructed
	ErrBackendDisabled = errors.New("backend disabled")
	// ErrReadinessTimeout is published when a backend's external dependency never finished initialising
	ErrReadinessTimeout = errors.New("backend did not become ready in time")
	// ErrNotImplemented is returned by backends that embed Unimplemented and do not override an operation
	ErrNotImplemented = errors.New("not implemented")
	// ErrClosed is returned by operations on an orchestrator that has been closed
	ErrClosed = errors.New("player closed")
)
