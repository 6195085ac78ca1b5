package storage

import "errors"

// Sentinel error kinds. Backends wrap one of these with the SDK error text
// (formatted with %v, never %w) so SDK types do not leak past the backend.
var (
	ErrNotFound           = errors.New("storage: not found")
	ErrBucketExists       = errors.New("storage: bucket already exists")
	ErrObjectLocked       = errors.New("storage: object locked by retention")
	ErrLockingUnsupported = errors.New("storage: bucket has no object lock support")
	ErrAccessDenied       = errors.New("storage: access denied")
	ErrInvalidRequest     = errors.New("storage: invalid request")
	ErrUnavailable        = errors.New("storage: store unavailable")
)
