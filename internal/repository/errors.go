package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist within the tenant.
	ErrNotFound = errors.New("repository: not found")
	// ErrEmailTaken indicates the tenant-scoped email uniqueness constraint was violated.
	ErrEmailTaken = errors.New("repository: email already taken")
	// ErrUsernameTaken indicates the tenant-scoped username uniqueness constraint was violated.
	ErrUsernameTaken = errors.New("repository: username already taken")
	// ErrVersionConflict indicates the aggregate was modified concurrently and the
	// optimistic version check failed; the caller should reload and retry.
	ErrVersionConflict = errors.New("repository: version conflict")
)
