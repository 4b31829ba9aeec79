package accesslevel

import "errors"

var (
	// ErrInvalidRole is returned when a role fails write-time validation.
	ErrInvalidRole = errors.New("accesslevel: invalid role")

	// ErrSystemRoleTenant is returned when a system-coded role is pinned to
	// a tenant other than the designated system tenant.
	ErrSystemRoleTenant = errors.New("accesslevel: system role must belong to the system tenant")

	// ErrSystemRoleLevel is returned when a system-coded role carries a
	// level below the system band.
	ErrSystemRoleLevel = errors.New("accesslevel: system role level too low")

	// ErrStoreUnavailable is returned when the backing store cannot answer.
	// It is retryable; level resolution never degrades to a default grant.
	ErrStoreUnavailable = errors.New("accesslevel: role store unavailable")
)
