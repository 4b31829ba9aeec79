package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when a tenant cannot be found.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrNoTenantContext is returned when the inbound host resolves to no
	// tenant and no caller-supplied override exists.
	ErrNoTenantContext = errors.New("no tenant context for request")

	// ErrInvalidIdentifier is returned when the identifier format is invalid.
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")

	// ErrInactiveTenant is returned when the resolved tenant is disabled.
	ErrInactiveTenant = errors.New("tenant is inactive")

	// ErrTenantMismatch is returned when a non-superadmin token's tenant id
	// differs from the tenant resolved for the request.
	ErrTenantMismatch = errors.New("token tenant does not match request tenant")

	// ErrStoreUnavailable is returned when the tenant store cannot answer.
	ErrStoreUnavailable = errors.New("tenant store unavailable")
)
