package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RoutingMode tells every query-level component whether a tenant's data
// lives in the shared database (rows filtered by tenant id) or in a
// dedicated database (no filter needed, nothing else is reachable).
// For shared tenants omitting the filter is a data leak, so the mode is
// resolved once per request and consulted by everything downstream.
type RoutingMode string

const (
	RoutingShared    RoutingMode = "shared"
	RoutingDedicated RoutingMode = "dedicated"
)

// Valid reports whether the mode is one of the two known values.
func (m RoutingMode) Valid() bool {
	return m == RoutingShared || m == RoutingDedicated
}

// Tenant describes one customer scope and how its data is stored.
type Tenant struct {
	ID        uuid.UUID   `json:"id" yaml:"id"`
	Subdomain string      `json:"subdomain" yaml:"subdomain"`
	Name      string      `json:"name" yaml:"name"`
	Mode      RoutingMode `json:"mode" yaml:"mode"`

	// DatabaseURL is set only for dedicated tenants.
	DatabaseURL string `json:"-" yaml:"database_url"`

	Active    bool      `json:"active" yaml:"active"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// Provider loads tenant records from a data source. Identifiers may be a
// subdomain or a UUID string; implementations decide which they accept.
type Provider interface {
	// GetByIdentifier retrieves a tenant by any unique identifier.
	// Returns ErrTenantNotFound if no tenant matches.
	GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error)
}
