package tenant

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/authkit/pkg/pg"
)

// PGProvider resolves tenants from the shared database. The tenants
// table always lives in the shared database regardless of where each
// tenant's own data is routed.
type PGProvider struct {
	pool *pgxpool.Pool
}

func NewPGProvider(pool *pgxpool.Pool) *PGProvider {
	if pool == nil {
		panic("tenant: pool cannot be nil")
	}
	return &PGProvider{pool: pool}
}

// GetByIdentifier implements Provider, accepting a subdomain or a UUID.
func (p *PGProvider) GetByIdentifier(ctx context.Context, identifier string) (*Tenant, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return nil, ErrInvalidIdentifier
	}

	const query = `
		SELECT id, subdomain, name, routing_mode, COALESCE(database_url, ''), active, created_at
		FROM tenants
		WHERE subdomain = $1 OR id = $2`

	// A non-UUID identifier still needs a value for the id predicate;
	// the zero UUID matches no row.
	id, err := uuid.Parse(identifier)
	if err != nil {
		id = uuid.Nil
	}

	var t Tenant
	row := p.pool.QueryRow(ctx, query, identifier, id)
	if err := row.Scan(&t.ID, &t.Subdomain, &t.Name, &t.Mode, &t.DatabaseURL, &t.Active, &t.CreatedAt); err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrTenantNotFound
		}
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return &t, nil
}
