package tenant

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Directory is a file- or code-seeded Provider. It serves bootstrap and
// test setups where the tenant roster is small and static; production
// deployments use the Postgres provider.
type Directory struct {
	mu           sync.RWMutex
	byIdentifier map[string]*Tenant
}

// NewDirectory builds a directory from a fixed tenant list. Tenants are
// addressable by subdomain and by UUID string.
func NewDirectory(tenants []Tenant) (*Directory, error) {
	d := &Directory{byIdentifier: make(map[string]*Tenant, len(tenants)*2)}
	for i := range tenants {
		t := tenants[i]
		if !t.Mode.Valid() {
			return nil, fmt.Errorf("tenant %q: unknown routing mode %q", t.Subdomain, t.Mode)
		}
		if t.Mode == RoutingDedicated && t.DatabaseURL == "" {
			return nil, fmt.Errorf("tenant %q: dedicated tenant requires database_url", t.Subdomain)
		}
		if t.Subdomain != "" {
			d.byIdentifier[strings.ToLower(t.Subdomain)] = &t
		}
		d.byIdentifier[t.ID.String()] = &t
	}
	return d, nil
}

type directoryFile struct {
	Tenants []Tenant `yaml:"tenants"`
}

// LoadDirectory reads a YAML tenant roster:
//
//	tenants:
//	  - id: 7b8e1f2a-...
//	    subdomain: acme
//	    mode: shared
//	    active: true
//	  - id: 9c3d4e5f-...
//	    subdomain: globex
//	    mode: dedicated
//	    database_url: postgres://...
//	    active: true
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tenant: read directory file: %w", err)
	}

	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("tenant: parse directory file: %w", err)
	}

	return NewDirectory(file.Tenants)
}

// GetByIdentifier implements Provider.
func (d *Directory) GetByIdentifier(_ context.Context, identifier string) (*Tenant, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return nil, ErrInvalidIdentifier
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	t, ok := d.byIdentifier[identifier]
	if !ok {
		return nil, ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}
