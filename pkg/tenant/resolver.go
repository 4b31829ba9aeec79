package tenant

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/logger"
)

// Config drives host-based tenant resolution.
type Config struct {
	// BaseDomain is stripped before extracting the subdomain, e.g. ".example.com".
	BaseDomain string `env:"TENANT_BASE_DOMAIN"`
	// OverrideHeader names the header a superadmin may use to pick a tenant
	// when the host carries none.
	OverrideHeader string `env:"TENANT_OVERRIDE_HEADER" envDefault:"X-Tenant-ID"`
	// DirectoryPath optionally points at a YAML tenant directory.
	DirectoryPath string `env:"TENANT_DIRECTORY_PATH"`
}

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// Resolver maps an inbound host (or a bare subdomain) to the tenant it
// belongs to. It is the single source of truth for routing mode: every
// store in the system asks the resolved Context whether to apply a
// tenant filter.
type Resolver struct {
	provider   Provider
	baseDomain string
	log        *slog.Logger
}

type ResolverOption func(*Resolver)

func WithBaseDomain(domain string) ResolverOption {
	return func(r *Resolver) { r.baseDomain = domain }
}

func WithLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

func NewResolver(provider Provider, opts ...ResolverOption) *Resolver {
	if provider == nil {
		panic("tenant: provider cannot be nil")
	}
	r := &Resolver{
		provider: provider,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps a host or subdomain to a tenant context. Unresolvable
// hosts fail with ErrNoTenantContext; inactive tenants are rejected.
func (r *Resolver) Resolve(ctx context.Context, hostOrSubdomain string) (Context, error) {
	identifier := r.extractIdentifier(hostOrSubdomain)
	if identifier == "" {
		return Context{}, ErrNoTenantContext
	}

	t, err := r.provider.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) || errors.Is(err, ErrInvalidIdentifier) {
			return Context{}, errors.Join(ErrNoTenantContext, err)
		}
		r.log.ErrorContext(ctx, "tenant lookup failed", logger.Error(err), logger.Component("tenant"))
		return Context{}, errors.Join(ErrStoreUnavailable, err)
	}
	if !t.Active {
		return Context{}, ErrInactiveTenant
	}

	return Context{TenantID: t.ID, Mode: t.Mode}, nil
}

// extractIdentifier turns "acme.example.com:443" into "acme". A value
// that is already a bare identifier (no dots after base-domain stripping)
// passes through, so callers may hand in a subdomain or a UUID directly.
func (r *Resolver) extractIdentifier(hostOrSubdomain string) string {
	host := strings.ToLower(strings.TrimSpace(hostOrSubdomain))
	if host == "" {
		return ""
	}

	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}

	if _, err := uuid.Parse(host); err == nil {
		return host
	}

	if r.baseDomain != "" && strings.HasSuffix(host, r.baseDomain) && len(host) > len(r.baseDomain) {
		host = host[:len(host)-len(r.baseDomain)]
	}

	parts := strings.Split(host, ".")
	sub := parts[0]
	if sub == "www" {
		if len(parts) < 2 {
			return ""
		}
		sub = parts[1]
	}

	// A full host without a configured base domain needs at least
	// subdomain.domain.tld; a bare identifier has no dots at all.
	if r.baseDomain == "" && len(parts) > 1 && len(parts) < 3 {
		return ""
	}

	if !subdomainPattern.MatchString(sub) {
		return ""
	}
	return sub
}

// Decision is the outcome of the token-tenant check.
type Decision int

const (
	// Deny means the token must not act on the resolved tenant.
	Deny Decision = iota
	// Allow means token and request tenants agree.
	Allow
	// AllowCrossTenant means a superadmin is crossing into a tenant other
	// than its own. Permitted, but the caller must record the access.
	AllowCrossTenant
)

// ValidateTokenTenant enforces the cross-tenant leak rule. A regular
// user's token tenant must equal the resolved tenant. A superadmin is
// always allowed; when their token tenant differs from the resolved one
// the caller gets AllowCrossTenant and must emit a tenant-access audit
// event.
func ValidateTokenTenant(tokenTenantID *uuid.UUID, resolvedTenantID uuid.UUID, isSuperAdmin bool) Decision {
	if isSuperAdmin {
		if tokenTenantID == nil || *tokenTenantID != resolvedTenantID {
			return AllowCrossTenant
		}
		return Allow
	}

	if tokenTenantID == nil || *tokenTenantID != resolvedTenantID {
		return Deny
	}
	return Allow
}
