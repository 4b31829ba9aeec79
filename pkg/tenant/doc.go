// Package tenant resolves which customer scope a request belongs to and
// how that scope's data is stored.
//
// The platform mixes two storage modes: most tenants share one database
// and rely on tenant-id filters, while some run on dedicated databases
// where no filter is needed. The resolved Context carries the routing
// mode, and every store in the system consults it before deciding
// whether to apply a tenant predicate. That makes this package the
// single source of truth for data isolation, not just an input to the
// authorization gate.
//
// ValidateTokenTenant implements the cross-tenant rule: a regular token
// is pinned to its tenant, a superadmin token may cross tenants but
// every crossing must be recorded by the caller.
package tenant
