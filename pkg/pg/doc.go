// Package pg bootstraps the PostgreSQL layer of the authentication core:
// pooled connections via pgx/v5, schema migrations via goose/v3, and error
// classification helpers used by the token and role stores.
//
// Two pool constructors exist because tenants are split across storage
// modes: Connect opens the shared database, ConnectDedicated opens a
// per-tenant database with the same pool discipline. Which one a request
// uses is decided by the tenant context resolver, never by the stores.
//
// IsDuplicateKeyError deserves a note: refresh-token rotation depends on
// the unique index on token_hash to turn "insert or detect duplicate"
// into one atomic statement, so this helper is load-bearing for the
// rotation race contract rather than a mere convenience.
package pg
