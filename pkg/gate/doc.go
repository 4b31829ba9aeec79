// Package gate is the authorization decision point. It validates the
// presented access token, checks that the token's tenant agrees with
// the tenant the request resolved to, and compares the caller's
// hierarchical access level against what the operation requires.
//
// Routes declare their requirement once, as a role name set or a level
// floor, and mount the corresponding middleware:
//
//	r.With(gate.RequireRoles(g, "Administrador")).Get("/admin", handler)
//	r.With(gate.RequireLevel(g, 4)).Delete("/users/{id}", handler)
//
// Denials carry both the required and the caller's level, never role
// names. Store failures deny with a retryable error rather than
// degrading into a grant.
package gate
