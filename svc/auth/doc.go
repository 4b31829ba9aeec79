// Package auth orchestrates the operations the API layer consumes:
// credential login, token refresh, logout, and the authorization check.
// The moving parts live in their own packages (pkg/tokens, pkg/gate,
// pkg/accesslevel, pkg/tenant); this service sequences them, owns the
// user store, and maps every failure into the error taxonomy the HTTP
// handlers translate to responses.
//
// Failed logins respond identically whether the username exists or
// not, and a missing account still burns a hash comparison, so timing
// and responses cannot be used to enumerate accounts.
package auth
