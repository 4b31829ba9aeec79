package gate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrymomot/authkit/pkg/tenant"
	"github.com/dmitrymomot/authkit/pkg/tokens"
)

// RequireAuthenticated admits any request with a valid access token for
// the resolved tenant.
func RequireAuthenticated(g *Gate) func(http.Handler) http.Handler {
	return middlewareFor(g, Requirement{})
}

// RequireRoles admits callers whose level satisfies the minimum level
// among the named roles in the request tenant's scope.
func RequireRoles(g *Gate, roleNames ...string) func(http.Handler) http.Handler {
	return middlewareFor(g, Requirement{RoleNames: roleNames})
}

// RequireLevel admits callers at or above the given level.
func RequireLevel(g *Gate, minLevel int) func(http.Handler) http.Handler {
	return middlewareFor(g, Requirement{MinLevel: minLevel})
}

func middlewareFor(g *Gate, req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok := tenant.FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusMisdirectedRequest, "missing_tenant_context", nil)
				return
			}

			signed := bearerToken(r)
			if signed == "" {
				writeError(w, http.StatusUnauthorized, "missing_token", nil)
				return
			}

			res, err := g.Authorize(r.Context(), tc, signed, req)
			if err != nil {
				writeDenial(w, err)
				return
			}

			ctx := withResult(r.Context(), res)
			if res.CrossTenant {
				ctx = tenant.WithContext(ctx, tc.WithSuperAdmin())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func writeDenial(w http.ResponseWriter, err error) {
	var levelErr *InsufficientLevelError
	switch {
	case errors.As(err, &levelErr):
		writeError(w, http.StatusForbidden, "insufficient_level", map[string]any{
			"required_level": levelErr.Required,
			"actual_level":   levelErr.Actual,
		})
	case errors.Is(err, tenant.ErrTenantMismatch):
		writeError(w, http.StatusForbidden, "tenant_mismatch", nil)
	case isStoreUnavailable(err):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", nil)
	case errors.Is(err, tokens.ErrTokenExpiredOrRevoked):
		writeError(w, http.StatusUnauthorized, "token_expired_or_revoked", nil)
	default:
		writeError(w, http.StatusUnauthorized, "token_invalid", nil)
	}
}

func writeError(w http.ResponseWriter, status int, code string, extra map[string]any) {
	body := map[string]any{"error": code}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type resultKey struct{}

func withResult(ctx context.Context, res *Result) context.Context {
	return context.WithValue(ctx, resultKey{}, res)
}

// ResultFromContext retrieves the gate decision stored by the
// middleware. Handlers behind RequireAuthenticated and friends can rely
// on it being present.
func ResultFromContext(ctx context.Context) (*Result, bool) {
	res, ok := ctx.Value(resultKey{}).(*Result)
	return res, ok
}
