package tenant

import (
	"errors"
	"net/http"
)

// Middleware resolves the tenant for every inbound request from the Host
// header and stores the resulting context. When the host carries no
// tenant, the configured override header is consulted; the override is
// resolved like any identifier, and whether the caller may act on that
// tenant is decided later by token validation, not here.
//
// Requests with no resolvable tenant are rejected with 421, matching the
// "misdirected request" semantics of a host the deployment does not serve.
func Middleware(resolver *Resolver, overrideHeader string) func(http.Handler) http.Handler {
	if overrideHeader == "" {
		overrideHeader = "X-Tenant-ID"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, err := resolver.Resolve(r.Context(), r.Host)
			if errors.Is(err, ErrNoTenantContext) {
				if override := r.Header.Get(overrideHeader); override != "" {
					tc, err = resolver.Resolve(r.Context(), override)
				}
			}
			if err != nil {
				status := http.StatusMisdirectedRequest
				if errors.Is(err, ErrStoreUnavailable) {
					status = http.StatusServiceUnavailable
				}
				http.Error(w, http.StatusText(status), status)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
		})
	}
}
