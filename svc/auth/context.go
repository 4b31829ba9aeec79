package auth

import "context"

type userContextKey struct{}

// SetUserToContext stores the authenticated caller for downstream
// handlers in the middleware chain.
func SetUserToContext(ctx context.Context, uc UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, uc)
}

// GetUserFromContext retrieves the authenticated caller. The second
// return is false when the request never passed authorization.
func GetUserFromContext(ctx context.Context) (UserContext, bool) {
	uc, ok := ctx.Value(userContextKey{}).(UserContext)
	return uc, ok
}
