package auth

import "errors"

var (
	// ErrInvalidCredentials covers wrong username and wrong password
	// identically, so responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInactiveUser means the credentials were right but the account
	// is disabled.
	ErrInactiveUser = errors.New("auth: user is inactive")

	// ErrRateLimited means the attempt budget for this username and
	// address is spent.
	ErrRateLimited = errors.New("auth: too many login attempts")

	// ErrUserNotFound is internal to storage implementations; the login
	// flow converts it to ErrInvalidCredentials.
	ErrUserNotFound = errors.New("auth: user not found")

	// ErrStoreUnavailable is transient; callers may retry with backoff.
	ErrStoreUnavailable = errors.New("auth: store unavailable")
)
