package tokens

import "errors"

var (
	// ErrMissingSecret is returned when a signing secret is not configured.
	ErrMissingSecret = errors.New("tokens: missing signing secret")

	// ErrSameSecret is returned when access and refresh secrets are equal.
	// Distinct secrets keep a leaked key from forging the other token class.
	ErrSameSecret = errors.New("tokens: access and refresh secrets must differ")

	// ErrTokenInvalid is returned for malformed tokens, bad signatures, and
	// type-field mismatches.
	ErrTokenInvalid = errors.New("tokens: invalid token")

	// ErrTokenExpiredOrRevoked is returned when a token's signature is fine
	// but the token is past expiry, revoked, or absent from the store.
	ErrTokenExpiredOrRevoked = errors.New("tokens: token expired or revoked")

	// ErrReuseDetected is returned when a login presents a refresh-token
	// value that is already stored and active. Every session of the user is
	// revoked before this error surfaces.
	ErrReuseDetected = errors.New("tokens: refresh token reuse detected")

	// ErrStoreUnavailable is returned when the token store cannot answer.
	ErrStoreUnavailable = errors.New("tokens: store unavailable")
)
