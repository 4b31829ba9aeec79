package metrics

import "time"

// Decision outcome labels.
const (
	OutcomeGranted          = "granted"
	OutcomeDeniedToken      = "denied_token"
	OutcomeDeniedTenant     = "denied_tenant"
	OutcomeDeniedLevel      = "denied_level"
	OutcomeStoreUnavailable = "store_unavailable"
)

// Login result labels.
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginInactiveUser       = "inactive_user"
	LoginRateLimited        = "rate_limited"
	LoginReuseDetected      = "reuse_detected"
	LoginStoreUnavailable   = "store_unavailable"
)

// Collector receives authentication and authorization signals. One
// instance is built at process startup and injected into every
// component; nothing in the codebase touches a package-level registry.
type Collector interface {
	// AuthDecision counts one authorization gate outcome.
	AuthDecision(outcome string)

	// LoginAttempt counts one login by result.
	LoginAttempt(result string)

	// TokenRotation counts one refresh rotation, successful or not.
	TokenRotation(success bool)

	// ReuseDetected counts one refresh token replay detection.
	ReuseDetected()

	// CrossTenantAccess counts one superadmin access outside the token's
	// own tenant.
	CrossTenantAccess()

	// StoreLatency observes one backing store round trip.
	StoreLatency(operation string, d time.Duration)
}

// Noop discards every signal. It is the default wherever a Collector is
// optional, so call sites never nil-check.
type Noop struct{}

func (Noop) AuthDecision(string)                {}
func (Noop) LoginAttempt(string)                {}
func (Noop) TokenRotation(bool)                 {}
func (Noop) ReuseDetected()                     {}
func (Noop) CrossTenantAccess()                 {}
func (Noop) StoreLatency(string, time.Duration) {}

var _ Collector = Noop{}
