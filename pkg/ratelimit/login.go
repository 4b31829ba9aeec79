package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// maxKeyLength caps storage key size; longer keys are hashed.
const maxKeyLength = 64

// LoginKey builds the throttle key for a credential attempt. Username
// and client IP are combined so one address cannot burn the budget of
// every account, and one account cannot be locked out globally by a
// single attacker address.
func LoginKey(username, ip string) string {
	key := "login:" + strings.ToLower(strings.TrimSpace(username)) + ":" + strings.TrimSpace(ip)
	if len(key) > maxKeyLength {
		sum := sha256.Sum256([]byte(key))
		return "login:" + hex.EncodeToString(sum[:16])
	}
	return key
}

// LoginLimiter throttles credential attempts per username and address.
type LoginLimiter struct {
	limiter *SlidingWindow
}

// NewLoginLimiter builds a login throttle. Typical configuration is a
// small attempt budget over a window of minutes.
func NewLoginLimiter(store Store, attempts int, window time.Duration, opts ...SlidingWindowOption) (*LoginLimiter, error) {
	sw, err := NewSlidingWindow(store, attempts, window, opts...)
	if err != nil {
		return nil, err
	}
	return &LoginLimiter{limiter: sw}, nil
}

// Allow records one credential attempt.
func (l *LoginLimiter) Allow(ctx context.Context, username, ip string) (*Result, error) {
	return l.limiter.Allow(ctx, LoginKey(username, ip))
}

// Reset clears the attempt budget after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, username, ip string) error {
	return l.limiter.Reset(ctx, LoginKey(username, ip))
}
