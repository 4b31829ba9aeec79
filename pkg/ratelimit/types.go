package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long to wait before the next attempt may be
// allowed. Zero when the attempt was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Store tracks attempt timestamps per key within a sliding window.
// RecordIfAllowed must be atomic: two concurrent calls at the limit
// boundary must not both record.
type Store interface {
	// RecordIfAllowed records one attempt at now if fewer than limit
	// attempts exist inside the window. Returns whether the attempt was
	// recorded and the attempt count after the call.
	RecordIfAllowed(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (allowed bool, count int64, err error)

	// Reset drops all recorded attempts for the key.
	Reset(ctx context.Context, key string) error
}
