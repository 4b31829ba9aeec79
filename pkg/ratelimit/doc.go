// Package ratelimit throttles login attempts with a sliding window over
// per-attempt timestamps. The window state lives in a pluggable store:
// in-process memory for single-instance deployments and tests, Redis
// for anything horizontally scaled.
package ratelimit
