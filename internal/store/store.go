// Package store provides the namespaced key/value store backing all
// time-limited auth state: OTP codes, resend counters, lockout flags,
// registration and reset tokens, and the JWT blacklist. Production uses
// Redis; an in-memory implementation covers dev mode and tests.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key is absent or expired.
var ErrNotFound = errors.New("key not found")

// Ephemeral is the minimal contract the auth managers need. Incr must be
// atomic with respect to concurrent callers; the other operations may race
// benignly (two verifications reading the same OTP before either deletes it
// is tolerated, not prevented).
type Ephemeral interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
	// Incr increments the counter at key and, on first increment, starts
	// its expiry window. Returns the new count.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
}
