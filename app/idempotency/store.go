package idempotency

import (
	"context"
	"time"
)

// Store is the shared state behind the coordinator: a result cache plus a set-if-absent lock,
// both with per-key expiry. A lock is owned by the token that acquired it; ReleaseLock with any
// other token leaves it in place.
type Store interface {
	GetResult(ctx context.Context, key string) ([]byte, bool, error)
	SetResult(ctx context.Context, key string, value []byte, ttl time.Duration) error
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}
