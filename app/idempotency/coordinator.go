package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultLockTTL   = 24 * time.Hour
	DefaultResultTTL = 24 * time.Hour

	lockPrefix   = "lock:payment:"
	resultPrefix = "idempotency:payment:"
)

type Outcome int

const (
	Proceed Outcome = iota + 1
	Cached
	Conflict
)

func (o Outcome) String() string {
	switch o {
	case Proceed:
		return "proceed"
	case Cached:
		return "cached"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Decision is the result of Begin. Token is set on Proceed and must be handed back to Complete
// or Abort.
type Decision struct {
	Outcome  Outcome
	Response []byte
	Token    string
}

type Config struct {
	LockTTL   time.Duration
	ResultTTL time.Duration
}

// Coordinator merges the result cache and the lock into a run-once protocol. Keys are scoped
// by tenant so two tenants may reuse the same idempotency key.
type Coordinator struct {
	store     Store
	lockTTL   time.Duration
	resultTTL time.Duration
	logger    logrus.FieldLogger
}

func NewCoordinator(store Store, cfg Config, logger logrus.FieldLogger) *Coordinator {
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	resultTTL := cfg.ResultTTL
	if resultTTL <= 0 {
		resultTTL = DefaultResultTTL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Coordinator{
		store:     store,
		lockTTL:   lockTTL,
		resultTTL: resultTTL,
		logger:    logger,
	}
}

// Begin returns the cached terminal response when one exists, even if a duplicate still holds
// the lock. Otherwise it tries to take the lock.
func (c *Coordinator) Begin(ctx context.Context, scope, key string) (Decision, error) {
	cached, ok, err := c.store.GetResult(ctx, resultKey(scope, key))
	if err != nil {
		return Decision{}, fmt.Errorf("read idempotency result: %w", err)
	}
	if ok {
		c.logger.WithField("scope", scope).WithField("idempotency_key", key).Debug("idempotency cache hit")
		return Decision{Outcome: Cached, Response: cached}, nil
	}

	token := uuid.NewString()
	acquired, err := c.store.AcquireLock(ctx, lockKey(scope, key), token, c.lockTTL)
	if err != nil {
		return Decision{}, fmt.Errorf("acquire idempotency lock: %w", err)
	}
	if !acquired {
		return Decision{Outcome: Conflict}, nil
	}

	return Decision{Outcome: Proceed, Token: token}, nil
}

// Complete caches response under its own TTL and releases the lock. The lock is released even
// when the cache write fails.
func (c *Coordinator) Complete(ctx context.Context, scope, key, token string, response []byte) error {
	setErr := c.store.SetResult(ctx, resultKey(scope, key), response, c.resultTTL)
	if setErr != nil {
		setErr = fmt.Errorf("write idempotency result: %w", setErr)
	}
	releaseErr := c.store.ReleaseLock(ctx, lockKey(scope, key), token)
	if releaseErr != nil {
		releaseErr = fmt.Errorf("release idempotency lock: %w", releaseErr)
	}
	return errors.Join(setErr, releaseErr)
}

// Abort releases the lock without caching so the key can be retried from scratch.
func (c *Coordinator) Abort(ctx context.Context, scope, key, token string) error {
	if err := c.store.ReleaseLock(ctx, lockKey(scope, key), token); err != nil {
		return fmt.Errorf("release idempotency lock: %w", err)
	}
	return nil
}

func lockKey(scope, key string) string {
	return lockPrefix + scope + ":" + key
}

func resultKey(scope, key string) string {
	return resultPrefix + scope + ":" + key
}
