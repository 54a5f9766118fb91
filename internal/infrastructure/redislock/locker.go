// Package redislock provides a Redis-backed project.Locker so that writers running in
// different server and worker processes serialize on the same entity.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// Default lock settings.
const (
	DefaultExpiry     = 30 * time.Second
	DefaultRetryDelay = 50 * time.Millisecond
	DefaultTries      = 200
	DefaultKeyPrefix  = "atelier:lock:"
)

// ErrLockNotAcquired is returned when the lock could not be taken before ctx ended
// or the retries ran out.
var ErrLockNotAcquired = errors.New("lock not acquired")

// Config tunes lock behaviour. Zero values get the defaults.
type Config struct {
	// Expiry bounds how long a crashed holder keeps the lock.
	Expiry     time.Duration
	RetryDelay time.Duration
	Tries      int
	KeyPrefix  string
}

// Locker implements project.Locker on top of redsync.
type Locker struct {
	rs     *redsync.Redsync
	config Config
}

// New creates a locker over an existing go-redis client.
func New(client redis.UniversalClient, config Config) *Locker {
	if config.Expiry <= 0 {
		config.Expiry = DefaultExpiry
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.Tries <= 0 {
		config.Tries = DefaultTries
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}

	return &Locker{
		rs:     redsync.New(goredis.NewPool(client)),
		config: config,
	}
}

// Acquire blocks until the lock for key is held, retries run out, or ctx is done.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(
		l.config.KeyPrefix+key,
		redsync.WithExpiry(l.config.Expiry),
		redsync.WithTries(l.config.Tries),
		redsync.WithRetryDelay(l.config.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLockNotAcquired, key, err)
	}

	return func() {
		// Release must succeed even when the caller's context is already done.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ok, err := mutex.UnlockContext(unlockCtx); !ok || err != nil {
			slog.WarnContext(ctx, "Failed to release lock", "key", key, "unlock_ok", ok, "error", err)
		}
	}, nil
}
