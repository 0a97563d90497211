package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginFailurePrefix = "login_failures:"

// LoginLimiter counts failed logins per email in a fixed window.
// Key format: login_failures:<lowercased email>
type LoginLimiter struct {
	client      *redis.Client
	maxFailures int64
	window      time.Duration
}

// NewLoginLimiter creates a LoginLimiter that blocks an email after
// maxFailures failures until window has elapsed since the first one.
func NewLoginLimiter(client *redis.Client, maxFailures int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{client: client, maxFailures: int64(maxFailures), window: window}
}

// Allow reports whether another attempt for email may proceed.
func (l *LoginLimiter) Allow(ctx context.Context, email string) (bool, error) {
	n, err := l.client.Get(ctx, l.key(email)).Int64()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("login throttle check: %w", err)
	}
	return n < l.maxFailures, nil
}

// RecordFailure increments the failure counter. The window starts with the
// first failure and is not extended by later ones. INCR and EXPIRE NX run in
// one MULTI/EXEC so a counter never outlives its window.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) error {
	key := l.key(email)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("login throttle record: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	if err := l.client.Del(ctx, l.key(email)).Err(); err != nil {
		return fmt.Errorf("login throttle reset: %w", err)
	}
	return nil
}

func (l *LoginLimiter) key(email string) string {
	return loginFailurePrefix + strings.ToLower(strings.TrimSpace(email))
}
