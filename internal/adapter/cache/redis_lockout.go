package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLockoutStore counts failed logins per account in redis. Counters live
// in a fixed window; once the threshold is reached the account stays locked
// until the window key expires.
type RedisLockoutStore struct {
	client   redis.UniversalClient
	attempts int
	window   time.Duration
}

// NewRedisLockoutStore creates a lockout store with the given threshold and window.
func NewRedisLockoutStore(client redis.UniversalClient, attempts int, window time.Duration) *RedisLockoutStore {
	if attempts <= 0 {
		attempts = 5
	}
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &RedisLockoutStore{client: client, attempts: attempts, window: window}
}

func lockoutKey(key string) string {
	return "lockout:" + key
}

// Locked reports whether the account has exhausted its attempt budget.
func (s *RedisLockoutStore) Locked(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Get(ctx, lockoutKey(key)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lockout get: %w", err)
	}
	return count >= s.attempts, nil
}

// RecordFailure increments the failure counter, starting the window on the
// first failure.
func (s *RedisLockoutStore) RecordFailure(ctx context.Context, key string) error {
	k := lockoutKey(key)
	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("lockout incr: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, k, s.window).Err(); err != nil {
			return fmt.Errorf("lockout expire: %w", err)
		}
	}
	return nil
}

// Clear resets the counter after a successful login.
func (s *RedisLockoutStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, lockoutKey(key)).Err(); err != nil {
		return fmt.Errorf("lockout clear: %w", err)
	}
	return nil
}
