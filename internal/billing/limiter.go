package billing

import (
	"context"
	"time"

	"callcredits-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// ConcurrencyLimiter caps a user's simultaneously active calls.
type ConcurrencyLimiter interface {
	// Acquire returns false when the user is at their cap.
	Acquire(ctx context.Context, userID string) (bool, error)
	Release(ctx context.Context, userID string) error
}

// NoopLimiter disables the cap. Used when MAX_CONCURRENT_CALLS is 0 and
// in tests that are not about limiting.
type NoopLimiter struct{}

func (NoopLimiter) Acquire(ctx context.Context, userID string) (bool, error) { return true, nil }
func (NoopLimiter) Release(ctx context.Context, userID string) error         { return nil }

// RedisLimiter enforces the cap across API instances with an atomic
// Lua-scripted counter. The TTL bounds slot leakage on process crash.
type RedisLimiter struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limit int, ttl time.Duration) *RedisLimiter {
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	return &RedisLimiter{rdb: rdb, limit: limit, ttl: ttl}
}

func (l *RedisLimiter) key(userID string) string {
	return "calls:active:" + userID
}

func (l *RedisLimiter) Acquire(ctx context.Context, userID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, l.rdb, l.key(userID), l.limit, l.ttl)
}

func (l *RedisLimiter) Release(ctx context.Context, userID string) error {
	return utils.ReleaseConcurrencyCap(ctx, l.rdb, l.key(userID))
}
