package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Window is the fixed rate-limit window size.
	Window = 60 * time.Second
	// counterTTL keeps a window's counter alive for twice the window so
	// stale buckets expire on their own even with clock skew.
	counterTTL = 2 * Window

	keyPrefix = "ratelimit:"
)

// Limiter counts requests per tenant in fixed one-minute windows backed by
// Redis. It only counts; callers compare the returned count against the
// tenant's configured limit. The increment is a single atomic INCR so
// concurrent workers across processes never lose counts.
type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

func windowKey(tenantID string, now time.Time) string {
	bucket := now.Unix() / int64(Window.Seconds())
	return fmt.Sprintf("%s%s:%d", keyPrefix, tenantID, bucket)
}

// Check increments the tenant's counter for the current window and returns
// the post-increment count. On store failure the error is returned; callers
// are expected to fail closed.
func (l *Limiter) Check(ctx context.Context, tenantID string) (int64, error) {
	key := windowKey(tenantID, time.Now())
	cnt, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("rate limit incr: %w", err)
	}
	if cnt == 1 {
		// first hit in this window owns setting the expiry
		if err := l.client.Expire(ctx, key, counterTTL).Err(); err != nil {
			return cnt, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return cnt, nil
}

// Reset deletes every window counter belonging to the tenant.
func (l *Limiter) Reset(ctx context.Context, tenantID string) error {
	pattern := keyPrefix + tenantID + ":*"
	iter := l.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := l.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("rate limit reset del: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("rate limit reset scan: %w", err)
	}
	return nil
}
