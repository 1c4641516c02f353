package redisad

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"pricedrop/internal/adapters/observability"
)

// Quota is a fixed-window request counter.
type Quota struct{ c *redis.Client }

func New(addr, pass string, db int) *Quota {
	return &Quota{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

// NewWithClient wraps an existing client (tests, shared pools).
func NewWithClient(c *redis.Client) *Quota { return &Quota{c: c} }

// Allow counts one request against key for the current window and reports
// whether the count is still within limit. limit <= 0 disables the check.
func (q *Quota) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	k := "quota:" + key + ":" + time.Now().UTC().Truncate(window).Format("20060102T1504")

	pipe := q.c.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.ObserveQuota("error")
		return false, err
	}
	if incr.Val() > int64(limit) {
		observability.ObserveQuota("deny")
		return false, nil
	}
	observability.ObserveQuota("allow")
	return true, nil
}

func (q *Quota) Ping(ctx context.Context) error { return q.c.Ping(ctx).Err() }

func (q *Quota) Close() error { return q.c.Close() }
