// AngelaMos | 2026
// limiter.go

package otp

import (
	"context"
	"fmt"

	redis_rate "github.com/go-redis/redis_rate/v10"

	"github.com/carterperez-dev/examprep/internal/config"
	"github.com/carterperez-dev/examprep/internal/core"
)

// IssueLimiter caps how many codes a single email can request per window.
type IssueLimiter interface {
	Allow(ctx context.Context, email string) (bool, error)
}

type RedisIssueLimiter struct {
	rdb     *core.Redis
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

func NewRedisIssueLimiter(rdb *core.Redis, cfg config.OTPConfig) *RedisIssueLimiter {
	return &RedisIssueLimiter{
		rdb:     rdb,
		limiter: redis_rate.NewLimiter(rdb.Client),
		limit: redis_rate.Limit{
			Rate:   cfg.IssueLimit,
			Burst:  cfg.IssueLimit,
			Period: cfg.IssueWindow,
		},
	}
}

func (l *RedisIssueLimiter) Allow(ctx context.Context, email string) (bool, error) {
	res, err := l.limiter.Allow(ctx, l.rdb.Key("otp", "issue", email), l.limit)
	if err != nil {
		return false, fmt.Errorf("otp issue limiter: %w", err)
	}
	return res.Allowed > 0, nil
}
