// AngelaMos | 2026
// revocation.go

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/examprep/internal/core"
)

// Revocations remembers access tokens withdrawn before they expire. An entry
// lives exactly as long as the token it blocks.
type Revocations interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	Revoked(ctx context.Context, jti string) (bool, error)
}

type redisRevocations struct {
	rdb *core.Redis
	now func() time.Time
}

func NewRedisRevocations(rdb *core.Redis) Revocations {
	return &redisRevocations{rdb: rdb, now: time.Now}
}

func (r *redisRevocations) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	if err := r.rdb.Client.Set(ctx, r.rdb.Key("revoked", jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (r *redisRevocations) Revoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Client.Exists(ctx, r.rdb.Key("revoked", jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}
