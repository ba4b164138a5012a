// AngelaMos | 2026
// redis_test.go

package core

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/examprep/internal/config"
)

func TestRedisKey(t *testing.T) {
	tests := []struct {
		prefix string
		parts  []string
		want   string
	}{
		{"examprep", []string{"revoked", "jti-1"}, "examprep:revoked:jti-1"},
		{"examprep:", []string{"otp", "issue", "a@b.com"}, "examprep:otp:issue:a@b.com"},
		{"", []string{"revoked", "jti-1"}, "revoked:jti-1"},
	}

	for _, tt := range tests {
		r := NewRedisFromClient(nil, tt.prefix)
		assert.Equal(t, tt.want, r.Key(tt.parts...))
	}
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), config.RedisConfig{URL: "not-a-url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis url")
}

func TestRedisPing_Unreachable(t *testing.T) {
	r := NewRedisFromClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	}), "examprep")
	defer r.Close()

	assert.ErrorContains(t, r.Ping(context.Background()), "ping redis")
}

func TestRedisClose_NilClient(t *testing.T) {
	assert.NoError(t, (&Redis{}).Close())
}
