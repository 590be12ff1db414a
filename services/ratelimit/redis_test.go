package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/Kingsman71/Binary-Learning/core"
)

func TestNewRedisClient_noAddress(t *testing.T) {
	client, err := NewRedisClient(context.Background(), core.RedisConfig{})
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestRedisLimiter_Allow_disabled(t *testing.T) {
	ctx := context.Background()

	var nilLimiter *RedisLimiter
	assert.Nil(t, NewRedisLimiter(nil, 5, time.Minute))

	tests := []struct {
		name    string
		limiter Limiter
		key     string
	}{
		{name: "nil limiter", limiter: nilLimiter, key: "uid-1"},
		{name: "no key", limiter: NewRedisLimiter(redis.NewClient(&redis.Options{Addr: "localhost:0"}), 5, time.Minute)},
		{name: "no limit", limiter: NewRedisLimiter(redis.NewClient(&redis.Options{Addr: "localhost:0"}), 0, time.Minute), key: "uid-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, err := tt.limiter.Allow(ctx, tt.key)
			assert.NoError(t, err)
			assert.True(t, allowed)
		})
	}
}
