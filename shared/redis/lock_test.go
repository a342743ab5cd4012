package redis

import (
	"context"
	"testing"
	"time"

	"novel-forge/backend/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestLockKey(t *testing.T) {
	assert.Equal(t, "novel-forge:conversation:42:turn", lockKey(42))
}

func TestLockFailsWhenRedisUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	unlock, err := NewTurnLocker(client, time.Minute, logger.Discard()).Lock(ctx, 1)
	assert.Error(t, err)
	assert.Nil(t, unlock)
}
