package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"novel-forge/backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "novel-forge:conversation:"

// Only the holder of the token may release the lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TurnLocker serializes chat turns per conversation across instances.
type TurnLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
	log    *logger.Logger
}

func NewTurnLocker(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *TurnLocker {
	return &TurnLocker{
		client: client,
		ttl:    ttl,
		retry:  100 * time.Millisecond,
		log:    log,
	}
}

func lockKey(conversationID uint) string {
	return fmt.Sprintf("%s%d:turn", keyPrefix, conversationID)
}

// Lock blocks until the conversation's turn lock is held or ctx is done.
// The returned function releases it and is safe to call more than once.
func (l *TurnLocker) Lock(ctx context.Context, conversationID uint) (func(), error) {
	key := lockKey(conversationID)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire turn lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire turn lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				l.log.LogError(err, "Failed to release turn lock", "key", key)
			}
		})
	}, nil
}
