// Package redis provides the shared redis client and the distributed
// conversation turn lock built on it.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Options configures the client.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient creates a client and verifies the connection.
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}
