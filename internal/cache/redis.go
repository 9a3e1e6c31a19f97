// Package cache keeps short-lived server state: chat actions awaiting the user's
// confirmation. Redis is used when configured, process memory otherwise.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Connect connects to redis and returns the client once it answers a ping.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}
