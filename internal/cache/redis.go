// Package cache provides a Redis read-through cache for site thresholds.
//
// Thresholds are read on every reading submission but change rarely, which
// makes them the one lookup worth caching. Latest readings are never cached;
// staleness is computed from them.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options locates the Redis server.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a client and verifies it with a ping. The client is closed
// again when the ping fails.
func Connect(ctx context.Context, opts Options, logger *slog.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("failed to ping redis", "addr", opts.Addr, "error", err)
		if cerr := rdb.Close(); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	logger.Info("connected to redis", "addr", opts.Addr)
	return rdb, nil
}
