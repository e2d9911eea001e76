package redisbus

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Open creates and verifies a Redis client from REDIS_URL, mirroring
// internal/infra/db.Open's DSN-from-env and ping-on-startup convention.
func Open() *redis.Client {
	dsn := os.Getenv("REDIS_URL")
	if dsn == "" {
		log.Fatal("REDIS_URL not set")
	}

	opts, err := redis.ParseURL(dsn)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to ping redis: %v", err)
	}

	slog.Info("redis connection established successfully")
	return client
}
