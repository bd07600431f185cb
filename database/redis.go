package database

import (
	"context"
	"fmt"

	"chat-service/config"
	"chat-service/logger"

	"github.com/redis/go-redis/v9"
)

// Redis opens the client backing the socket.io adapter.
func Redis(ctx context.Context, cfg *config.Config, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf(
			"%s:%s",
			cfg.RedisHost,
			cfg.RedisPort,
		),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("connection opened to redis", "db", cfg.RedisDB)
	return client, nil
}
