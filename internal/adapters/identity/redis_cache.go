package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "mail-triage:principal:"

// RedisCache shares resolved principals between server instances
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis principal cache initialised", zap.String("addr", addr))
	return NewRedisCacheFromClient(client, logger), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

type redisPrincipal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Get returns a cached principal
func (c *RedisCache) Get(ctx context.Context, key string) (*core.Principal, bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached principal: %w", err)
	}

	var p redisPrincipal
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached principal: %w", err)
	}
	return &core.Principal{ID: p.ID, Email: p.Email}, true, nil
}

// Set stores a principal for ttl
func (c *RedisCache) Set(ctx context.Context, key string, principal *core.Principal, ttl time.Duration) error {
	data, err := json.Marshal(redisPrincipal{ID: principal.ID, Email: principal.Email})
	if err != nil {
		return fmt.Errorf("failed to marshal principal: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache principal: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
