// Package cache provides the Redis response cache for read endpoints.
// The cache is an optimization only: a nil client degrades every caller
// to a direct read.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache key prefixes. Today-actions entries are invalidated on every
// completed pipeline run; screening entries expire on their own.
const (
	todayActionsKey    = "agent:today_actions"
	screeningKeyPrefix = "screening:"

	// TodayActionsTTL bounds staleness even if invalidation is missed.
	TodayActionsTTL = 10 * time.Minute
	ScreeningTTL    = 5 * time.Minute
)

// RedisClient wraps redis.Client
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client. Returns nil (caching
// disabled) when the connection cannot be established.
func NewRedisClient(host, port, password string) *RedisClient {
	addr := fmt.Sprintf("%s:%s", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0, // use default DB
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️  Failed to connect to Redis at %s: %v", addr, err)
		return nil
	}

	log.Printf("✅ Connected to Redis at %s", addr)
	return &RedisClient{client: client}
}

// Set stores a value in Redis with expiration
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, key, jsonBytes, expiration).Err()
}

// Get retrieves a value from Redis
func (r *RedisClient) Get(ctx context.Context, key string, dest interface{}) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(val), dest)
}

// Delete removes a key from Redis
func (r *RedisClient) Delete(ctx context.Context, key string) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return r.client.Del(ctx, key).Err()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	if r != nil && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// CacheTodayActions stores the assembled today-actions response.
func (r *RedisClient) CacheTodayActions(ctx context.Context, payload interface{}) error {
	return r.Set(ctx, todayActionsKey, payload, TodayActionsTTL)
}

// GetTodayActions loads the cached today-actions response into dest.
func (r *RedisClient) GetTodayActions(ctx context.Context, dest interface{}) error {
	return r.Get(ctx, todayActionsKey, dest)
}

// InvalidateTodayActions drops the cached today-actions response. Called
// when a pipeline run publishes a new snapshot.
func (r *RedisClient) InvalidateTodayActions(ctx context.Context) error {
	return r.Delete(ctx, todayActionsKey)
}

// ScreeningKey derives a stable cache key from the serialized criteria.
func ScreeningKey(criteria interface{}) string {
	raw, err := json.Marshal(criteria)
	if err != nil {
		return screeningKeyPrefix + "default"
	}
	return screeningKeyPrefix + string(raw)
}
