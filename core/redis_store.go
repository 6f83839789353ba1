// Package core provides the shared plumbing of the storefront client:
// configuration, errors, logging and telemetry interfaces, and the
// Storage providers that back cart, wishlist and session state.
//
// This file implements the Redis-backed Storage provider. The mobile
// builds of the client keep state on-device; the Redis provider exists
// for deployments where state must be shared across processes (web
// builds behind a BFF, integration rigs) and for tests that need a
// real external store.
//
// Namespacing:
// All keys are automatically prefixed with the configured namespace:
// "storefront:state:shopping_cart", "storefront:state:wishlist", ...
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is a Redis-backed implementation of the Storage interface
type RedisStore struct {
	client    *redis.Client
	namespace string
	logger    Logger
}

// RedisStoreOptions configures the Redis store
type RedisStoreOptions struct {
	RedisURL  string
	Namespace string // Key namespace, DefaultRedisPrefix when empty
	Logger    Logger // Optional logger
}

// NewRedisStore creates a Redis-backed store and verifies connectivity
// with a ping.
func NewRedisStore(ctx context.Context, opts RedisStoreOptions) (*RedisStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = &NoOpLogger{}
	}

	if opts.RedisURL == "" {
		logger.Error("Failed to initialize Redis store", map[string]interface{}{
			"error":      "Redis URL is required",
			"error_type": "ErrInvalidConfiguration",
		})
		return nil, fmt.Errorf("redis URL is required: %w", ErrInvalidConfiguration)
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		logger.Error("Failed to parse Redis URL", map[string]interface{}{
			"error":     err.Error(),
			"redis_url": opts.RedisURL,
		})
		return nil, fmt.Errorf("invalid Redis URL: %w", ErrInvalidConfiguration)
	}

	client := redis.NewClient(redisOpt)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Redis ping failed", map[string]interface{}{
			"error": err.Error(),
			"addr":  redisOpt.Addr,
		})
		return nil, fmt.Errorf("redis ping: %v: %w", err, ErrStorageUnavailable)
	}

	namespace := opts.Namespace
	if namespace == "" {
		namespace = DefaultRedisPrefix
	}

	logger.Debug("Redis store initialized", map[string]interface{}{
		"addr":      redisOpt.Addr,
		"namespace": namespace,
	})

	return &RedisStore{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}, nil
}

func (r *RedisStore) key(k string) string {
	return r.namespace + k
}

// Get retrieves a value. A missing key returns ("", nil).
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %v: %w", key, err, ErrStorageUnavailable)
	}
	return val, nil
}

// Set stores a value with optional TTL (ttl <= 0 means no expiry).
func (r *RedisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %v: %w", key, err, ErrStorageUnavailable)
	}
	return nil
}

// Delete removes a value
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %v: %w", key, err, ErrStorageUnavailable)
	}
	return nil
}

// Keys lists keys within the store's namespace, with the namespace
// prefix stripped.
func (r *RedisStore) Keys(ctx context.Context) ([]string, error) {
	raw, err := r.client.Keys(ctx, r.namespace+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys: %v: %w", err, ErrStorageUnavailable)
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, k[len(r.namespace):])
	}
	return keys, nil
}

// Close releases the underlying Redis connection pool
func (r *RedisStore) Close() error {
	return r.client.Close()
}
