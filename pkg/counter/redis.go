package counter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore provides a Redis-backed counter store for deployments where
// multiple gateway instances share one quota ledger.
type RedisStore struct {
	client *redis.Client

	// keyPrefix namespaces all keys (default "tollgate:").
	keyPrefix string
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

// RedisConfig configures a Redis-backed counter store.
type RedisConfig struct {
	// Addr is the Redis address (e.g., "localhost:6379").
	Addr string

	// Password is the Redis password (empty for no auth).
	Password string

	// DB is the Redis database number.
	DB int

	// KeyPrefix namespaces all counter keys. Default: "tollgate:"
	KeyPrefix string
}

// NewRedisStore creates a new Redis-backed counter store.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "tollgate:"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: prefix,
	}
}

// Incr atomically increments the counter at key, creating it at 1 if absent.
// The ttl is applied only on creation: INCR and EXPIRE NX are pipelined so
// an existing key keeps its original expiry.
func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	rkey := s.keyPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, rkey)
	if ttl > 0 {
		pipe.ExpireNX(ctx, rkey, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr %q: %w: %v", key, ErrUnavailable, err)
	}
	return incr.Val(), nil
}

// IncrBy atomically adds n to the counter at key, creating it at n if absent.
func (s *RedisStore) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	val, err := s.client.IncrBy(ctx, s.keyPrefix+key, n).Result()
	if err != nil {
		return 0, fmt.Errorf("incrby %q: %w: %v", key, ErrUnavailable, err)
	}
	return val, nil
}

// Get returns the counter value at key, or 0 if absent or expired.
func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Get(ctx, s.keyPrefix+key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %q: %w: %v", key, ErrUnavailable, err)
	}
	return val, nil
}

// Expire sets the expiry of an existing key. No-op if the key is absent.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, s.keyPrefix+key, ttl).Err(); err != nil {
		return fmt.Errorf("expire %q: %w: %v", key, ErrUnavailable, err)
	}
	return nil
}

// Ping checks that the Redis connection is alive.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping: %w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
