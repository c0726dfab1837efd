package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// SharedTier is a byte cache visible to every server instance. Failures are
// logged and reported as misses so the database stays the source of truth.
type SharedTier interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	Close() error
}

// RedisOptions configures the Redis tier.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisTier stores encoded values in Redis under a common key prefix.
type RedisTier struct {
	client *redis.Client
	prefix string
}

// DialRedis connects to Redis and pings it once.
func DialRedis(ctx context.Context, opts RedisOptions) (*RedisTier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to ping redis at %s", opts.Addr)
	}

	slog.Info("redis snapshot cache connected", "addr", opts.Addr, "db", opts.DB)
	return &RedisTier{client: client, prefix: opts.KeyPrefix}, nil
}

func (r *RedisTier) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false
	case err != nil:
		slog.Warn("redis get failed", "key", key, "error", err)
		return nil, false
	}
	return data, true
}

func (r *RedisTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		slog.Warn("redis set failed", "key", key, "error", err)
	}
}

func (r *RedisTier) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.prefix + key
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		slog.Warn("redis delete failed", "keys", keys, "error", err)
	}
}

// Purge removes every key under the prefix. Used by tests.
func (r *RedisTier) Purge(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	pipe := r.client.Pipeline()
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "failed to scan redis keys")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return errors.Wrap(err, "failed to purge redis keys")
	}
	return nil
}

func (r *RedisTier) Close() error {
	return r.client.Close()
}
