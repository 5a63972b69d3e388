package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrNotFound = errors.New("key not found")

// RedisClient namespaces every key under prefix and stores values as JSON.
type RedisClient struct {
	client *redis.Client
	prefix string
}

func NewRedisClient(ctx context.Context, addr, password string, db int, prefix string) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisClient{client: rdb, prefix: strings.TrimSuffix(prefix, ":")}, nil
}

func (r *RedisClient) key(parts ...string) string {
	if r.prefix == "" {
		return strings.Join(parts, ":")
	}
	return strings.Join(append([]string{r.prefix}, parts...), ":")
}

func (r *RedisClient) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// getJSON decodes key into dest. A missing key yields ErrNotFound.
func (r *RedisClient) getJSON(ctx context.Context, key string, dest any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *RedisClient) del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisClient) hsetJSON(ctx context.Context, key, field string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s[%s]: %w", key, field, err)
	}
	return r.client.HSet(ctx, key, field, data).Err()
}

// hgetJSON reports false when the field is absent.
func (r *RedisClient) hgetJSON(ctx context.Context, key, field string, dest any) (bool, error) {
	data, err := r.client.HGet(ctx, key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

// hscan walks every field of a hash in pages of count. HSCAN may visit a
// field more than once.
func (r *RedisClient) hscan(ctx context.Context, key string, count int64, fn func(field string, value []byte) error) error {
	var cursor uint64
	for {
		kv, next, err := r.client.HScan(ctx, key, cursor, "*", count).Result()
		if err != nil {
			return err
		}
		for i := 0; i+1 < len(kv); i += 2 {
			if err := fn(kv[i], []byte(kv[i+1])); err != nil {
				return err
			}
		}
		if cursor = next; cursor == 0 {
			return nil
		}
	}
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
