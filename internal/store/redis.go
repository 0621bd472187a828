package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend delegates TTLs and ordered indexes to native Redis features
// (SET with expiry, sorted sets). It is the production backend when a Redis
// endpoint is configured.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend connects to Redis and verifies the connection with a
// bounded ping.
func NewRedisBackend(addr, password string, db int) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[store] Connected to Redis at %s", addr)
	return &RedisBackend{client: client}, nil
}

// Put stores value under key with a native expiry (zero ttl = no expiry).
func (b *RedisBackend) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Get returns the value for key, or ErrNotFound when Redis reports nil.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	return data, nil
}

// Delete removes key and reports whether anything was removed.
func (b *RedisBackend) Delete(ctx context.Context, key string) (bool, error) {
	n, err := b.client.Del(ctx, key).Result()
	if err != nil {
		return false, &StorageError{Op: "delete", Key: key, Err: err}
	}
	return n > 0, nil
}

// IndexAdd adds member to the sorted set with the given score.
func (b *RedisBackend) IndexAdd(ctx context.Context, index string, score float64, member string) error {
	if err := b.client.ZAdd(ctx, index, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return &StorageError{Op: "index add", Key: index, Err: err}
	}
	return nil
}

// IndexRangeDesc returns up to count members starting at offset, highest
// score first.
func (b *RedisBackend) IndexRangeDesc(ctx context.Context, index string, offset, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	members, err := b.client.ZRevRange(ctx, index, int64(offset), int64(offset+count-1)).Result()
	if err != nil {
		return nil, &StorageError{Op: "index range", Key: index, Err: err}
	}
	return members, nil
}

// IndexRemove removes member from the sorted set.
func (b *RedisBackend) IndexRemove(ctx context.Context, index, member string) error {
	if err := b.client.ZRem(ctx, index, member).Err(); err != nil {
		return &StorageError{Op: "index remove", Key: index, Err: err}
	}
	return nil
}

// Close closes the underlying client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
