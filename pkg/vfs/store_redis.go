package vfs

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/freeflowuniverse/herodesk/pkg/redisclient"
)

// RedisStore persists the filesystem document into a redis-compatible
// backend, either the embedded state server or an external deployment.
type RedisStore struct {
	client *redisclient.Client
}

// NewRedisStore creates a store over an existing client.
func NewRedisStore(client *redisclient.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisStoreAddr creates a store with its own client for the given
// address.
func NewRedisStoreAddr(addr string, db int) *RedisStore {
	return &RedisStore{client: redisclient.NewClientWithAddr(addr, db)}
}

// Get retrieves a value by key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set stores a value under a key. Session documents carry no expiration.
func (s *RedisStore) Set(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, key, data, 0).Err()
}

// Delete removes a key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Ping checks the backend connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
