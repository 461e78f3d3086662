package queue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get and PopHead when the key or list is absent.
// It is a normal condition on the consumer path, not a failure.
var ErrNotFound = redis.Nil

// Store abstracts the durable primitives the producer and worker need, so
// both stay store-agnostic. No cross-key atomicity is required; the protocol
// tolerates the crash windows between individual operations.
type Store interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	PushTail(ctx context.Context, listKey, value string) error
	PopHead(ctx context.Context, listKey string) (string, error)
	Length(ctx context.Context, listKey string) (int64, error)
}

// RedisStore implements Store on a Redis list plus plain keys. LPUSH admits
// at the tail of the logical queue and RPOP takes the head, so pop order is
// insertion order.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) PushTail(ctx context.Context, listKey, value string) error {
	return s.client.LPush(ctx, listKey, value).Err()
}

func (s *RedisStore) PopHead(ctx context.Context, listKey string) (string, error) {
	return s.client.RPop(ctx, listKey).Result()
}

func (s *RedisStore) Length(ctx context.Context, listKey string) (int64, error) {
	return s.client.LLen(ctx, listKey).Result()
}
