package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "outreach:memory:"

type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps the latest summary per username under a single key.
type RedisStore struct {
	client kv
	ttl    time.Duration
}

// NewRedisStore returns a store. ttl <= 0 keeps memories without expiry.
func NewRedisStore(client kv, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{client: client, ttl: ttl}
}

func memoryKey(username string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(username))
}

// Remember overwrites the stored summary.
func (s *RedisStore) Remember(ctx context.Context, username, summary string) error {
	if err := s.client.Set(ctx, memoryKey(username), summary, s.ttl).Err(); err != nil {
		return fmt.Errorf("remember %s: %w", username, err)
	}
	return nil
}

// Recall returns the stored summary or "" when none exists. The query is not
// used; Redis holds a single summary per user.
func (s *RedisStore) Recall(ctx context.Context, username, _ string) (string, error) {
	val, err := s.client.Get(ctx, memoryKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("recall %s: %w", username, err)
	}
	return val, nil
}
