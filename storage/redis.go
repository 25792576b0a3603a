package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"soltron-bot/pkg/soltron"
)

// DefaultRedisKey holds the counter JSON when the Redis backend is used.
const DefaultRedisKey = "soltron:tweet_count"

// RedisCounter keeps the post counter in a single Redis string key, using the
// same JSON document and read-then-write contract as the file store.
type RedisCounter struct {
	client redis.UniversalClient
	key    string
	logger *slog.Logger
}

// NewRedisCounter creates a counter store backed by the given client.
func NewRedisCounter(client redis.UniversalClient, key string, logger *slog.Logger) *RedisCounter {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisCounter{client: client, key: key, logger: logger}
}

// ReadCounter loads the counter. A missing key returns soltron.ErrNotFound.
func (r *RedisCounter) ReadCounter(ctx context.Context) (soltron.PostCount, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return soltron.PostCount{}, soltron.ErrNotFound
	}
	if err != nil {
		return soltron.PostCount{}, fmt.Errorf("%w: redis get %s: %w", soltron.ErrPersistenceRead, r.key, err)
	}

	var count soltron.PostCount
	if err := json.Unmarshal(raw, &count); err != nil {
		return soltron.PostCount{}, fmt.Errorf("%w: unmarshal counter: %w", soltron.ErrPersistenceRead, err)
	}
	return count, nil
}

// WriteCounter overwrites the counter key.
func (r *RedisCounter) WriteCounter(ctx context.Context, count soltron.PostCount) error {
	data, err := json.Marshal(count)
	if err != nil {
		return fmt.Errorf("%w: marshal counter: %w", soltron.ErrPersistenceWrite, err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: redis set %s: %w", soltron.ErrPersistenceWrite, r.key, err)
	}
	r.logger.Debug("Counter saved to redis", "key", r.key, "date", count.Date, "tweets", count.Tweets)
	return nil
}

// Close releases the underlying client.
func (r *RedisCounter) Close() error {
	return r.client.Close()
}
