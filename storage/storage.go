// Package storage handles persistence of the daily post counter and post metrics.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"

	"soltron-bot/pkg/soltron"
)

// DefaultCounterKey is the counter object name, locally and in the bucket.
const DefaultCounterKey = "tweet_count.json"

// Store persists the post counter as a small JSON object, either on the local
// filesystem or in a Cloud Storage bucket.
type Store struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
	key       string
	attempts  uint
}

// New creates a new counter store. When localPath is set the bucket is ignored.
func New(client *storage.Client, bucket, localPath, key string, attempts uint, logger *slog.Logger) *Store {
	if key == "" {
		key = DefaultCounterKey
	}
	if attempts == 0 {
		attempts = 1
	}
	return &Store{
		client:    client,
		logger:    logger,
		localPath: localPath,
		bucket:    bucket,
		key:       key,
		attempts:  attempts,
	}
}

func (s *Store) retryOpts(ctx context.Context, op string) []retry.Option {
	return []retry.Option{
		retry.Attempts(s.attempts),
		retry.Delay(time.Second),
		retry.MaxDelay(2 * time.Minute),
		retry.MaxJitter(10 * time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying "+op+" operation after error", "attempt", n, "key", s.key, "error", retryErr)
		}),
	}
}

// ReadCounter loads the counter. A missing object returns soltron.ErrNotFound.
func (s *Store) ReadCounter(ctx context.Context) (soltron.PostCount, error) {
	var count soltron.PostCount

	data, err := s.read(ctx)
	if err != nil {
		return count, err
	}

	if err := json.Unmarshal(data, &count); err != nil {
		return soltron.PostCount{}, fmt.Errorf("%w: unmarshal counter: %w", soltron.ErrPersistenceRead, err)
	}
	return count, nil
}

func (s *Store) read(ctx context.Context) ([]byte, error) {
	// Local filesystem storage
	if s.localPath != "" {
		filePath := filepath.Join(s.localPath, s.key)
		data, err := os.ReadFile(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, soltron.ErrNotFound
			}
			return nil, fmt.Errorf("%w: read from local storage: %w", soltron.ErrPersistenceRead, err)
		}
		return data, nil
	}

	var data []byte
	var notFound bool
	err := retry.Do(
		func() error {
			r, openErr := s.client.Bucket(s.bucket).Object(s.key).NewReader(ctx)
			if openErr != nil {
				// Don't retry on "not found" errors
				if errors.Is(openErr, storage.ErrObjectNotExist) {
					notFound = true
					return retry.Unrecoverable(openErr)
				}
				return fmt.Errorf("open storage reader: %w", openErr)
			}
			defer func() {
				if closeErr := r.Close(); closeErr != nil {
					s.logger.Warn("Failed to close storage reader", "error", closeErr)
				}
			}()

			var readErr error
			data, readErr = io.ReadAll(r)
			if readErr != nil {
				return fmt.Errorf("read from storage: %w", readErr)
			}
			return nil
		},
		s.retryOpts(ctx, "load")...,
	)
	if notFound {
		return nil, soltron.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load counter: %w", soltron.ErrPersistenceRead, err)
	}
	return data, nil
}

// WriteCounter fully rewrites the counter object.
func (s *Store) WriteCounter(ctx context.Context, count soltron.PostCount) error {
	data, err := json.Marshal(count)
	if err != nil {
		return fmt.Errorf("%w: marshal counter: %w", soltron.ErrPersistenceWrite, err)
	}

	// Local filesystem storage
	if s.localPath != "" {
		filePath := filepath.Join(s.localPath, s.key)
		if err := os.WriteFile(filePath, data, 0o600); err != nil {
			return fmt.Errorf("%w: write to local storage: %w", soltron.ErrPersistenceWrite, err)
		}
		s.logger.Debug("Counter saved to local storage", "path", filePath, "date", count.Date, "tweets", count.Tweets)
		return nil
	}

	err = retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(s.key).NewWriter(ctx)
			w.ContentType = "application/json"
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		s.retryOpts(ctx, "save")...,
	)
	if err != nil {
		return fmt.Errorf("%w: save counter: %w", soltron.ErrPersistenceWrite, err)
	}

	s.logger.Debug("Counter saved", "bucket", s.bucket, "key", s.key, "date", count.Date, "tweets", count.Tweets)
	return nil
}

// IsNotFound reports whether err means the counter has not been written yet.
func IsNotFound(err error) bool {
	return errors.Is(err, soltron.ErrNotFound)
}
