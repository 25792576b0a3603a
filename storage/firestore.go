package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"soltron-bot/pkg/soltron"
)

// DefaultMetricsCollection holds one document per calendar day.
const DefaultMetricsCollection = "metrics"

// Metrics records post metrics in Firestore, one merged document per UTC day.
type Metrics struct {
	client     *firestore.Client
	collection string
	logger     *slog.Logger
}

// NewFirestoreClient opens a Firestore client, using explicit credentials when given.
func NewFirestoreClient(ctx context.Context, projectID, credsJSON string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, errors.New("projectID is required for Firestore metrics")
	}
	var opts []option.ClientOption
	if credsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credsJSON)))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return client, nil
}

// NewMetrics creates a Firestore metrics recorder.
func NewMetrics(client *firestore.Client, collection string, logger *slog.Logger) *Metrics {
	if collection == "" {
		collection = DefaultMetricsCollection
	}
	return &Metrics{client: client, collection: collection, logger: logger}
}

// metricDay returns the UTC midnight that keys the record's daily document.
func metricDay(rec soltron.PostRecord) time.Time {
	at := rec.At.UTC()
	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
}

// RecordPost upserts the day's document: bumps tweets, and for media posts bumps
// gifsPosted and appends a gif example.
func (m *Metrics) RecordPost(ctx context.Context, rec soltron.PostRecord) error {
	dayStart := metricDay(rec)
	docID := dayStart.Format(soltron.DateLayout)

	bot := map[string]interface{}{
		"tweets": firestore.Increment(1),
	}
	if rec.MediaAttached {
		bot["gifsPosted"] = firestore.Increment(1)
		bot["gifExamples"] = firestore.ArrayUnion(map[string]interface{}{
			"url":      rec.MediaURL,
			"tweetUrl": rec.PostURL,
		})
	}
	example := map[string]interface{}{"text": rec.Text, "tweetUrl": rec.PostURL}
	if rec.Strategy == soltron.StrategyJoke {
		bot["jokes"] = firestore.ArrayUnion(example)
	}
	if rec.Strategy == soltron.StrategyCreator {
		bot["creatorMemes"] = firestore.ArrayUnion(example)
	}

	_, err := m.client.Collection(m.collection).Doc(docID).Set(ctx, map[string]interface{}{
		"timestamp":  dayStart,
		"botMetrics": bot,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("%w: firestore RecordPost %s: %w", soltron.ErrPersistenceWrite, docID, err)
	}

	m.logger.Debug("Post metric recorded", "doc", docID, "strategy", rec.Strategy, "media", rec.MediaAttached)
	return nil
}

// Recent returns the newest daily documents, newest first.
func (m *Metrics) Recent(ctx context.Context, limit int) ([]soltron.DailyMetric, error) {
	if limit <= 0 {
		limit = 7
	}
	it := m.client.Collection(m.collection).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer it.Stop()

	var days []soltron.DailyMetric
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: iterate metrics: %w", soltron.ErrPersistenceRead, err)
		}

		var day soltron.DailyMetric
		if err := snap.DataTo(&day); err != nil {
			m.logger.Warn("Failed to decode metric document", "doc", snap.Ref.ID, "error", err)
			continue
		}
		days = append(days, day)
	}
	return days, nil
}

// Close releases the Firestore client.
func (m *Metrics) Close() error {
	return m.client.Close()
}
