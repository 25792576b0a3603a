package storage

import (
	"context"

	"soltron-bot/pkg/soltron"
)

// CounterBackend persists the daily post counter.
type CounterBackend interface {
	ReadCounter(ctx context.Context) (soltron.PostCount, error)
	WriteCounter(ctx context.Context, count soltron.PostCount) error
}

// MetricsBackend records post metrics.
type MetricsBackend interface {
	RecordPost(ctx context.Context, rec soltron.PostRecord) error
	Recent(ctx context.Context, limit int) ([]soltron.DailyMetric, error)
}

// Port joins a counter backend and a metrics backend into the single storage
// port the bot depends on.
type Port struct {
	CounterBackend
	MetricsBackend
}

// Join returns a Port over the two backends.
func Join(counter CounterBackend, metrics MetricsBackend) *Port {
	return &Port{CounterBackend: counter, MetricsBackend: metrics}
}
