package storage

import (
	"context"
	"sort"
	"sync"

	"soltron-bot/pkg/soltron"
)

// Memory is an in-process counter and metrics store for local runs and tests.
type Memory struct {
	mu      sync.Mutex
	count   *soltron.PostCount
	days    map[string]*soltron.DailyMetric
	records []soltron.PostRecord

	// Injected failures.
	ReadErr   error
	WriteErr  error
	RecordErr error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{days: make(map[string]*soltron.DailyMetric)}
}

// ReadCounter returns the stored counter or soltron.ErrNotFound.
func (m *Memory) ReadCounter(_ context.Context) (soltron.PostCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return soltron.PostCount{}, m.ReadErr
	}
	if m.count == nil {
		return soltron.PostCount{}, soltron.ErrNotFound
	}
	return *m.count, nil
}

// WriteCounter replaces the stored counter.
func (m *Memory) WriteCounter(_ context.Context, count soltron.PostCount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	c := count
	m.count = &c
	return nil
}

// SetCounter seeds the stored counter.
func (m *Memory) SetCounter(count soltron.PostCount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := count
	m.count = &c
}

// Counter returns the stored counter and whether one exists.
func (m *Memory) Counter() (soltron.PostCount, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.count == nil {
		return soltron.PostCount{}, false
	}
	return *m.count, true
}

// RecordPost applies the same per-day updates as the Firestore recorder.
func (m *Memory) RecordPost(_ context.Context, rec soltron.PostRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordErr != nil {
		return m.RecordErr
	}

	dayStart := metricDay(rec)
	id := dayStart.Format(soltron.DateLayout)
	day, ok := m.days[id]
	if !ok {
		day = &soltron.DailyMetric{Timestamp: dayStart}
		m.days[id] = day
	}

	day.BotMetrics.Tweets++
	if rec.MediaAttached {
		day.BotMetrics.GIFsPosted++
		day.BotMetrics.GIFExamples = append(day.BotMetrics.GIFExamples, soltron.MediaExample{URL: rec.MediaURL, TweetURL: rec.PostURL})
	}
	example := soltron.TextExample{Text: rec.Text, TweetURL: rec.PostURL}
	switch rec.Strategy {
	case soltron.StrategyJoke:
		day.BotMetrics.Jokes = append(day.BotMetrics.Jokes, example)
	case soltron.StrategyCreator:
		day.BotMetrics.CreatorMemes = append(day.BotMetrics.CreatorMemes, example)
	}

	m.records = append(m.records, rec)
	return nil
}

// Recent returns the newest daily metrics, newest first.
func (m *Memory) Recent(_ context.Context, limit int) ([]soltron.DailyMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	days := make([]soltron.DailyMetric, 0, len(m.days))
	for _, d := range m.days {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Timestamp.After(days[j].Timestamp) })
	if limit > 0 && len(days) > limit {
		days = days[:limit]
	}
	return days, nil
}

// Records returns every recorded post in order.
func (m *Memory) Records() []soltron.PostRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]soltron.PostRecord, len(m.records))
	copy(out, m.records)
	return out
}
