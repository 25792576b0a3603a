package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"soltron-bot/pkg/soltron"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocalStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(nil, "", dir, "", 1, testLogger())
	ctx := context.Background()

	if _, err := s.ReadCounter(ctx); !IsNotFound(err) {
		t.Fatalf("ReadCounter() on empty dir error = %v, want not found", err)
	}

	want := soltron.PostCount{Date: "2026-10-14", Tweets: 3}
	if err := s.WriteCounter(ctx, want); err != nil {
		t.Fatalf("WriteCounter() error = %v", err)
	}

	got, err := s.ReadCounter(ctx)
	if err != nil {
		t.Fatalf("ReadCounter() error = %v", err)
	}
	if got != want {
		t.Errorf("ReadCounter() = %+v, want %+v", got, want)
	}

	raw, err := os.ReadFile(filepath.Join(dir, DefaultCounterKey))
	if err != nil {
		t.Fatalf("read counter file: %v", err)
	}
	if string(raw) != `{"date":"2026-10-14","tweets":3}` {
		t.Errorf("counter file = %s", raw)
	}
}

func TestLocalStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "count.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := New(nil, "", dir, "count.json", 1, testLogger())

	_, err := s.ReadCounter(context.Background())
	if !errors.Is(err, soltron.ErrPersistenceRead) {
		t.Errorf("ReadCounter() error = %v, want ErrPersistenceRead", err)
	}
	if IsNotFound(err) {
		t.Error("corrupt file should not be reported as not found")
	}
}

func TestLocalStoreWriteFailure(t *testing.T) {
	s := New(nil, "", filepath.Join(t.TempDir(), "missing-dir"), "", 1, testLogger())
	err := s.WriteCounter(context.Background(), soltron.PostCount{Date: "2026-10-14", Tweets: 1})
	if !errors.Is(err, soltron.ErrPersistenceWrite) {
		t.Errorf("WriteCounter() error = %v, want ErrPersistenceWrite", err)
	}
}

func TestRedisCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedisCounter(client, "", testLogger())
	ctx := context.Background()

	if _, err := r.ReadCounter(ctx); !IsNotFound(err) {
		t.Fatalf("ReadCounter() on empty redis error = %v, want not found", err)
	}

	want := soltron.PostCount{Date: "2026-10-14", Tweets: 15}
	if err := r.WriteCounter(ctx, want); err != nil {
		t.Fatalf("WriteCounter() error = %v", err)
	}
	got, err := r.ReadCounter(ctx)
	if err != nil {
		t.Fatalf("ReadCounter() error = %v", err)
	}
	if got != want {
		t.Errorf("ReadCounter() = %+v, want %+v", got, want)
	}

	mr.Set(DefaultRedisKey, "garbage")
	if _, err := r.ReadCounter(ctx); !errors.Is(err, soltron.ErrPersistenceRead) {
		t.Errorf("ReadCounter() with garbage error = %v, want ErrPersistenceRead", err)
	}

	mr.Close()
	if err := r.WriteCounter(ctx, want); !errors.Is(err, soltron.ErrPersistenceWrite) {
		t.Errorf("WriteCounter() with redis down error = %v, want ErrPersistenceWrite", err)
	}
}

func TestMemoryRecordPost(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	day := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

	recs := []soltron.PostRecord{
		{At: day, Strategy: soltron.StrategyHype, Text: "a", PostURL: "u1", MediaURL: "g1.gif", MediaAttached: true},
		{At: day.Add(time.Hour), Strategy: soltron.StrategyJoke, Text: "joke", PostURL: "u2"},
		{At: day.Add(2 * time.Hour), Strategy: soltron.StrategyCreator, Text: "meme", PostURL: "u3"},
		{At: day.Add(24 * time.Hour), Strategy: soltron.StrategyHype, Text: "next day", PostURL: "u4"},
	}
	for _, rec := range recs {
		if err := m.RecordPost(ctx, rec); err != nil {
			t.Fatalf("RecordPost() error = %v", err)
		}
	}

	days, err := m.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("Recent() returned %d days, want 2", len(days))
	}
	if !days[0].Timestamp.After(days[1].Timestamp) {
		t.Error("Recent() should return newest first")
	}

	first := days[1].BotMetrics
	if first.Tweets != 3 {
		t.Errorf("tweets = %d, want 3", first.Tweets)
	}
	if first.GIFsPosted != 1 || len(first.GIFExamples) != 1 || first.GIFExamples[0].URL != "g1.gif" {
		t.Errorf("gif metrics = %+v", first)
	}
	if len(first.Jokes) != 1 || first.Jokes[0].Text != "joke" {
		t.Errorf("jokes = %+v", first.Jokes)
	}
	if len(first.CreatorMemes) != 1 || first.CreatorMemes[0].TweetURL != "u3" {
		t.Errorf("creator memes = %+v", first.CreatorMemes)
	}

	limited, err := m.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("Recent(1) returned %d days", len(limited))
	}
}

func TestJoinDelegates(t *testing.T) {
	counter := NewMemory()
	metrics := NewMemory()
	p := Join(counter, metrics)
	ctx := context.Background()

	if err := p.WriteCounter(ctx, soltron.PostCount{Date: "2026-10-14", Tweets: 2}); err != nil {
		t.Fatal(err)
	}
	if _, ok := counter.Counter(); !ok {
		t.Error("WriteCounter should reach the counter backend")
	}
	if err := p.RecordPost(ctx, soltron.PostRecord{At: time.Now(), Strategy: soltron.StrategyHype}); err != nil {
		t.Fatal(err)
	}
	if len(metrics.Records()) != 1 || len(counter.Records()) != 0 {
		t.Error("RecordPost should reach only the metrics backend")
	}
}
