// Package counter enforces the daily post cap.
package counter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"soltron-bot/pkg/soltron"
)

// DefaultDailyCap is the number of enriched posts allowed per calendar day.
const DefaultDailyCap = 15

// Store interface for counter persistence.
type Store interface {
	ReadCounter(ctx context.Context) (soltron.PostCount, error)
	WriteCounter(ctx context.Context, count soltron.PostCount) error
}

// Counter tracks posts made on the current UTC calendar day.
type Counter struct {
	store  Store
	cap    int
	now    func() time.Time
	logger *slog.Logger
}

// New creates a counter. A cap <= 0 uses DefaultDailyCap; a nil clock uses time.Now.
func New(store Store, dailyCap int, now func() time.Time, logger *slog.Logger) *Counter {
	if dailyCap <= 0 {
		dailyCap = DefaultDailyCap
	}
	if now == nil {
		now = time.Now
	}
	return &Counter{
		store:  store,
		cap:    dailyCap,
		now:    now,
		logger: logger,
	}
}

// Cap returns the configured daily cap.
func (c *Counter) Cap() int {
	return c.cap
}

// TryReserve records one post attempt and reports whether the count before this
// attempt was below the cap. The increment is persisted even when the answer is no.
// Storage failures never block the decision: a failed read starts from zero and a
// failed write is only logged.
func (c *Counter) TryReserve(ctx context.Context) bool {
	today := c.now().UTC().Format(soltron.DateLayout)
	count := c.load(ctx, today)

	if count.Date != today {
		c.logger.Info("New posting day, resetting counter", "previous_date", count.Date, "previous_tweets", count.Tweets, "date", today)
		count = soltron.PostCount{Date: today}
	}

	pre := count.Tweets
	count.Tweets++

	if err := c.store.WriteCounter(ctx, count); err != nil {
		c.logger.Warn("Tweet log write failed", "date", today, "tweets", count.Tweets, "error", err)
	}

	allowed := pre < c.cap
	if !allowed {
		c.logger.Info("Daily post cap reached", "date", today, "tweets", count.Tweets, "cap", c.cap)
	}
	return allowed
}

func (c *Counter) load(ctx context.Context, today string) soltron.PostCount {
	count, err := c.store.ReadCounter(ctx)
	if err == nil && count.Tweets < 0 {
		err = fmt.Errorf("%w: negative tweet count %d", soltron.ErrPersistenceRead, count.Tweets)
	}
	if err == nil {
		return count
	}
	if errors.Is(err, soltron.ErrNotFound) {
		c.logger.Info("No tweet log yet, starting fresh", "date", today)
	} else {
		c.logger.Error("Tweet log read failed", "error", err)
	}
	return soltron.PostCount{Date: today}
}
