// Package schedule runs posting strategies on cron schedules inside the server.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"soltron-bot/bot"
	"soltron-bot/pkg/soltron"
)

// Runner runs one strategy.
type Runner interface {
	Run(ctx context.Context, strategy, input string) (bot.Result, error)
}

// Entry pairs a strategy with a standard five-field cron expression.
type Entry struct {
	Strategy soltron.Strategy
	Spec     string
}

// Parse reads "strategy=spec;strategy=spec". Blank input yields no entries.
func Parse(s string) ([]Entry, error) {
	var entries []Entry
	for part := range strings.SplitSeq(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, spec, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("schedule entry %q: want strategy=spec", part)
		}
		strategy, ok := soltron.ParseStrategy(name)
		if !ok || strategy == soltron.StrategyCharacter {
			return nil, fmt.Errorf("schedule entry %q: %q is not a posting strategy", part, strings.TrimSpace(name))
		}
		if strategy == soltron.StrategyPersona {
			return nil, fmt.Errorf("schedule entry %q: persona replies to text and cannot run on a schedule", part)
		}
		spec = strings.TrimSpace(spec)
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("schedule entry %q: %w", part, err)
		}
		entries = append(entries, Entry{Strategy: strategy, Spec: spec})
	}
	return entries, nil
}

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a scheduler in UTC. A strategy whose previous run is still going
// skips its next tick.
func New(runner Runner, entries []Entry, timeout time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if len(entries) == 0 {
		return nil, errors.New("no schedule entries")
	}
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner:  runner,
		timeout: timeout,
		logger:  logger,
	}
	for _, e := range entries {
		if _, err := s.cron.AddFunc(e.Spec, s.job(e.Strategy)); err != nil {
			return nil, fmt.Errorf("add %s job: %w", e.Strategy, err)
		}
		logger.Info("Scheduled strategy", "strategy", e.Strategy, "spec", e.Spec)
	}
	return s, nil
}

func (s *Scheduler) job(strategy soltron.Strategy) func() {
	return func() {
		ctx := context.Background()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		res, err := s.runner.Run(ctx, string(strategy), "")
		if err != nil {
			s.logger.Error("Scheduled run failed", "strategy", strategy, "error", err)
			return
		}
		s.logger.Info("Scheduled run completed", "strategy", strategy, "post_id", res.Post.Handle.ID)
	}
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Scheduled jobs still running at shutdown")
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
