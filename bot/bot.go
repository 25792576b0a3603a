// Package bot runs one content strategy end to end: gate, compose, publish.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"soltron-bot/compose"
	"soltron-bot/pkg/soltron"
	"soltron-bot/publish"
)

// ErrUnknownStrategy is returned for a strategy name that does not exist.
var ErrUnknownStrategy = errors.New("unknown strategy")

// ErrMissingInput is returned when a strategy that replies to text gets none.
var ErrMissingInput = errors.New("missing input")

// Publisher publishes a draft.
type Publisher interface {
	Publish(ctx context.Context, draft soltron.Draft) (publish.Result, error)
}

// Result is the outcome of one run.
type Result struct {
	Strategy  soltron.Strategy
	Launched  bool
	Text      string // Text as posted, or the reply for the character strategy
	Published bool
	Post      publish.Result
	Duration  time.Duration
}

// Bot ties the composer to the publisher.
type Bot struct {
	composer  *compose.Composer
	publisher Publisher
	launchAt  time.Time
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a new bot. A nil clock uses time.Now.
func New(composer *compose.Composer, publisher Publisher, launchAt time.Time, now func() time.Time, logger *slog.Logger) *Bot {
	if now == nil {
		now = time.Now
	}
	return &Bot{
		composer:  composer,
		publisher: publisher,
		launchAt:  launchAt,
		now:       now,
		logger:    logger,
	}
}

// Gate computes the launch gate for one invocation.
func (b *Bot) Gate() compose.Gate {
	return compose.NewGate(b.now(), b.launchAt)
}

// Run composes and publishes one post for the named strategy. input is the
// persona text or the character name; other strategies ignore it. The character
// strategy only returns its reply.
func (b *Bot) Run(ctx context.Context, name, input string) (Result, error) {
	strategy, ok := soltron.ParseStrategy(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}

	if strategy == soltron.StrategyPersona && strings.TrimSpace(input) == "" {
		return Result{}, fmt.Errorf("%w: %s needs text to reply to", ErrMissingInput, strategy)
	}

	start := b.now()
	gate := b.Gate()
	res := Result{Strategy: strategy, Launched: gate.Launched}

	if strategy == soltron.StrategyCharacter {
		res.Text = b.composer.CharacterInfo(input, gate)
		return res, nil
	}

	draft, err := b.composer.Compose(strategy, input, gate)
	if err != nil {
		return res, err
	}

	b.logger.Info("Running strategy",
		"strategy", strategy,
		"launched", gate.Launched,
		"media_query", draft.MediaQuery)

	post, err := b.publisher.Publish(ctx, draft)
	res.Post = post
	res.Duration = b.now().Sub(start)
	if err != nil {
		return res, fmt.Errorf("%s: %w", strategy, err)
	}
	res.Text = post.Text
	res.Published = true

	b.logger.Info("Strategy completed",
		"strategy", strategy,
		"post_id", post.Handle.ID,
		"media", post.MediaAttached,
		"duration", res.Duration.String())
	return res, nil
}

// CharacterInfo answers a character lookup without posting.
func (b *Bot) CharacterInfo(name string) string {
	return b.composer.CharacterInfo(name, b.Gate())
}
