// Package publish turns a composed draft into a post, attaching media when every
// enrichment stage succeeds and falling back to text otherwise.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"soltron-bot/pkg/soltron"
)

// Resolver finds a media URL for a search query. Empty means none.
type Resolver interface {
	Resolve(ctx context.Context, query string) string
}

// Reserver spends one slot of the daily media budget.
type Reserver interface {
	TryReserve(ctx context.Context) bool
}

// Downloader fetches media bytes.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Platform uploads media and creates posts.
type Platform interface {
	Name() string
	UploadMedia(ctx context.Context, data []byte, mimeType string) (string, error)
	Publish(ctx context.Context, text string, mediaIDs []string) (soltron.PostHandle, error)
}

// MetricsStore records published posts.
type MetricsStore interface {
	RecordPost(ctx context.Context, rec soltron.PostRecord) error
}

// Result describes a published post.
type Result struct {
	Handle        soltron.PostHandle
	Text          string
	MediaURL      string
	MediaAttached bool
	Stages        []StageResult // Enrichment stages that ran, in order
}

// Publisher publishes drafts.
type Publisher struct {
	resolver   Resolver
	reserver   Reserver
	downloader Downloader
	platform   Platform
	metrics    MetricsStore
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a new publisher. metrics may be nil.
func New(resolver Resolver, reserver Reserver, downloader Downloader, platform Platform, metrics MetricsStore, logger *slog.Logger) *Publisher {
	return &Publisher{
		resolver:   resolver,
		reserver:   reserver,
		downloader: downloader,
		platform:   platform,
		metrics:    metrics,
		now:        time.Now,
		logger:     logger,
	}
}

// Publish posts the draft. Media enrichment failures degrade to a text-only post;
// a platform publish failure is returned.
func (p *Publisher) Publish(ctx context.Context, draft soltron.Draft) (Result, error) {
	enr := p.enrich(ctx, draft)

	text := draft.Text
	var mediaIDs []string
	if enr.ok() {
		text = draft.TextWithMedia()
		mediaIDs = []string{enr.mediaID}
	}

	handle, err := p.platform.Publish(ctx, text, mediaIDs)
	if err != nil {
		publishErrors.WithLabelValues(string(draft.Strategy)).Inc()
		p.logger.Error("Post publish failed",
			"platform", p.platform.Name(),
			"strategy", draft.Strategy,
			"error", err)
		return Result{Stages: enr.stages}, err
	}

	res := Result{
		Handle:        handle,
		Text:          text,
		MediaAttached: enr.ok(),
		Stages:        enr.stages,
	}
	if res.MediaAttached {
		res.MediaURL = enr.mediaURL
	}
	postsTotal.WithLabelValues(string(draft.Strategy), strconv.FormatBool(res.MediaAttached)).Inc()

	p.logger.Info("Post published",
		"platform", p.platform.Name(),
		"strategy", draft.Strategy,
		"post_id", handle.ID,
		"url", handle.URL,
		"media", res.MediaAttached)

	p.record(ctx, draft.Strategy, res)
	return res, nil
}

func (p *Publisher) record(ctx context.Context, strategy soltron.Strategy, res Result) {
	if p.metrics == nil {
		return
	}
	rec := soltron.PostRecord{
		At:            p.now(),
		Strategy:      strategy,
		Text:          res.Text,
		PostID:        res.Handle.ID,
		PostURL:       res.Handle.URL,
		MediaURL:      res.MediaURL,
		MediaAttached: res.MediaAttached,
	}
	if err := p.metrics.RecordPost(ctx, rec); err != nil {
		p.logger.Error("Metric update failed", "post_id", res.Handle.ID, "error", fmt.Errorf("%w: record post: %w", soltron.ErrPersistenceWrite, err))
	}
}
