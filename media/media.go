// Package media finds topical animated images and downloads them for upload.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"soltron-bot/pkg/soltron"
)

// ErrNoResults indicates the search service returned nothing usable.
var ErrNoResults = errors.New("no results")

// Provider searches an external media service for one image URL.
type Provider interface {
	Search(ctx context.Context, query string) (string, error)
}

// Resolver turns a query into a GIF URL, degrading to "" on any failure.
type Resolver struct {
	provider Provider
	logger   *slog.Logger
}

// NewResolver creates a resolver around provider.
func NewResolver(provider Provider, logger *slog.Logger) *Resolver {
	return &Resolver{provider: provider, logger: logger}
}

// Resolve returns a GIF URL for query, or "" when none could be found. It never fails.
func (r *Resolver) Resolve(ctx context.Context, query string) string {
	if query == "" {
		return ""
	}

	u, err := r.provider.Search(ctx, query)
	if err != nil {
		r.logger.Error("GIF fetch failed", "query", query, "error", fmt.Errorf("%w: %w", soltron.ErrMediaFetch, err))
		return ""
	}
	if !IsGIF(u) {
		r.logger.Error("GIF fetch failed", "query", query, "error", fmt.Errorf("%w: not a gif url %q", soltron.ErrMediaFetch, u))
		return ""
	}

	r.logger.Info("GIF resolved", "query", query, "url", u)
	return u
}

// IsGIF reports whether u carries the .gif format marker.
func IsGIF(u string) bool {
	return u != "" && strings.Contains(u, ".gif")
}

// httpGet issues a GET and hands 2xx responses to handle. Errors from handle are
// not retried.
func httpGet(ctx context.Context, client *http.Client, logger *slog.Logger, rawURL, purpose string, attempts uint, handle func(*http.Response) error) error {
	if attempts == 0 {
		attempts = 1
	}
	return retry.Do(
		func() error {
			logger.Info("HTTP request starting", "method", "GET", "url", redact(rawURL), "purpose", purpose)

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("User-Agent", "soltron-bot/1.0")

			startTime := time.Now()
			resp, err := client.Do(req)
			duration := time.Since(startTime)
			if err != nil {
				logger.Warn("HTTP request failed", "url", redact(rawURL), "duration_ms", duration.Milliseconds(), "error", err)
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			logger.Info("HTTP request completed",
				"url", redact(rawURL),
				"status_code", resp.StatusCode,
				"duration_ms", duration.Milliseconds())

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("HTTP %d", resp.StatusCode)
			}
			if err := handle(resp); err != nil {
				return retry.Unrecoverable(err)
			}
			return nil
		},
		retry.Attempts(attempts),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Info("Retrying "+purpose+" after error", "attempt", n, "error", err)
		}),
	)
}

// redact strips the query string so API keys never reach the logs.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
