package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"soltron-bot/pkg/soltron"
)

// MaxGIFBytes is the largest animated GIF the platforms accept.
const MaxGIFBytes = 15 << 20

// Downloader fetches media bytes for upload.
type Downloader struct {
	client   *http.Client
	attempts uint
	logger   *slog.Logger
}

// NewDownloader creates a downloader.
func NewDownloader(attempts uint, logger *slog.Logger) *Downloader {
	return &Downloader{
		client:   &http.Client{Timeout: 60 * time.Second},
		attempts: attempts,
		logger:   logger,
	}
}

// Download returns the body at rawURL. Bodies over MaxGIFBytes are rejected.
func (d *Downloader) Download(ctx context.Context, rawURL string) ([]byte, error) {
	var data []byte
	err := httpGet(ctx, d.client, d.logger, rawURL, "media_download", d.attempts, func(resp *http.Response) error {
		var err error
		data, err = io.ReadAll(io.LimitReader(resp.Body, MaxGIFBytes+1))
		if err != nil {
			return fmt.Errorf("read media body: %w", err)
		}
		if len(data) > MaxGIFBytes {
			return fmt.Errorf("media larger than %d bytes", MaxGIFBytes)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %w", soltron.ErrMediaUpload, rawURL, err)
	}
	return data, nil
}
