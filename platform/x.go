package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/dghubble/oauth1"

	"soltron-bot/pkg/soltron"
)

const (
	DefaultXAPIURL    = "https://api.twitter.com"
	DefaultXUploadURL = "https://upload.twitter.com/1.1/media/upload.json"

	chunkSize       = 4 << 20
	maxStatusChecks = 30
)

// XCredentials are the OAuth 1.0a user-context keys for the posting account.
type XCredentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// Complete reports whether all four keys are set.
func (c XCredentials) Complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

// XProvider posts to X: chunked media upload on the v1.1 endpoint, posts on v2.
type XProvider struct {
	client    *http.Client
	apiURL    string
	uploadURL string
	handle    string
	attempts  uint
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewXProvider creates an X provider signing every request with creds.
func NewXProvider(creds XCredentials, handle string, attempts uint, logger *slog.Logger) *XProvider {
	config := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	client := config.Client(context.Background(), token)
	client.Timeout = 60 * time.Second
	return NewXProviderWithClient(client, DefaultXAPIURL, DefaultXUploadURL, handle, attempts, logger)
}

// NewXProviderWithClient creates an X provider over a caller-supplied client and endpoints.
func NewXProviderWithClient(client *http.Client, apiURL, uploadURL, handle string, attempts uint, logger *slog.Logger) *XProvider {
	if attempts == 0 {
		attempts = 1
	}
	return &XProvider{
		client:    client,
		apiURL:    strings.TrimSuffix(apiURL, "/"),
		uploadURL: uploadURL,
		handle:    handle,
		attempts:  attempts,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

// Name returns "x".
func (x *XProvider) Name() string { return "x" }

type xMediaResponse struct {
	MediaIDString  string `json:"media_id_string"`
	ProcessingInfo *struct {
		State          string `json:"state"`
		CheckAfterSecs int    `json:"check_after_secs"`
		Error          *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"processing_info"`
}

// UploadMedia runs INIT, APPEND per chunk, FINALIZE and waits for processing.
func (x *XProvider) UploadMedia(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty media", soltron.ErrMediaUpload)
	}

	var initResp xMediaResponse
	form := url.Values{
		"command":        {"INIT"},
		"total_bytes":    {strconv.Itoa(len(data))},
		"media_type":     {mimeType},
		"media_category": {mediaCategory(mimeType)},
	}
	if err := x.do(ctx, http.MethodPost, x.uploadURL, "application/x-www-form-urlencoded", []byte(form.Encode()), "media_init", &initResp); err != nil {
		return "", fmt.Errorf("%w: init: %w", soltron.ErrMediaUpload, err)
	}
	mediaID := initResp.MediaIDString
	if mediaID == "" {
		return "", fmt.Errorf("%w: init returned no media id", soltron.ErrMediaUpload)
	}

	for i, off := 0, 0; off < len(data); i, off = i+1, off+chunkSize {
		end := min(off+chunkSize, len(data))
		body, contentType, err := appendBody(mediaID, i, data[off:end])
		if err != nil {
			return "", fmt.Errorf("%w: build append: %w", soltron.ErrMediaUpload, err)
		}
		if err := x.do(ctx, http.MethodPost, x.uploadURL, contentType, body, "media_append", nil); err != nil {
			return "", fmt.Errorf("%w: append segment %d: %w", soltron.ErrMediaUpload, i, err)
		}
	}

	var fin xMediaResponse
	form = url.Values{"command": {"FINALIZE"}, "media_id": {mediaID}}
	if err := x.do(ctx, http.MethodPost, x.uploadURL, "application/x-www-form-urlencoded", []byte(form.Encode()), "media_finalize", &fin); err != nil {
		return "", fmt.Errorf("%w: finalize: %w", soltron.ErrMediaUpload, err)
	}

	if err := x.waitProcessing(ctx, mediaID, fin); err != nil {
		return "", fmt.Errorf("%w: %w", soltron.ErrMediaUpload, err)
	}

	x.logger.Info("X media uploaded", "media_id", mediaID, "bytes", len(data))
	return mediaID, nil
}

func (x *XProvider) waitProcessing(ctx context.Context, mediaID string, resp xMediaResponse) error {
	for checks := 0; resp.ProcessingInfo != nil; checks++ {
		info := resp.ProcessingInfo
		switch info.State {
		case "succeeded":
			return nil
		case "failed":
			msg := "unknown error"
			if info.Error != nil {
				msg = info.Error.Message
			}
			return fmt.Errorf("media processing failed: %s", msg)
		}
		if checks >= maxStatusChecks {
			return errors.New("media processing did not finish")
		}

		wait := time.Duration(max(info.CheckAfterSecs, 1)) * time.Second
		x.logger.Debug("Waiting for X media processing", "media_id", mediaID, "state", info.State, "wait", wait.String())
		if err := x.sleep(ctx, wait); err != nil {
			return err
		}

		resp = xMediaResponse{}
		statusURL := x.uploadURL + "?" + url.Values{"command": {"STATUS"}, "media_id": {mediaID}}.Encode()
		if err := x.do(ctx, http.MethodGet, statusURL, "", nil, "media_status", &resp); err != nil {
			return fmt.Errorf("status: %w", err)
		}
	}
	return nil
}

type xTweetRequest struct {
	Text  string       `json:"text"`
	Media *xTweetMedia `json:"media,omitempty"`
}

type xTweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type xTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// Publish creates a post via the v2 API.
func (x *XProvider) Publish(ctx context.Context, text string, mediaIDs []string) (soltron.PostHandle, error) {
	reqBody := xTweetRequest{Text: text}
	if len(mediaIDs) > 0 {
		reqBody.Media = &xTweetMedia{MediaIDs: mediaIDs}
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return soltron.PostHandle{}, fmt.Errorf("%w: marshal request: %w", soltron.ErrPublish, err)
	}

	var resp xTweetResponse
	if err := x.do(ctx, http.MethodPost, x.apiURL+"/2/tweets", "application/json", jsonData, "create_tweet", &resp); err != nil {
		return soltron.PostHandle{}, fmt.Errorf("%w: create tweet: %w", soltron.ErrPublish, err)
	}
	if resp.Data.ID == "" {
		return soltron.PostHandle{}, fmt.Errorf("%w: create tweet returned no id", soltron.ErrPublish)
	}

	return soltron.PostHandle{
		ID:  resp.Data.ID,
		URL: fmt.Sprintf("https://x.com/%s/status/%s", x.handle, resp.Data.ID),
	}, nil
}

func (x *XProvider) do(ctx context.Context, method, endpoint, contentType string, body []byte, op string, out any) error {
	return retry.Do(
		func() error {
			x.logger.Info("X API request starting", "method", method, "endpoint", op)

			var reader io.Reader = http.NoBody
			if body != nil {
				reader = bytes.NewReader(body)
			}
			req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			if contentType != "" {
				req.Header.Set("Content-Type", contentType)
			}

			startTime := time.Now()
			resp, err := x.client.Do(req)
			duration := time.Since(startTime)
			if err != nil {
				x.logger.Warn("X API request failed", "endpoint", op, "duration_ms", duration.Milliseconds(), "error", err)
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					x.logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				x.logger.Warn("X API returned non-2xx status",
					"endpoint", op,
					"status_code", resp.StatusCode,
					"body", string(detail))
				err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return retry.Unrecoverable(err)
				}
				return err
			}

			x.logger.Info("X API request completed",
				"endpoint", op,
				"status_code", resp.StatusCode,
				"duration_ms", duration.Milliseconds())

			if out == nil || resp.StatusCode == http.StatusNoContent {
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
			}
			return nil
		},
		retry.Attempts(x.attempts),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			x.logger.Info("Retrying X API request after error", "attempt", n, "endpoint", op, "error", err)
		}),
	)
}

func appendBody(mediaID string, segment int, chunk []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"command", "APPEND"},
		{"media_id", mediaID},
		{"segment_index", strconv.Itoa(segment)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	part, err := w.CreateFormFile("media", "media")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(chunk); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func mediaCategory(mimeType string) string {
	switch {
	case mimeType == "image/gif":
		return "tweet_gif"
	case strings.HasPrefix(mimeType, "video/"):
		return "tweet_video"
	default:
		return "tweet_image"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
