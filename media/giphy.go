package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGiphyBaseURL is the GIPHY API root.
const DefaultGiphyBaseURL = "https://api.giphy.com"

// GiphyProvider searches the GIPHY API.
type GiphyProvider struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	attempts uint
	logger   *slog.Logger
}

// NewGiphyProvider creates a GIPHY provider. An empty baseURL uses the public API.
func NewGiphyProvider(apiKey, baseURL string, attempts uint, logger *slog.Logger) *GiphyProvider {
	if baseURL == "" {
		baseURL = DefaultGiphyBaseURL
	}
	return &GiphyProvider{
		apiKey:   apiKey,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   &http.Client{Timeout: 30 * time.Second},
		attempts: attempts,
		logger:   logger,
	}
}

type giphySearchResponse struct {
	Data []struct {
		Images struct {
			Downsized struct {
				URL string `json:"url"`
			} `json:"downsized"`
		} `json:"images"`
	} `json:"data"`
}

// Search returns the downsized URL of the first result.
func (g *GiphyProvider) Search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("api_key", g.apiKey)
	params.Set("q", query)
	params.Set("limit", "1")
	searchURL := g.baseURL + "/v1/gifs/search?" + params.Encode()

	var found string
	err := httpGet(ctx, g.client, g.logger, searchURL, "giphy_search", g.attempts, func(resp *http.Response) error {
		var body giphySearchResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("decode giphy response: %w", err)
		}
		if len(body.Data) == 0 || body.Data[0].Images.Downsized.URL == "" {
			return ErrNoResults
		}
		found = body.Data[0].Images.Downsized.URL
		return nil
	})
	if err != nil {
		return "", err
	}
	return found, nil
}
