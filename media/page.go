package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// PageProvider scrapes a search results page for the first GIF, for use when no
// API key is available. The URL template must contain {query}.
type PageProvider struct {
	urlTemplate string
	client      *http.Client
	attempts    uint
	logger      *slog.Logger
}

// NewPageProvider creates a page provider.
func NewPageProvider(urlTemplate string, attempts uint, logger *slog.Logger) (*PageProvider, error) {
	if !strings.Contains(urlTemplate, "{query}") {
		return nil, errors.New("media page URL must contain {query}")
	}
	return &PageProvider{
		urlTemplate: urlTemplate,
		client:      &http.Client{Timeout: 30 * time.Second},
		attempts:    attempts,
		logger:      logger,
	}, nil
}

// Search fetches the page for query and extracts a GIF URL.
func (p *PageProvider) Search(ctx context.Context, query string) (string, error) {
	pageURL := strings.ReplaceAll(p.urlTemplate, "{query}", url.PathEscape(query))

	var found string
	err := httpGet(ctx, p.client, p.logger, pageURL, "media_page", p.attempts, func(resp *http.Response) error {
		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return fmt.Errorf("parse media page: %w", err)
		}
		found = extractGIF(doc, resp.Request.URL)
		if found == "" {
			return ErrNoResults
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return found, nil
}

// extractGIF prefers the page's og:image when it is a GIF, then the first GIF <img>.
func extractGIF(doc *goquery.Document, base *url.URL) string {
	var candidates []string
	if og, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		candidates = append(candidates, og)
	}
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			candidates = append(candidates, src)
		}
	})

	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if !IsGIF(c) {
			continue
		}
		ref, err := url.Parse(c)
		if err != nil {
			continue
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		return ref.String()
	}
	return ""
}
