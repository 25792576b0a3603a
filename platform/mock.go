package platform

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"soltron-bot/pkg/soltron"
)

// MockProvider is a mock platform provider for local development.
type MockProvider struct {
	logger *slog.Logger
	mu     sync.Mutex
	seq    int
}

// NewMockProvider creates a new mock platform provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{
		logger: logger,
	}
}

// Name returns "mock".
func (m *MockProvider) Name() string { return "mock" }

// UploadMedia logs the upload instead of performing it.
func (m *MockProvider) UploadMedia(_ context.Context, data []byte, mimeType string) (string, error) {
	id := m.next()
	m.logger.Info("MOCK MEDIA UPLOAD",
		"media_id", id,
		"mime_type", mimeType,
		"bytes", len(data))
	return id, nil
}

// Publish logs the post instead of sending it.
func (m *MockProvider) Publish(_ context.Context, text string, mediaIDs []string) (soltron.PostHandle, error) {
	id := m.next()
	m.logger.Info("MOCK POST",
		"post_id", id,
		"text", text,
		"media_ids", mediaIDs)
	return soltron.PostHandle{ID: id, URL: "mock://posts/" + id}, nil
}

func (m *MockProvider) next() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return fmt.Sprintf("mock-%d", m.seq)
}
