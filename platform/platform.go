// Package platform publishes posts to social platforms via multiple providers.
package platform

import (
	"context"

	"soltron-bot/pkg/soltron"
)

// Provider defines the interface for social platform implementations.
type Provider interface {
	// Name returns the platform name for logs and metrics.
	Name() string
	// UploadMedia uploads media bytes and returns the platform media id.
	UploadMedia(ctx context.Context, data []byte, mimeType string) (string, error)
	// Publish creates a post with optional media ids.
	Publish(ctx context.Context, text string, mediaIDs []string) (soltron.PostHandle, error)
}
