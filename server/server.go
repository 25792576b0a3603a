// Package server handles HTTP endpoints and request routing.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"soltron-bot/bot"
	"soltron-bot/pkg/soltron"
)

const (
	maxInputLen  = 500
	defaultStats = 7
	maxStats     = 90
)

// Runner runs strategies.
type Runner interface {
	Run(ctx context.Context, strategy, input string) (bot.Result, error)
	CharacterInfo(name string) string
}

// Stats lists recent daily metrics.
type Stats interface {
	Recent(ctx context.Context, limit int) ([]soltron.DailyMetric, error)
}

// Server handles HTTP requests.
type Server struct {
	runner Runner
	stats  Stats
	logger *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Runner Runner
	Stats  Stats
	Logger *slog.Logger
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		runner: cfg.Runner,
		stats:  cfg.Stats,
		logger: cfg.Logger,
	}
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/post", s.handlePost)
	mux.HandleFunc("/character", s.handleCharacter)
	mux.HandleFunc("/stats", s.handleStats)
	mux.Handle("/metrics", promhttp.Handler())
	return s.withRequestID(mux)
}

// ListenAndServe serves on port until ctx is cancelled, then drains connections.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	// Configure server with timeouts to prevent resource exhaustion
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      3 * time.Minute, // Media upload and processing can be slow
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "port", port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

type postResponse struct {
	Status   string `json:"status"`
	Strategy string `json:"strategy"`
	Launched bool   `json:"launched"`
	Text     string `json:"text"`
	PostID   string `json:"post_id,omitempty"`
	URL      string `json:"url,omitempty"`
	Media    bool   `json:"media"`
	MediaURL string `json:"media_url,omitempty"`
}

// handlePost runs one strategy. Triggered by the external scheduler.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	strategy := r.FormValue("strategy")
	input := r.FormValue("text")
	if len(input) > maxInputLen {
		http.Error(w, "Text too long", http.StatusBadRequest)
		return
	}

	logger := loggerFrom(r.Context(), s.logger)
	logger.Info("Post endpoint triggered", "strategy", strategy)

	res, err := s.runner.Run(r.Context(), strategy, input)
	if err != nil {
		if errors.Is(err, bot.ErrUnknownStrategy) {
			http.Error(w, "Unknown strategy", http.StatusBadRequest)
			return
		}
		if errors.Is(err, bot.ErrMissingInput) {
			http.Error(w, "Missing text", http.StatusBadRequest)
			return
		}
		logger.Error("Post run failed", "strategy", strategy, "error", err)
		http.Error(w, "Publish failed", http.StatusBadGateway)
		return
	}

	status := "published"
	if !res.Published {
		status = "composed"
	}
	s.writeJSON(w, r, http.StatusOK, postResponse{
		Status:   status,
		Strategy: string(res.Strategy),
		Launched: res.Launched,
		Text:     res.Text,
		PostID:   res.Post.Handle.ID,
		URL:      res.Post.Handle.URL,
		Media:    res.Post.MediaAttached,
		MediaURL: res.Post.MediaURL,
	})
}

func (s *Server) handleCharacter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" || len(name) > maxInputLen {
		http.Error(w, "Missing or invalid name", http.StatusBadRequest)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{"name": name, "text": s.runner.CharacterInfo(name)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.stats == nil {
		http.Error(w, "Stats not configured", http.StatusNotFound)
		return
	}

	limit := defaultStats
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxStats {
			http.Error(w, "Invalid days", http.StatusBadRequest)
			return
		}
		limit = n
	}

	days, err := s.stats.Recent(r.Context(), limit)
	if err != nil {
		loggerFrom(r.Context(), s.logger).Error("Stats query failed", "error", err)
		http.Error(w, "Stats unavailable", http.StatusInternalServerError)
		return
	}
	if days == nil {
		days = []soltron.DailyMetric{}
	}
	s.writeJSON(w, r, http.StatusOK, days)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		loggerFrom(r.Context(), s.logger).Warn("Failed to write response", "path", r.URL.Path, "error", err)
	}
}
