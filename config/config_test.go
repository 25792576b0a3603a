package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(envMap(nil))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" || cfg.DailyPostCap != 15 || cfg.RetryAttempts != 1 {
		t.Errorf("defaults = %+v", cfg)
	}
	if want := time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC); !cfg.LaunchAt.Equal(want) {
		t.Errorf("LaunchAt = %v, want %v", cfg.LaunchAt, want)
	}
	if cfg.Platform != "mock" || cfg.CounterBackend != "file" || cfg.MediaProvider != "giphy" {
		t.Errorf("providers = %s/%s/%s", cfg.Platform, cfg.CounterBackend, cfg.MediaProvider)
	}
	if cfg.CounterFile != "tweet_count.json" || cfg.ErrorLog != "error.log" {
		t.Errorf("files = %s, %s", cfg.CounterFile, cfg.ErrorLog)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
}

func TestLoadDerivedDefaults(t *testing.T) {
	cfg, err := Load(envMap(map[string]string{
		"X_API_KEY":       "k",
		"X_API_SECRET":    "s",
		"X_ACCESS_TOKEN":  "t",
		"X_ACCESS_SECRET": "a",
		"STORAGE_BUCKET":  "soltron-state",
	}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Platform != "x" {
		t.Errorf("Platform = %q, want x", cfg.Platform)
	}
	if cfg.CounterBackend != "gcs" {
		t.Errorf("CounterBackend = %q, want gcs", cfg.CounterBackend)
	}
}

func TestLoadLaunchDateFormats(t *testing.T) {
	tests := []struct {
		value string
		want  time.Time
	}{
		{"2025-06-15", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"2025-06-15T18:30:00Z", time.Date(2025, 6, 15, 18, 30, 0, 0, time.UTC)},
		{"June 15, 2025", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		cfg, err := Load(envMap(map[string]string{"LAUNCH_DATE": tt.value}))
		if err != nil {
			t.Errorf("Load(LAUNCH_DATE=%q) error = %v", tt.value, err)
			continue
		}
		if !cfg.LaunchAt.Equal(tt.want) {
			t.Errorf("LAUNCH_DATE=%q -> %v, want %v", tt.value, cfg.LaunchAt, tt.want)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad cap", map[string]string{"DAILY_POST_CAP": "many"}, "DAILY_POST_CAP"},
		{"zero cap", map[string]string{"DAILY_POST_CAP": "0"}, "DAILY_POST_CAP"},
		{"bad launch", map[string]string{"LAUNCH_DATE": "soon"}, "LAUNCH_DATE"},
		{"x without keys", map[string]string{"PLATFORM": "x"}, "PLATFORM=x"},
		{"telegram without chat", map[string]string{"PLATFORM": "telegram", "TELEGRAM_BOT_TOKEN": "t"}, "TELEGRAM_CHANNEL_ID"},
		{"unknown platform", map[string]string{"PLATFORM": "myspace"}, "unknown PLATFORM"},
		{"page without template", map[string]string{"MEDIA_PROVIDER": "page", "MEDIA_PAGE_URL": "https://example.com"}, "{query}"},
		{"redis without addr", map[string]string{"COUNTER_BACKEND": "redis"}, "REDIS_ADDR"},
		{"zero attempts", map[string]string{"RETRY_ATTEMPTS": "0"}, "RETRY_ATTEMPTS"},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(envMap(tt.env))
			if err == nil {
				t.Fatal("Load() error = nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SOLTRON_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SOLTRON_TEST_VALUE", "")
	os.Unsetenv("SOLTRON_TEST_VALUE")

	LoadEnv(slog.New(slog.NewTextHandler(io.Discard, nil)), path)
	if got := os.Getenv("SOLTRON_TEST_VALUE"); got != "from-file" {
		t.Errorf("SOLTRON_TEST_VALUE = %q, want from-file", got)
	}
}
