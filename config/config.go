// Package config loads bot settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/joho/godotenv"

	"soltron-bot/counter"
	"soltron-bot/platform"
)

// DefaultLaunchDate is the STRON token launch, midnight UTC.
const DefaultLaunchDate = "2025-05-30"

// Config holds all runtime settings.
type Config struct {
	Port     string
	LogLevel slog.Level

	LaunchAt     time.Time
	DailyPostCap int
	RandomSeed   int64
	ContentFile  string

	Platform          string // x, telegram or mock
	X                 platform.XCredentials
	XHandle           string
	TelegramToken     string
	TelegramChannelID int64
	TelegramChannel   string // Public username for post links

	MediaProvider string // giphy or page
	GiphyAPIKey   string
	MediaPageURL  string

	CounterBackend string // file, gcs, redis or memory
	LocalStorage   string
	StorageBucket  string
	CounterFile    string
	RedisAddr      string

	FirestoreProject      string // Empty keeps metrics in memory
	GoogleCredentialsJSON string

	ErrorLog      string
	RetryAttempts uint
	Schedule      string
}

// LoadEnv loads .env files into the process environment when present.
func LoadEnv(logger *slog.Logger, files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var loaded []string
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			logger.Warn("Failed to load env file", "file", file, "error", err)
			continue
		}
		loaded = append(loaded, file)
	}
	if len(loaded) == 0 {
		logger.Debug("No env files loaded; using process environment")
		return
	}
	logger.Debug("Loaded env files", "files", strings.Join(loaded, ", "))
}

// Load builds the config from getenv (os.Getenv when nil).
func Load(getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	var errs []error
	envInt := func(key string, def int) int {
		v := env(key, "")
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return n
	}

	cfg := &Config{
		Port:          env("PORT", "8080"),
		DailyPostCap:  envInt("DAILY_POST_CAP", counter.DefaultDailyCap),
		RandomSeed:    int64(envInt("RANDOM_SEED", 0)),
		ContentFile:   env("CONTENT_FILE", ""),
		X: platform.XCredentials{
			APIKey:       env("X_API_KEY", ""),
			APISecret:    env("X_API_SECRET", ""),
			AccessToken:  env("X_ACCESS_TOKEN", ""),
			AccessSecret: env("X_ACCESS_SECRET", ""),
		},
		XHandle:               env("X_HANDLE", "SoltronBot"),
		TelegramToken:         env("TELEGRAM_BOT_TOKEN", ""),
		TelegramChannel:       strings.TrimPrefix(env("TELEGRAM_CHANNEL", ""), "@"),
		MediaProvider:         strings.ToLower(env("MEDIA_PROVIDER", "giphy")),
		GiphyAPIKey:           env("GIPHY_API_KEY", ""),
		MediaPageURL:          env("MEDIA_PAGE_URL", ""),
		LocalStorage:          env("LOCAL_STORAGE", "./data"),
		StorageBucket:         env("STORAGE_BUCKET", ""),
		CounterFile:           env("COUNTER_FILE", "tweet_count.json"),
		RedisAddr:             env("REDIS_ADDR", ""),
		FirestoreProject:      env("FIRESTORE_PROJECT", ""),
		GoogleCredentialsJSON: env("GOOGLE_CREDENTIALS_JSON", ""),
		ErrorLog:              env("ERROR_LOG", "error.log"),
		Schedule:              env("SCHEDULE", ""),
	}

	level, err := parseLevel(env("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.LogLevel = level

	launch, err := dateparse.ParseIn(env("LAUNCH_DATE", DefaultLaunchDate), time.UTC)
	if err != nil {
		errs = append(errs, fmt.Errorf("LAUNCH_DATE: %w", err))
	}
	cfg.LaunchAt = launch.UTC()

	attempts := envInt("RETRY_ATTEMPTS", 1)
	if attempts < 1 {
		errs = append(errs, fmt.Errorf("RETRY_ATTEMPTS must be at least 1, got %d", attempts))
		attempts = 1
	}
	cfg.RetryAttempts = uint(attempts)

	if v := env("TELEGRAM_CHANNEL_ID", ""); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TELEGRAM_CHANNEL_ID: %w", err))
		}
		cfg.TelegramChannelID = id
	}

	cfg.Platform = strings.ToLower(env("PLATFORM", ""))
	if cfg.Platform == "" {
		cfg.Platform = "mock"
		if cfg.X.Complete() {
			cfg.Platform = "x"
		}
	}

	cfg.CounterBackend = strings.ToLower(env("COUNTER_BACKEND", ""))
	if cfg.CounterBackend == "" {
		cfg.CounterBackend = "file"
		if cfg.StorageBucket != "" {
			cfg.CounterBackend = "gcs"
		}
	}

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.DailyPostCap < 1 {
		errs = append(errs, fmt.Errorf("DAILY_POST_CAP must be positive, got %d", c.DailyPostCap))
	}

	switch c.Platform {
	case "x":
		if !c.X.Complete() {
			errs = append(errs, errors.New("PLATFORM=x requires X_API_KEY, X_API_SECRET, X_ACCESS_TOKEN and X_ACCESS_SECRET"))
		}
	case "telegram":
		if c.TelegramToken == "" || c.TelegramChannelID == 0 {
			errs = append(errs, errors.New("PLATFORM=telegram requires TELEGRAM_BOT_TOKEN and TELEGRAM_CHANNEL_ID"))
		}
	case "mock":
	default:
		errs = append(errs, fmt.Errorf("unknown PLATFORM %q", c.Platform))
	}

	switch c.MediaProvider {
	case "giphy":
	case "page":
		if !strings.Contains(c.MediaPageURL, "{query}") {
			errs = append(errs, errors.New("MEDIA_PROVIDER=page requires MEDIA_PAGE_URL with a {query} placeholder"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MEDIA_PROVIDER %q", c.MediaProvider))
	}

	switch c.CounterBackend {
	case "file", "memory":
	case "gcs":
		if c.StorageBucket == "" {
			errs = append(errs, errors.New("COUNTER_BACKEND=gcs requires STORAGE_BUCKET"))
		}
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("COUNTER_BACKEND=redis requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown COUNTER_BACKEND %q", c.CounterBackend))
	}
	return errors.Join(errs...)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
