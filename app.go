package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	gcs "cloud.google.com/go/storage"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"soltron-bot/bot"
	"soltron-bot/compose"
	"soltron-bot/config"
	"soltron-bot/counter"
	"soltron-bot/media"
	"soltron-bot/platform"
	"soltron-bot/publish"
	"soltron-bot/storage"
)

// app is the wired bot and the resources it holds open.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	bot     *bot.Bot
	stats   storage.MetricsBackend
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	content, err := compose.LoadContentFile(cfg.ContentFile)
	if err != nil {
		return nil, err
	}

	counterStore, err := a.counterBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	metricsStore, err := a.metricsBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	port := storage.Join(counterStore, metricsStore)
	a.stats = port

	plat, err := a.platform()
	if err != nil {
		a.Close()
		return nil, err
	}
	provider, err := a.mediaProvider()
	if err != nil {
		a.Close()
		return nil, err
	}

	pub := publish.New(
		media.NewResolver(provider, logger),
		counter.New(port, cfg.DailyPostCap, nil, logger),
		media.NewDownloader(cfg.RetryAttempts, logger),
		plat,
		port,
		logger,
	)
	a.bot = bot.New(compose.New(content, compose.NewRandomPicker(cfg.RandomSeed)), pub, cfg.LaunchAt, nil, logger)

	logger.Info("Soltron bot initialized",
		"platform", plat.Name(),
		"media_provider", cfg.MediaProvider,
		"counter_backend", cfg.CounterBackend,
		"metrics", cfg.FirestoreProject != "",
		"launch_at", cfg.LaunchAt,
		"daily_cap", cfg.DailyPostCap)
	return a, nil
}

// Close releases clients in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close client", "error", err)
		}
	}
	a.closers = nil
}

func (a *app) counterBackend(ctx context.Context) (storage.CounterBackend, error) {
	cfg := a.cfg
	switch cfg.CounterBackend {
	case "memory":
		a.logger.Info("Counter kept in memory; it resets on restart")
		return storage.NewMemory(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rc := storage.NewRedisCounter(client, "", a.logger)
		a.closers = append(a.closers, rc.Close)
		return rc, nil
	case "gcs":
		var opts []option.ClientOption
		if cfg.GoogleCredentialsJSON != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.GoogleCredentialsJSON)))
		}
		client, err := gcs.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("initialize storage client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return storage.New(client, cfg.StorageBucket, "", cfg.CounterFile, cfg.RetryAttempts, a.logger), nil
	default:
		if err := os.MkdirAll(cfg.LocalStorage, 0o755); err != nil {
			return nil, fmt.Errorf("create local storage directory: %w", err)
		}
		a.logger.Info("Counter kept on local filesystem", "storage_path", cfg.LocalStorage)
		return storage.New(nil, "", cfg.LocalStorage, cfg.CounterFile, cfg.RetryAttempts, a.logger), nil
	}
}

func (a *app) metricsBackend(ctx context.Context) (storage.MetricsBackend, error) {
	if a.cfg.FirestoreProject == "" {
		a.logger.Info("Metrics kept in memory (no FIRESTORE_PROJECT)")
		return storage.NewMemory(), nil
	}
	client, err := storage.NewFirestoreClient(ctx, a.cfg.FirestoreProject, a.cfg.GoogleCredentialsJSON)
	if err != nil {
		return nil, err
	}
	m := storage.NewMetrics(client, storage.DefaultMetricsCollection, a.logger)
	a.closers = append(a.closers, m.Close)
	return m, nil
}

func (a *app) platform() (platform.Provider, error) {
	cfg := a.cfg
	switch cfg.Platform {
	case "x":
		return platform.NewXProvider(cfg.X, cfg.XHandle, cfg.RetryAttempts, a.logger), nil
	case "telegram":
		api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			return nil, fmt.Errorf("initialize telegram bot: %w", err)
		}
		return platform.NewTelegramProvider(api, cfg.TelegramChannelID, cfg.TelegramChannel, a.logger), nil
	case "mock":
		a.logger.Info("Mock platform enabled (no X credentials)")
		return platform.NewMockProvider(a.logger), nil
	default:
		return nil, fmt.Errorf("unknown platform %q", cfg.Platform)
	}
}

func (a *app) mediaProvider() (media.Provider, error) {
	switch a.cfg.MediaProvider {
	case "page":
		return media.NewPageProvider(a.cfg.MediaPageURL, a.cfg.RetryAttempts, a.logger)
	case "giphy":
		if a.cfg.GiphyAPIKey == "" {
			a.logger.Warn("GIPHY_API_KEY not set; every post will be text-only")
		}
		return media.NewGiphyProvider(a.cfg.GiphyAPIKey, "", a.cfg.RetryAttempts, a.logger), nil
	default:
		return nil, errors.New("unknown media provider " + a.cfg.MediaProvider)
	}
}
