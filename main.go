// Package main runs the Soltron posting bot as an HTTP service or a one-shot CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"soltron-bot/config"
	"soltron-bot/errlog"
	"soltron-bot/schedule"
	"soltron-bot/server"
)

// runTimeout bounds one strategy run from the CLI or the scheduler.
const runTimeout = 3 * time.Minute

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "soltron-bot",
		Short:         "Soltron promotional posting bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file to load before reading the environment")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the HTTP trigger endpoints and run scheduled strategies",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), envFile, runServe)
			},
		},
		&cobra.Command{
			Use:   "post <strategy> [text...]",
			Short: "Compose and publish one post",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), envFile, func(ctx context.Context, a *app) error {
					return runPost(ctx, a, out, args[0], strings.Join(args[1:], " "))
				})
			},
		},
		&cobra.Command{
			Use:   "character <name...>",
			Short: "Print the character lookup reply without posting",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), envFile, func(_ context.Context, a *app) error {
					_, err := fmt.Fprintln(out, a.bot.CharacterInfo(strings.Join(args, " ")))
					return err
				})
			},
		},
	)
	return root
}

// withApp loads config, builds the logger and the app, runs fn and releases resources.
func withApp(ctx context.Context, envFile string, fn func(context.Context, *app) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	bootstrap := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	config.LoadEnv(bootstrap, envFile)

	cfg, err := config.Load(nil)
	if err != nil {
		bootstrap.Error("Invalid configuration", "error", err)
		return err
	}

	errFile, err := errlog.Open(cfg.ErrorLog)
	if err != nil {
		bootstrap.Error("Failed to open error log", "path", cfg.ErrorLog, "error", err)
		return err
	}
	defer func() {
		if closeErr := errFile.Close(); closeErr != nil {
			bootstrap.Warn("Failed to close error log", "error", closeErr)
		}
	}()

	// Initialize structured logger
	logger := slog.New(errlog.NewHandler(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}), errFile))
	slog.SetDefault(logger)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func runServe(ctx context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	entries, err := schedule.Parse(a.cfg.Schedule)
	if err != nil {
		a.logger.Error("Invalid SCHEDULE", "error", err)
		return err
	}
	if len(entries) > 0 {
		sched, err := schedule.New(a.bot, entries, runTimeout, a.logger)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), runTimeout)
			defer cancel()
			sched.Stop(stopCtx)
		}()
	} else {
		a.logger.Info("No SCHEDULE set; waiting for external triggers on /post")
	}

	srv := server.New(&server.Config{
		Runner: a.bot,
		Stats:  a.stats,
		Logger: a.logger,
	})
	if err := srv.ListenAndServe(ctx, a.cfg.Port); err != nil {
		a.logger.Error("Server failed", "error", err)
		return err
	}
	return nil
}

type postOutput struct {
	Strategy  string `json:"strategy"`
	Launched  bool   `json:"launched"`
	Published bool   `json:"published"`
	Text      string `json:"text"`
	PostID    string `json:"post_id,omitempty"`
	URL       string `json:"url,omitempty"`
	Media     bool   `json:"media"`
}

func runPost(ctx context.Context, a *app, out io.Writer, strategy, text string) error {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	res, err := a.bot.Run(ctx, strategy, text)
	if err != nil {
		a.logger.Error("Post failed", "strategy", strategy, "error", err)
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(postOutput{
		Strategy:  string(res.Strategy),
		Launched:  res.Launched,
		Published: res.Published,
		Text:      res.Text,
		PostID:    res.Post.Handle.ID,
		URL:       res.Post.Handle.URL,
		Media:     res.Post.MediaAttached,
	}); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
