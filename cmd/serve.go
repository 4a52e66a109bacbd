package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/arxaplan/cutout/internal/background"
	"github.com/arxaplan/cutout/internal/handlers"
	"github.com/arxaplan/cutout/internal/images"
	"github.com/arxaplan/cutout/internal/presets"
	"github.com/arxaplan/cutout/internal/removal"
	"github.com/arxaplan/cutout/internal/report"
	"github.com/arxaplan/cutout/internal/share"
	"github.com/arxaplan/cutout/internal/utils"
	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port        string
		host        string
		historyFile string
		presetsFile string
		workers     int
		shareTTL    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local editing API",
		Long: `Starts the cutout API on the specified host and port.

Each editing session holds one photo with its undo/redo history. Uploads go to
the background removal service (REMOVEBG_API_KEY), AI backgrounds to OpenAI or
Gemini (BACKGROUND_PROVIDER), and share links to R2 when R2_* is configured.`,
		Example: `  # Start server on default port 8888
  cutout serve

  # Keep processing history across restarts
  cutout serve --history-file history.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sentryEnabled := initSentry()
			if sentryEnabled {
				defer sentry.Flush(2 * time.Second)
			}

			history, err := loadHistory(historyFile)
			if err != nil {
				return err
			}

			catalog := presets.Default()
			if presetsFile != "" {
				if catalog, err = presets.Load(presetsFile); err != nil {
					return err
				}
			}

			bg, err := background.NewServiceFromEnv()
			if err != nil {
				return err
			}
			slog.Info("AI backgrounds enabled", "provider", bg.Provider())

			handler := handlers.New(ctx, handlers.Config{
				Remover:    removal.NewClient(),
				Background: bg,
				Presets:    catalog,
				History:    history,
				Share:      newShareService(ctx, shareTTL),
				Fetcher:    images.NewFetcher(),
				Workers:    workers,
			})
			defer handler.Close()

			addr := net.JoinHostPort(host, port)
			server := &http.Server{
				Addr:    addr,
				Handler: handlers.SetupServer(handler, handlers.ServerOptions{Sentry: sentryEnabled}),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Cutout API available", "addr", addr, "url", "http://"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				saveHistory(history, historyFile)
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				saveHistory(history, historyFile)
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host to bind")
	cmd.Flags().StringVar(&historyFile, "history-file", "", "Load and save processing history (.parquet or .yaml)")
	cmd.Flags().StringVar(&presetsFile, "presets", "", "YAML file replacing the built-in background presets")
	cmd.Flags().IntVar(&workers, "workers", 1, "Concurrent removals per batch")
	cmd.Flags().DurationVar(&shareTTL, "share-ttl", share.DefaultTTL, "Lifetime of presigned share links")

	return cmd
}

func initSentry() bool {
	dsn := utils.GetEnv("SENTRY_DSN", "")
	if dsn == "" {
		return false
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      utils.GetEnv("ENV", "local"),
		Release:          "cutout@" + Version,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		slog.Error("Sentry initialization failed", "err", err)
		return false
	}
	return true
}

func newShareService(ctx context.Context, ttl time.Duration) *share.Service {
	store, err := share.NewR2StoreFromEnv(ctx)
	if err != nil {
		if !errors.Is(err, share.ErrNotConfigured) {
			slog.Warn("Object storage unavailable, share links will be inline", "err", err)
		}
		return share.NewService(nil, ttl)
	}
	return share.NewService(store, ttl)
}

func loadHistory(path string) (*report.Log, error) {
	if path == "" {
		return report.NewLog(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return report.NewLog(), nil
	}
	history, err := report.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Info("Loaded processing history", "file", path, "records", len(history.Records()))
	return history, nil
}

func saveHistory(history *report.Log, path string) {
	if path == "" {
		return
	}
	if err := history.Save(path); err != nil {
		slog.Error("Failed to save processing history", "file", path, "err", err)
		return
	}
	slog.Info("Saved processing history", "file", path)
}
