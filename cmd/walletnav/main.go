package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/mtlprog/walletnav/internal/api"
	"github.com/mtlprog/walletnav/internal/config"
	"github.com/mtlprog/walletnav/internal/export"
	"github.com/mtlprog/walletnav/internal/logging"
	"github.com/mtlprog/walletnav/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	_ = godotenv.Load() // Load .env if present

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	var (
		cfg config.Config
		zl  *zap.Logger
	)

	return &cli.App{
		Name:  "walletnav",
		Usage: "multi-chain wallet portfolio valuation",
		Before: func(*cli.Context) error {
			cfg = config.Load()
			var err error
			zl, err = logging.Setup(cfg.LogLevel, cfg.LogFormat)
			return err
		},
		After: func(*cli.Context) error {
			if zl != nil {
				_ = zl.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and background workers",
				Action: func(c *cli.Context) error { return serve(c.Context, cfg) },
			},
			{
				Name:      "value",
				Usage:     "value a wallet and print the portfolio as JSON",
				ArgsUsage: "<address>",
				Action: func(c *cli.Context) error {
					return value(c.Context, cfg, c.Args().First())
				},
			},
			{
				Name:      "export",
				Usage:     "value a wallet and write the holdings to an XLSX workbook",
				ArgsUsage: "<address>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "xlsx", Usage: "output workbook path", Value: "portfolio.xlsx"},
				},
				Action: func(c *cli.Context) error {
					return exportXLSX(c.Context, cfg, c.Args().First(), c.String("xlsx"))
				},
			},
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	svc, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	// Start workers
	quoteWorker := worker.NewQuoteWorker(svc.external, cfg.QuoteWorkerInterval)
	go quoteWorker.Run(ctx)

	if len(cfg.WatchedWallets) > 0 {
		var hook worker.AfterSnapshotHook
		if cfg.SheetsSpreadsheetID != "" && cfg.SheetsCredentialsJSON != "" {
			writer, err := export.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsCredentialsJSON)
			if err != nil {
				return fmt.Errorf("creating sheets writer: %w", err)
			}
			hook = export.NewService(writer)
		}
		snapshotWorker := worker.NewSnapshotWorker(svc.snapshots, cfg.WatchedWallets, cfg.SnapshotWorkerInterval, hook, svc.telemetry)
		go snapshotWorker.Run(ctx)
	} else {
		slog.Info("WATCHED_WALLETS not set, scheduled snapshots disabled")
	}

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, generate endpoint is unprotected")
	}

	srv := api.NewServer(cfg.HTTPPort, api.Routes{
		Portfolio:   api.NewPortfolioHandler(svc.portfolio, svc.metrics),
		Snapshots:   svc.snapshots,
		Metrics:     svc.telemetry.Handler(),
		AdminAPIKey: cfg.AdminAPIKey,
	})

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("HTTP server: %w", err)
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func value(ctx context.Context, cfg config.Config, address string) error {
	svc, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	p, err := svc.portfolio.Value(ctx, address)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func exportXLSX(ctx context.Context, cfg config.Config, address, path string) error {
	svc, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	p, err := svc.portfolio.Value(ctx, address)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.WriteXLSX(f, p); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	slog.Info("portfolio exported", "address", p.Address, "path", path, "tokens", p.TokenCount)
	return nil
}
