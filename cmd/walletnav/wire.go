package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/walletnav/internal/chain"
	"github.com/mtlprog/walletnav/internal/classifier"
	"github.com/mtlprog/walletnav/internal/config"
	"github.com/mtlprog/walletnav/internal/database"
	"github.com/mtlprog/walletnav/internal/external"
	"github.com/mtlprog/walletnav/internal/fetcher"
	"github.com/mtlprog/walletnav/internal/merge"
	"github.com/mtlprog/walletnav/internal/metrics"
	"github.com/mtlprog/walletnav/internal/nav"
	"github.com/mtlprog/walletnav/internal/portfolio"
	"github.com/mtlprog/walletnav/internal/price"
	"github.com/mtlprog/walletnav/internal/provider"
	"github.com/mtlprog/walletnav/internal/snapshot"
	"github.com/mtlprog/walletnav/internal/telemetry"
)

const (
	dbMaxConns  = 10
	dialTimeout = 10 * time.Second
)

// services holds everything the commands share. Optional parts are nil when their backing
// store is not configured.
type services struct {
	registry  *config.Registry
	telemetry *telemetry.Collector
	portfolio *portfolio.Service
	external  *external.Service
	snapshots *snapshot.Service
	metrics   *metrics.Service
	closers   []func()
}

// Close releases pools and connections in reverse order of creation.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// build wires the service graph. A database is connected and migrated only when
// cfg.DatabaseURL is set.
func build(ctx context.Context, cfg config.Config) (*services, error) {
	reg, err := config.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("loading registry: %w", err)
	}

	s := &services{registry: reg, telemetry: telemetry.NewCollector()}

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = connectDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
	} else {
		slog.Warn("DATABASE_URL not set, snapshots and native quotes disabled")
	}

	// Native quotes
	var native price.NativeQuoter
	if pool != nil {
		coingecko := external.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoDelay, cfg.CoinGeckoRetryMax)
		s.external = external.NewService(coingecko, external.NewPgQuoteRepository(pool), reg.Chains, cfg.QuoteStaleThreshold)
		native = s.external
	}

	// Market prices
	cache, err := newPriceCache(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	if rc, ok := cache.(*price.RedisCache); ok {
		s.closers = append(s.closers, func() {
			if err := rc.Close(); err != nil {
				slog.Warn("failed to close redis price cache", "error", err)
			}
		})
	}
	dex := price.NewDexScreenerClient(cfg.DexScreenerURL, cfg.ProviderRetryMax, cfg.ProviderRetryBaseDelay)
	prices := price.NewService(dex, native, cache, reg.Chains, cfg.PriceBatchSize, cfg.PriceBatchDelay)

	// Chain reads
	endpoints := reg.RPCEndpoints(config.RPCOverride)
	for _, id := range reg.ChainIDs() {
		if _, ok := endpoints[id]; !ok {
			slog.Warn("no RPC endpoint configured, composite tokens on this chain stay unpriced", "chain", id)
		}
	}
	chains := chain.NewProvider(endpoints, dialTimeout)
	s.closers = append(s.closers, chains.Close)
	reader := chain.NewReader(chains)

	// Valuation pipeline
	client := provider.NewClient(cfg.ProviderURL, cfg.ProviderAPIKey, cfg.ProviderRetryMax, cfg.ProviderRetryBaseDelay, cfg.ProviderRateLimit)
	fetch := fetcher.NewService(client, client, reg.Chains, cfg.ProviderConcurrency, s.telemetry)
	cls := classifier.NewService(reg.SpamSymbols, reg.PriceRedirects, prices)
	merger := merge.NewService(reg.ReceiptTokens, cfg.DustThreshold)
	resolver := nav.NewResolver(reader, prices, chains, reg.OrderedComposites(), cfg.NAVCallDelay, s.telemetry)
	s.portfolio = portfolio.NewService(fetch, cls, merger, resolver, cfg.DustThreshold, s.telemetry)

	// History
	if pool != nil {
		repo := snapshot.NewPgRepository(pool)
		s.metrics = metrics.NewService(repo, cfg.RiskFreeRate)
		s.snapshots = snapshot.NewService(s.portfolio, repo, s.metrics)
	}

	slog.Info("services ready",
		"chains", len(reg.Chains),
		"composites", len(reg.Composites),
		"rpc_chains", len(endpoints),
		"database", pool != nil,
		"redis", cfg.RedisURL != "",
	)
	return s, nil
}

func connectDatabase(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := database.Connect(ctx, url, dbMaxConns)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating migrations sub-fs: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return pool, nil
}

func newPriceCache(ctx context.Context, cfg config.Config) (price.Cache, error) {
	if cfg.RedisURL == "" {
		return price.NewMemoryCache(cfg.PriceCacheTTL), nil
	}
	rc, err := price.NewRedisCache(ctx, cfg.RedisURL, cfg.PriceCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("connecting price cache: %w", err)
	}
	return rc, nil
}
