package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	ProviderURL            string
	ProviderAPIKey         string
	ProviderRetryMax       int
	ProviderRetryBaseDelay time.Duration
	ProviderRateLimit      float64
	ProviderConcurrency    int
	DexScreenerURL         string
	CoinGeckoURL           string
	CoinGeckoDelay         time.Duration
	CoinGeckoRetryMax      int
	DatabaseURL            string
	RedisURL               string
	RegistryPath           string
	PriceCacheTTL          time.Duration
	PriceBatchSize         int
	PriceBatchDelay        time.Duration
	NAVCallDelay           time.Duration
	DustThreshold          decimal.Decimal
	RiskFreeRate           float64
	QuoteStaleThreshold    time.Duration
	QuoteWorkerInterval    time.Duration
	SnapshotWorkerInterval time.Duration
	WatchedWallets         []string
	HTTPPort               string
	AdminAPIKey            string
	LogLevel               string
	LogFormat              string
	SheetsSpreadsheetID    string
	SheetsCredentialsJSON  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		ProviderURL:            envOrDefault("PROVIDER_URL", "https://deep-index.moralis.io/api/v2.2"),
		ProviderAPIKey:         envOrDefaultWarn("PROVIDER_API_KEY", ""),
		ProviderRetryMax:       envOrDefaultInt("PROVIDER_RETRY_MAX", 5),
		ProviderRetryBaseDelay: envOrDefaultDuration("PROVIDER_RETRY_BASE_DELAY", 2*time.Second),
		ProviderRateLimit:      envOrDefaultFloat("PROVIDER_RATE_LIMIT", 10),
		ProviderConcurrency:    envOrDefaultInt("PROVIDER_CONCURRENCY", 4),
		DexScreenerURL:         envOrDefault("DEXSCREENER_URL", "https://api.dexscreener.com"),
		CoinGeckoURL:           envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoDelay:         envOrDefaultDuration("COINGECKO_DELAY", 6*time.Second),
		CoinGeckoRetryMax:      envOrDefaultInt("COINGECKO_RETRY_MAX", 5),
		DatabaseURL:            envOrDefault("DATABASE_URL", ""),
		RedisURL:               envOrDefault("REDIS_URL", ""),
		RegistryPath:           envOrDefault("REGISTRY_PATH", ""),
		PriceCacheTTL:          envOrDefaultDuration("PRICE_CACHE_TTL", 5*time.Minute),
		PriceBatchSize:         envOrDefaultInt("PRICE_BATCH_SIZE", 5),
		PriceBatchDelay:        envOrDefaultDuration("PRICE_BATCH_DELAY", 250*time.Millisecond),
		NAVCallDelay:           envOrDefaultDuration("NAV_CALL_DELAY", 50*time.Millisecond),
		DustThreshold:          envOrDefaultDecimal("DUST_THRESHOLD_USD", decimal.NewFromInt(1)),
		RiskFreeRate:           envOrDefaultFloat("RISK_FREE_RATE", 0.045),
		QuoteStaleThreshold:    envOrDefaultDuration("QUOTE_STALE_THRESHOLD", 2*time.Hour),
		QuoteWorkerInterval:    envOrDefaultDuration("QUOTE_WORKER_INTERVAL", 1*time.Hour),
		SnapshotWorkerInterval: envOrDefaultDuration("SNAPSHOT_WORKER_INTERVAL", 24*time.Hour),
		WatchedWallets:         envOrDefaultList("WATCHED_WALLETS", nil),
		HTTPPort:               envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:            envOrDefault("ADMIN_API_KEY", ""),
		LogLevel:               envOrDefault("LOG_LEVEL", "info"),
		LogFormat:              envOrDefault("LOG_FORMAT", "json"),
		SheetsSpreadsheetID:    envOrDefault("SHEETS_SPREADSHEET_ID", ""),
		SheetsCredentialsJSON:  envOrDefault("SHEETS_CREDENTIALS_JSON", ""),
	}
}

// RPCOverride returns the comma-separated RPC_URL_<chainID> override, if set.
func RPCOverride(chainID int64) []string {
	return envOrDefaultList(fmt.Sprintf("RPC_URL_%d", chainID), nil)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func envOrDefaultDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			slog.Warn("invalid decimal env var, using default", "key", key, "value", v, "default", defaultVal.String())
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
