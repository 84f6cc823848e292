package worker

import (
	"context"
	"log/slog"
	"time"
)

// QuoteFetcher refreshes the stored native-asset USD quotes.
type QuoteFetcher interface {
	FetchAndStoreQuotes(ctx context.Context) error
}

// QuoteWorker periodically refreshes native-asset quotes so the price service never reads a stale one.
type QuoteWorker struct {
	fetcher  QuoteFetcher
	interval time.Duration
}

// NewQuoteWorker creates a new QuoteWorker.
func NewQuoteWorker(fetcher QuoteFetcher, interval time.Duration) *QuoteWorker {
	return &QuoteWorker{
		fetcher:  fetcher,
		interval: interval,
	}
}

// Run starts the quote worker loop. It blocks until the context is cancelled.
func (w *QuoteWorker) Run(ctx context.Context) {
	slog.Info("QuoteWorker: starting", "interval", w.interval)

	// Fetch immediately on startup
	w.refresh(ctx, "initial")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("QuoteWorker: shutting down")
			return
		case <-ticker.C:
			w.refresh(ctx, "scheduled")
		}
	}
}

func (w *QuoteWorker) refresh(ctx context.Context, kind string) {
	start := time.Now()
	if err := w.fetcher.FetchAndStoreQuotes(ctx); err != nil {
		slog.Error("QuoteWorker: refresh failed", "kind", kind, "error", err)
		return
	}
	slog.Info("QuoteWorker: refresh completed", "kind", kind, "duration", time.Since(start))
}
