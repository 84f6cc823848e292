package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/walletnav/internal/domain"
)

// SnapshotGenerator values a wallet and stores the result for a date.
type SnapshotGenerator interface {
	Generate(ctx context.Context, address string, date time.Time) (domain.Portfolio, error)
}

// AfterSnapshotHook is called after each successful snapshot of a wallet.
type AfterSnapshotHook interface {
	Export(ctx context.Context, p domain.Portfolio) error
}

// SnapshotRecorder counts snapshot attempts.
type SnapshotRecorder interface {
	SnapshotTaken(ok bool)
}

// SnapshotWorker periodically snapshots every watched wallet.
type SnapshotWorker struct {
	generator SnapshotGenerator
	wallets   []string
	interval  time.Duration
	hook      AfterSnapshotHook // optional
	recorder  SnapshotRecorder  // optional
	today     func() time.Time
}

// NewSnapshotWorker creates a SnapshotWorker. hook and recorder may be nil.
func NewSnapshotWorker(generator SnapshotGenerator, wallets []string, interval time.Duration, hook AfterSnapshotHook, recorder SnapshotRecorder) *SnapshotWorker {
	if generator == nil {
		panic("worker.NewSnapshotWorker: generator must not be nil")
	}
	return &SnapshotWorker{
		generator: generator,
		wallets:   wallets,
		interval:  interval,
		hook:      hook,
		recorder:  recorder,
		today:     utcDate,
	}
}

// utcDate returns the current date normalized to midnight UTC.
func utcDate() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Run starts the snapshot loop. It blocks until the context is cancelled.
func (w *SnapshotWorker) Run(ctx context.Context) {
	slog.Info("SnapshotWorker: starting", "wallets", len(w.wallets), "interval", w.interval)

	// Snapshot immediately on startup
	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("SnapshotWorker: shutting down")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce snapshots each wallet in turn. A failing wallet does not stop the others.
func (w *SnapshotWorker) RunOnce(ctx context.Context) {
	date := w.today()
	for _, addr := range w.wallets {
		if ctx.Err() != nil {
			return
		}

		p, err := w.generator.Generate(ctx, addr, date)
		w.record(err == nil)
		if err != nil {
			slog.Error("SnapshotWorker: generation failed", "address", addr, "error", err)
			continue
		}
		slog.Info("SnapshotWorker: generation completed", "address", addr, "total_usd", p.TotalUSDValue.StringFixed(2))
		w.runHook(ctx, p)
	}
}

func (w *SnapshotWorker) record(ok bool) {
	if w.recorder != nil {
		w.recorder.SnapshotTaken(ok)
	}
}

// runHook calls the post-generation hook if one is configured.
func (w *SnapshotWorker) runHook(ctx context.Context, p domain.Portfolio) {
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, p); err != nil {
		slog.Error("SnapshotWorker: export hook failed", "address", p.Address, "error", err)
	} else {
		slog.Info("SnapshotWorker: export hook completed", "address", p.Address)
	}
}
