package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type mockQuoteFetcher struct {
	callCount atomic.Int32
	err       error
}

func (m *mockQuoteFetcher) FetchAndStoreQuotes(_ context.Context) error {
	m.callCount.Add(1)
	return m.err
}

func TestQuoteWorkerRunsAndShutdown(t *testing.T) {
	mock := &mockQuoteFetcher{}
	w := NewQuoteWorker(mock, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	// Should have run at least the initial fetch
	if got := mock.callCount.Load(); got < 1 {
		t.Errorf("call count = %d, want >= 1", got)
	}
}

func TestQuoteWorkerKeepsRunningAfterFailure(t *testing.T) {
	mock := &mockQuoteFetcher{err: errors.New("coingecko down")}
	w := NewQuoteWorker(mock, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(t.Context(), 150*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := mock.callCount.Load(); got < 2 {
		t.Errorf("call count = %d, want >= 2", got)
	}
}
