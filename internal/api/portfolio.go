package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mtlprog/walletnav/internal/domain"
)

// Valuer produces a live portfolio valuation.
type Valuer interface {
	Value(ctx context.Context, address string) (domain.Portfolio, error)
}

// MetricsEvaluator computes performance metrics from stored history.
type MetricsEvaluator interface {
	Evaluate(ctx context.Context, address string) (domain.PerformanceMetrics, error)
}

// PortfolioHandler serves live valuations and their metrics.
type PortfolioHandler struct {
	valuer  Valuer
	metrics MetricsEvaluator
}

// NewPortfolioHandler creates a portfolio handler. metrics may be nil when no history store is configured.
func NewPortfolioHandler(valuer Valuer, metrics MetricsEvaluator) *PortfolioHandler {
	return &PortfolioHandler{valuer: valuer, metrics: metrics}
}

// GetPortfolio handles GET /api/v1/portfolio/{address}.
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}

	p, err := h.valuer.Value(r.Context(), addr)
	if err != nil {
		slog.Error("failed to value portfolio", "address", addr, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetMetrics handles GET /api/v1/portfolio/{address}/metrics.
func (h *PortfolioHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}
	if h.metrics == nil {
		writeError(w, http.StatusNotFound, "metrics unavailable")
		return
	}

	m, err := h.metrics.Evaluate(r.Context(), addr)
	if err != nil {
		slog.Error("failed to evaluate metrics", "address", addr, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, m)
}
