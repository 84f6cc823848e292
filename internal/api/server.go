package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/mtlprog/walletnav/internal/snapshot"
)

// Routes groups the handlers served by NewServer. Snapshots and Metrics are optional.
type Routes struct {
	Portfolio   *PortfolioHandler
	Snapshots   *snapshot.Service
	Metrics     http.Handler
	AdminAPIKey string
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, routes Routes) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      newMux(routes),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func newMux(routes Routes) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if routes.Portfolio != nil {
		mux.HandleFunc("GET /api/v1/portfolio/{address}", routes.Portfolio.GetPortfolio)
		mux.HandleFunc("GET /api/v1/portfolio/{address}/metrics", routes.Portfolio.GetMetrics)
	}

	if routes.Snapshots != nil {
		handler := NewHandler(routes.Snapshots)
		mux.HandleFunc("GET /api/v1/portfolio/{address}/snapshots/latest", handler.GetLatestSnapshot)
		mux.HandleFunc("GET /api/v1/portfolio/{address}/snapshots/{date}", handler.GetSnapshotByDate)
		mux.HandleFunc("GET /api/v1/portfolio/{address}/snapshots", handler.ListSnapshots)

		var generate http.Handler = http.HandlerFunc(handler.GenerateSnapshot)
		if routes.AdminAPIKey != "" {
			generate = requireAuth(routes.AdminAPIKey, generate)
		}
		mux.Handle("POST /api/v1/portfolio/{address}/snapshots/generate", generate)
	}

	if routes.Metrics != nil {
		mux.Handle("GET /metrics", routes.Metrics)
	}
	return mux
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
