package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletnav/internal/domain"
	"github.com/mtlprog/walletnav/internal/snapshot"
)

const (
	wallet      = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	walletLower = "0x742d35cc6634c0532925a3b844bc454e4438f44e"
)

type mockSnapshotRepo struct {
	snapshots     []snapshot.Snapshot
	walletID      int
	lastListLimit int
	lastAddress   string
	saved         int
	listErr       error
}

func (m *mockSnapshotRepo) Save(_ context.Context, _ int, _ time.Time, _ decimal.Decimal, _ json.RawMessage) error {
	m.saved++
	return nil
}

func (m *mockSnapshotRepo) GetLatest(_ context.Context, address string) (*snapshot.Snapshot, error) {
	m.lastAddress = address
	if len(m.snapshots) == 0 {
		return nil, snapshot.ErrNotFound
	}
	return &m.snapshots[0], nil
}

func (m *mockSnapshotRepo) GetByDate(_ context.Context, _ string, date time.Time) (*snapshot.Snapshot, error) {
	for _, s := range m.snapshots {
		if s.SnapshotDate.Equal(date) {
			return &s, nil
		}
	}
	return nil, snapshot.ErrNotFound
}

func (m *mockSnapshotRepo) List(_ context.Context, _ string, limit int) ([]snapshot.Snapshot, error) {
	m.lastListLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	if limit > len(m.snapshots) {
		limit = len(m.snapshots)
	}
	return m.snapshots[:limit], nil
}

func (m *mockSnapshotRepo) ValueSeries(_ context.Context, _ string) ([]domain.ValuePoint, error) {
	return nil, nil
}

func (m *mockSnapshotRepo) EnsureWallet(_ context.Context, _, _ string) (int, error) {
	return m.walletID, nil
}

type mockValuer struct {
	portfolio domain.Portfolio
	err       error
	calls     int
}

func (m *mockValuer) Value(_ context.Context, address string) (domain.Portfolio, error) {
	m.calls++
	if m.err != nil {
		return domain.Portfolio{}, m.err
	}
	p := m.portfolio
	p.Address = address
	return p, nil
}

func newTestMux(repo *mockSnapshotRepo, valuer *mockValuer, adminKey string) http.Handler {
	return newMux(Routes{
		Portfolio:   NewPortfolioHandler(valuer, nil),
		Snapshots:   snapshot.NewService(valuer, repo),
		AdminAPIKey: adminKey,
	})
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetLatestSnapshotSuccess(t *testing.T) {
	data, _ := json.Marshal(map[string]string{"test": "data"})
	repo := &mockSnapshotRepo{
		snapshots: []snapshot.Snapshot{
			{ID: 1, WalletID: 1, SnapshotDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Data: data},
		},
	}
	w := serve(newTestMux(repo, &mockValuer{}, ""), http.MethodGet, "/api/v1/portfolio/"+wallet+"/snapshots/latest")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var result snapshot.Snapshot
	json.NewDecoder(w.Body).Decode(&result)
	if result.ID != 1 {
		t.Errorf("snapshot ID = %d, want 1", result.ID)
	}
	if repo.lastAddress != walletLower {
		t.Errorf("repo address = %q, want lower-cased", repo.lastAddress)
	}
}

func TestGetLatestSnapshotNotFound(t *testing.T) {
	w := serve(newTestMux(&mockSnapshotRepo{}, &mockValuer{}, ""), http.MethodGet, "/api/v1/portfolio/"+wallet+"/snapshots/latest")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetSnapshotByDateSuccess(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	data, _ := json.Marshal(map[string]string{"test": "data"})
	repo := &mockSnapshotRepo{
		snapshots: []snapshot.Snapshot{
			{ID: 1, WalletID: 1, SnapshotDate: date, Data: data},
		},
	}
	w := serve(newTestMux(repo, &mockValuer{}, ""), http.MethodGet, "/api/v1/portfolio/"+wallet+"/snapshots/2024-01-15")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestGetSnapshotByDateInvalid(t *testing.T) {
	w := serve(newTestMux(&mockSnapshotRepo{}, &mockValuer{}, ""), http.MethodGet, "/api/v1/portfolio/"+wallet+"/snapshots/not-a-date")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestInvalidAddressRejected(t *testing.T) {
	mux := newTestMux(&mockSnapshotRepo{}, &mockValuer{}, "")
	paths := []string{
		"/api/v1/portfolio/0x123",
		"/api/v1/portfolio/not-an-address/metrics",
		"/api/v1/portfolio/0xZZ2d35Cc6634C0532925a3b844Bc454e4438f44e/snapshots",
		"/api/v1/portfolio/0x123/snapshots/latest",
	}
	for _, p := range paths {
		if w := serve(mux, http.MethodGet, p); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", p, w.Code)
		}
	}
}

func TestListSnapshotsLimitCappedAt365(t *testing.T) {
	data, _ := json.Marshal(map[string]string{})
	repo := &mockSnapshotRepo{snapshots: []snapshot.Snapshot{{ID: 1, Data: data}}}

	w := serve(newTestMux(repo, &mockValuer{}, ""), http.MethodGet, "/api/v1/portfolio/"+wallet+"/snapshots?limit=9999")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if repo.lastListLimit != 365 {
		t.Errorf("limit passed to repo = %d, want 365 (should be capped)", repo.lastListLimit)
	}
}

func TestListSnapshotsNegativeLimit(t *testing.T) {
	data, _ := json.Marshal(map[string]string{})
	repo := &mockSnapshotRepo{
		snapshots: []snapshot.Snapshot{
			{ID: 1, Data: data},
			{ID: 2, Data: data},
		},
	}

	// Negative limit should fall back to default 30
	w := serve(newTestMux(repo, &mockValuer{}, ""), http.MethodGet, "/api/v1/portfolio/"+wallet+"/snapshots?limit=-5")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if repo.lastListLimit != 30 {
		t.Errorf("limit passed to repo = %d, want 30", repo.lastListLimit)
	}

	var result []snapshot.Snapshot
	json.NewDecoder(w.Body).Decode(&result)
	if len(result) != 2 {
		t.Errorf("snapshot count = %d, want 2", len(result))
	}
}

func TestListSnapshotsRepoError(t *testing.T) {
	repo := &mockSnapshotRepo{listErr: errors.New("db down")}

	w := serve(newTestMux(repo, &mockValuer{}, ""), http.MethodGet, "/api/v1/portfolio/"+wallet+"/snapshots")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestGenerateSnapshotRequiresAuth(t *testing.T) {
	repo := &mockSnapshotRepo{walletID: 3}
	valuer := &mockValuer{portfolio: domain.Portfolio{TotalUSDValue: decimal.NewFromInt(42)}}
	mux := newTestMux(repo, valuer, "secret-key")
	target := "/api/v1/portfolio/" + wallet + "/snapshots/generate"

	if w := serve(mux, http.MethodPost, target); w.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", w.Code)
	}
	if valuer.calls != 0 {
		t.Fatalf("valuer called without auth")
	}

	req := httptest.NewRequest(http.MethodPost, target, nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if repo.saved != 1 {
		t.Errorf("saved = %d, want 1", repo.saved)
	}

	var p domain.Portfolio
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !p.TotalUSDValue.Equal(decimal.NewFromInt(42)) {
		t.Errorf("total = %s, want 42", p.TotalUSDValue)
	}
}

func TestGenerateSnapshotValuationError(t *testing.T) {
	repo := &mockSnapshotRepo{}
	valuer := &mockValuer{err: errors.New("provider down")}

	w := serve(newTestMux(repo, valuer, ""), http.MethodPost, "/api/v1/portfolio/"+wallet+"/snapshots/generate")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if repo.saved != 0 {
		t.Errorf("saved = %d, want 0", repo.saved)
	}
}
