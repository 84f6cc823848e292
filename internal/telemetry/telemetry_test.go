package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()

	c.SourceFailed("balances", 8453)
	c.SourceFailed("balances", 8453)
	c.NAVOutcome("resolved")
	c.SnapshotTaken(false)

	if got := testutil.ToFloat64(c.sourceFailures.WithLabelValues("balances", "8453")); got != 2 {
		t.Errorf("source failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.navOutcomes.WithLabelValues("resolved")); got != 1 {
		t.Errorf("nav outcomes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.snapshots.WithLabelValues("error")); got != 1 {
		t.Errorf("snapshot errors = %v, want 1", got)
	}
}

func TestCollectorHandler(t *testing.T) {
	c := NewCollector()
	c.ObserveValuation(1500 * time.Millisecond)
	c.NAVOutcome("partial")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	out := string(body)
	for _, want := range []string{
		"walletnav_valuation_duration_seconds_count 1",
		`walletnav_nav_resolutions_total{outcome="partial"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
