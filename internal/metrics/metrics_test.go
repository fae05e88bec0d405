package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shelftags/internal/metrics"
)

func TestCountersAccumulate(t *testing.T) {
	m := metrics.New()
	m.SessionStarted("integrated")
	m.SessionStarted("integrated")
	m.SessionStarted("standalone")
	m.WorkerFinished("emitted")
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.ObserveFetch(120 * time.Millisecond)

	checks := []struct {
		name, labels string
		want         float64
	}{
		{"shelftags_sessions_total", "mode=integrated", 2},
		{"shelftags_sessions_total", "mode=standalone", 1},
		{"shelftags_worker_outcomes_total", "outcome=emitted", 1},
		{"shelftags_cache_lookups_total", "result=hit", 1},
		{"shelftags_cache_lookups_total", "result=miss", 2},
		{"shelftags_fetch_duration_seconds", "", 1},
	}
	for _, c := range checks {
		if got := m.Value(c.name, c.labels); got != c.want {
			t.Fatalf("%s{%s} = %v, want %v", c.name, c.labels, got, c.want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.SessionStarted("standalone")
	m.ItemAnnounced()
	m.RecordEmitted("merged")
	m.WorkerFinished("failed")
	m.ObserveFetch(time.Second)
	m.CacheLookup(true)
	if samples, err := m.Snapshot(); err != nil || samples != nil {
		t.Fatalf("expected empty snapshot, got %v %v", samples, err)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := metrics.New()
	m.RecordEmitted("merged")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `shelftags_records_emitted_total{kind="merged"} 1`) {
		t.Fatalf("expected emitted counter in exposition, got:\n%s", body)
	}
}
