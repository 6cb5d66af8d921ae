package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goGuard "github.com/MrEthical07/goGuard"
)

type fakeSource struct {
	snapshot goGuard.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goGuard.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func emptySnapshot() goGuard.MetricsSnapshot {
	return goGuard.MetricsSnapshot{
		Counters:   map[goGuard.MetricID]uint64{},
		Histograms: map[goGuard.MetricID][]uint64{},
	}
}

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{snapshot: emptySnapshot()})
	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDroppedOnly(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{snapshot: emptySnapshot(), dropped: 4})
	out := exp.Render()
	if !strings.Contains(out, "goguard_audit_dropped_total 4") {
		t.Fatalf("expected audit dropped counter, got:\n%s", out)
	}
	if strings.Contains(out, "_bucket{") {
		t.Fatalf("histogram rendered without samples:\n%s", out)
	}
}

func TestRenderCountersAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goGuard.MetricsSnapshot{
			Counters: map[goGuard.MetricID]uint64{
				goGuard.MetricBlacklistHit:    7,
				goGuard.MetricIncidentRevoked: 2,
			},
			Histograms: map[goGuard.MetricID][]uint64{
				goGuard.MetricAuthenticateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"# TYPE goguard_blacklist_hit_total counter",
		"goguard_blacklist_hit_total 7",
		"goguard_incident_revoked_total 2",
		"goguard_login_success_total 0",
		`goguard_authenticate_latency_seconds_bucket{le="0.005"} 1`,
		`goguard_authenticate_latency_seconds_bucket{le="+Inf"} 36`,
		"goguard_authenticate_latency_seconds_count 36",
		"goguard_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}

	if again := exp.Render(); again != out {
		t.Fatal("render is not deterministic")
	}
}

func TestRenderNilExporter(t *testing.T) {
	var exp *Exporter
	if exp.Render() != "" {
		t.Fatal("nil exporter rendered output")
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	snap := emptySnapshot()
	snap.Counters[goGuard.MetricLoginSuccess] = 1
	exp := NewExporterFromSource(fakeSource{snapshot: snap})

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goGuard.MetricsSnapshot{
			Counters: map[goGuard.MetricID]uint64{
				goGuard.MetricLoginSuccess:  1000,
				goGuard.MetricLoginFailure:  40,
				goGuard.MetricRefresh:       800,
				goGuard.MetricBlacklistHit:  10,
				goGuard.MetricAccessIssued:  1800,
				goGuard.MetricRefreshIssued: 1800,
			},
			Histograms: map[goGuard.MetricID][]uint64{
				goGuard.MetricAuthenticateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
