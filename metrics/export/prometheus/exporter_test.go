package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goTrust "github.com/MrEthical07/goTrust"
)

type fakeSource struct {
	snapshot goTrust.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goTrust.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goTrust.MetricsSnapshot{
			Counters:   map[goTrust.MetricID]uint64{},
			Histograms: map[goTrust.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goTrust.MetricsSnapshot{
			Counters: map[goTrust.MetricID]uint64{
				goTrust.MetricAuthenticatorRejected: 7,
			},
			Histograms: map[goTrust.MetricID][]uint64{
				goTrust.MetricHashLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"# TYPE gotrust_authenticator_rejected_total counter",
		"gotrust_authenticator_rejected_total 7",
		"gotrust_password_set_total 0",
		`gotrust_hash_latency_seconds_bucket{le="0.005"} 1`,
		`gotrust_hash_latency_seconds_bucket{le="+Inf"} 36`,
		"gotrust_hash_latency_seconds_count 36",
		"gotrust_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderFromEngine(t *testing.T) {
	engine, err := goTrust.New().WithMetricsEnabled(true).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.HashPassword("pbkdf2", map[string]string{"it": "1"}, "c2FsdA==", "pw"); err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if _, err := engine.CheckAuthenticator(context.Background(), "x"); err == nil {
		t.Fatal("expected empty catalog error")
	}

	out := NewPrometheusExporter(engine).Render()
	if !strings.Contains(out, "gotrust_hash_computed_total 1") {
		t.Fatalf("expected hash counter, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goTrust.MetricsSnapshot{
			Counters:   map[goTrust.MetricID]uint64{goTrust.MetricPasswordSet: 1},
			Histograms: map[goTrust.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goTrust.MetricsSnapshot{
			Counters: map[goTrust.MetricID]uint64{
				goTrust.MetricHashComputed:          1000,
				goTrust.MetricPasswordVerifySuccess: 800,
				goTrust.MetricPasswordVerifyFailure: 40,
				goTrust.MetricAuthenticatorAccepted: 300,
				goTrust.MetricAuthenticatorRejected: 3,
			},
			Histograms: map[goTrust.MetricID][]uint64{
				goTrust.MetricHashLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
