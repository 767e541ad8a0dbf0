package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// The metrics singleton is initialized once per process, so all Prometheus
// middleware assertions share one registry and run in a single test.
func TestPrometheusMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()

	mw := Prometheus(
		WithNamespace("linkgate_test"),
		WithRegistry(registry),
		WithBuckets([]float64{0.1, 1}),
	)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/redirect", "/redirect", "/healthz"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	}

	RecordDecision("deny", "host")
	RecordDecision("deny", "host")
	RecordDecision("allow", "none")

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	byName := make(map[string]*dto.MetricFamily)
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	requests := byName["linkgate_test_requests_total"]
	if requests == nil {
		t.Fatal("requests_total not registered")
	}
	if got := counterValue(t, requests, map[string]string{"path": "/redirect", "code": "400"}); got != 2 {
		t.Errorf("requests_total{/redirect,400}=%v, want 2", got)
	}
	if got := counterValue(t, requests, map[string]string{"path": "/healthz", "code": "200"}); got != 1 {
		t.Errorf("requests_total{/healthz,200}=%v, want 1", got)
	}

	decisions := byName["linkgate_test_decisions_total"]
	if decisions == nil {
		t.Fatal("decisions_total not registered")
	}
	if got := counterValue(t, decisions, map[string]string{"verdict": "deny", "reason": "host"}); got != 2 {
		t.Errorf("decisions_total{deny,host}=%v, want 2", got)
	}
	if got := counterValue(t, decisions, map[string]string{"verdict": "allow", "reason": "none"}); got != 1 {
		t.Errorf("decisions_total{allow,none}=%v, want 1", got)
	}

	if byName["linkgate_test_request_duration_seconds"] == nil {
		t.Error("request_duration_seconds not registered")
	}
}

func counterValue(t *testing.T, mf *dto.MetricFamily, labels map[string]string) float64 {
	t.Helper()

outer:
	for _, m := range mf.GetMetric() {
		got := make(map[string]string)
		for _, lp := range m.GetLabel() {
			got[lp.GetName()] = lp.GetValue()
		}
		for k, v := range labels {
			if got[k] != v {
				continue outer
			}
		}
		return m.GetCounter().GetValue()
	}
	t.Fatalf("no metric with labels %v", labels)
	return 0
}
