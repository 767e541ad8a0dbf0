// Package middleware provides production-grade HTTP middleware for the
// redirect gateway.
//
// This package includes:
//   - Prometheus metrics middleware
//   - OpenTelemetry distributed tracing middleware
//
// # Prometheus Metrics
//
// The Prometheus middleware measures every request:
//   - linkgate_requests_total: Counter of requests by path and status code
//   - linkgate_request_duration_seconds: Request duration histogram by path
//   - linkgate_decisions_total: Counter of classifications by verdict and reason
//
//	srv := server.New(config)
//	srv.Use(middleware.Prometheus(
//	    middleware.WithNamespace("myapp"),
//	))
//
// Decision counts are recorded by the redirect handler through
// RecordDecision; the middleware only has to be installed once for the
// metric vectors to exist.
//
// # OpenTelemetry
//
// The OpenTelemetry middleware opens a span per request and records the
// route, method, and status code. The redirect handler annotates the active
// span with the verdict, deny reason, and target host.
//
//	srv.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("linkgate"),
//	    middleware.WithFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
package middleware
