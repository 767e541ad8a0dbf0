// Package server provides the HTTP surface of the redirect gateway.
//
// The server is a thin collaborator around the policy validator
// (pkg/policy): it extracts a candidate destination from the request, asks
// the validator for a verdict, and maps that verdict to an HTTP response.
// All design weight stays in the validator; the server adds only transport,
// observability, and lifecycle concerns.
//
// # Routes
//
//   - GET /redirect?url=<candidate> — allowed destinations answer with a 3xx
//     and a Location header; everything else answers 400 with a generic
//     body. Missing input, malformed URLs, and unlisted hosts are
//     indistinguishable to the caller so the allowlist cannot be enumerated.
//   - GET /healthz — liveness probe.
//   - GET /metrics — Prometheus metrics.
//   - GET /audit/ws — WebSocket stream of classification events for
//     operators; same-origin by default.
//
// # Example
//
//	config := server.DefaultConfig().
//	    WithAddress(":8080").
//	    WithAllowedHosts([]string{"trusted.com", "example.com"})
//
//	srv := server.New(config)
//	srv.Use(middleware.Prometheus())
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// The server shuts down gracefully on SIGINT/SIGTERM; Handler() exposes the
// routes for mounting in an external router instead of Run().
package server
