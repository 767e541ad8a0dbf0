package server

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linkgate/linkgate/pkg/middleware"
	"github.com/linkgate/linkgate/pkg/policy"
)

// denyBody is the only thing a rejected caller ever sees. Missing input,
// malformed URLs, and unlisted hosts all collapse to this response so the
// allowlist cannot be probed.
const denyBody = "invalid redirect URL"

// handleRedirect implements GET /redirect?url=<candidate>.
//
// The flow is a single linear decision: extract, classify, respond. On
// Allow the original candidate is round-tripped through transport encoding
// and sent back as the Location header; on Deny the response is a generic
// 400 with no Location.
func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	candidates, present := r.URL.Query()["url"]

	var decision policy.Decision
	if !present {
		// Absent parameter: deny before the parser is ever invoked.
		decision = policy.Decision{Verdict: policy.Deny, Reason: policy.ReasonMissing}
	} else {
		decision = s.validator.Classify(candidates[0])
	}

	s.observe(r, decision)

	if !decision.Allowed() {
		http.Error(w, denyBody, http.StatusBadRequest)
		return
	}

	target := policy.RoundTrip(candidates[0])
	http.Redirect(w, r, target, s.config.RedirectStatus)
}

// handleHealthz implements GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// observe records one classification in logs, metrics, traces, and the
// audit stream. The caller-facing response carries none of this detail.
func (s *Server) observe(r *http.Request, decision policy.Decision) {
	clientIP := s.clientIP(r)

	if decision.Allowed() {
		s.logger.Info("redirect allowed", "host", decision.Host, "client_ip", clientIP)
	} else {
		attrs := []any{"reason", decision.Reason.String(), "client_ip", clientIP}
		if decision.Host != "" {
			attrs = append(attrs, "host", decision.Host)
		}
		if s.config.DebugMode {
			attrs = append(attrs, "url", r.URL.Query().Get("url"))
		}
		s.logger.Warn("redirect denied", attrs...)
	}

	middleware.RecordDecision(decision.Verdict.String(), decision.Reason.String())

	if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
		span.SetAttributes(
			attribute.String("linkgate.verdict", decision.Verdict.String()),
			attribute.String("linkgate.reason", decision.Reason.String()),
			attribute.String("linkgate.host", decision.Host),
		)
	}

	s.audit.publish(AuditEvent{
		Time:     time.Now().UTC(),
		Verdict:  decision.Verdict.String(),
		Reason:   decision.Reason.String(),
		Host:     decision.Host,
		ClientIP: clientIP,
	})
}
