package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestServer() *Server {
	return New(DefaultConfig().
		WithAllowedHosts([]string{"trusted.com", "example.com"}))
}

func doRedirect(t *testing.T, s *Server, target string) *http.Response {
	t.Helper()

	req := httptest.NewRequest("GET", target, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec.Result()
}

func TestRedirectAllowed(t *testing.T) {
	s := newTestServer()

	resp := doRedirect(t, s, "/redirect?url="+url.QueryEscape("http://trusted.com/page"))

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status=%d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != "http://trusted.com/page" {
		t.Errorf("Location=%q, want %q", loc, "http://trusted.com/page")
	}
}

func TestRedirectDeniedUnlistedHost(t *testing.T) {
	s := newTestServer()

	resp := doRedirect(t, s, "/redirect?url="+url.QueryEscape("http://malicious.com"))

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if loc := resp.Header.Get("Location"); loc != "" {
		t.Errorf("deny response carries Location=%q", loc)
	}
}

func TestRedirectDeniedResponsesIndistinguishable(t *testing.T) {
	s := newTestServer()

	// All deny causes must collapse to the same observable response so the
	// allowlist and parser cannot be probed.
	targets := []string{
		"/redirect",
		"/redirect?url=",
		"/redirect?url=" + url.QueryEscape("not a url"),
		"/redirect?url=" + url.QueryEscape("http://malicious.com"),
		"/redirect?url=" + url.QueryEscape("http://trusted.com.evil.com"),
		"/redirect?url=" + url.QueryEscape("HTTP://TRUSTED.COM"),
	}

	var bodies []string
	for _, target := range targets {
		resp := doRedirect(t, s, target)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status=%d, want %d", target, resp.StatusCode, http.StatusBadRequest)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		bodies = append(bodies, string(body))
	}

	for i, body := range bodies {
		if body != bodies[0] {
			t.Errorf("deny body %d differs: %q vs %q", i, body, bodies[0])
		}
		if strings.Contains(body, "malicious.com") || strings.Contains(body, "evil.com") {
			t.Errorf("deny body leaks the candidate: %q", body)
		}
	}
}

func TestRedirectSuffixAttackDenied(t *testing.T) {
	s := newTestServer()

	for _, candidate := range []string{
		"http://trusted.com.evil.com",
		"http://evil-trusted.com",
		"http://login.trusted.com",
	} {
		resp := doRedirect(t, s, "/redirect?url="+url.QueryEscape(candidate))
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status=%d, want %d", candidate, resp.StatusCode, http.StatusBadRequest)
		}
	}
}

func TestRedirectEnforcementDisabled(t *testing.T) {
	s := New(DefaultConfig().
		WithAllowedHosts([]string{"trusted.com"}).
		WithEnforcement(false))

	resp := doRedirect(t, s, "/redirect?url="+url.QueryEscape("http://malicious.com"))

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("unenforced status=%d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != "http://malicious.com" {
		t.Errorf("Location=%q, want %q", loc, "http://malicious.com")
	}

	// Absent input still denies even without enforcement.
	resp = doRedirect(t, s, "/redirect")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unenforced missing input status=%d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestRedirectCustomStatus(t *testing.T) {
	s := New(DefaultConfig().
		WithAllowedHosts([]string{"trusted.com"}).
		WithRedirectStatus(http.StatusTemporaryRedirect))

	resp := doRedirect(t, s, "/redirect?url="+url.QueryEscape("http://trusted.com/page"))

	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status=%d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
}

func TestRedirectPreservesQueryAndFragment(t *testing.T) {
	s := newTestServer()
	candidate := "https://example.com/path?next=%2Fhome&x=a+b#frag"

	resp := doRedirect(t, s, "/redirect?url="+url.QueryEscape(candidate))

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status=%d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != candidate {
		t.Errorf("Location=%q, want %q", loc, candidate)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer()

	resp := doRedirect(t, s, "/healthz")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body=%q, want %q", string(body), "ok")
	}
}

func TestServerMiddlewareOrder(t *testing.T) {
	s := newTestServer()

	var order []string
	s.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "first")
			next.ServeHTTP(w, r)
		})
	})
	s.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "second")
			next.ServeHTTP(w, r)
		})
	})

	doRedirect(t, s, "/healthz")

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("middleware order=%v, want [first second]", order)
	}
}

func TestNewFillsDefaults(t *testing.T) {
	s := New(&Config{AllowedHosts: []string{"trusted.com"}, EnforceAllowlist: true})

	if s.config.Address == "" {
		t.Error("Address default not filled")
	}
	if s.config.RedirectStatus == 0 {
		t.Error("RedirectStatus default not filled")
	}
	if s.config.CheckOrigin == nil {
		t.Error("CheckOrigin default not filled")
	}
	if s.config.AuditQueueSize == 0 {
		t.Error("AuditQueueSize default not filled")
	}

	if s.Validator() == nil || !s.Validator().Enforcing() {
		t.Error("validator should enforce the allowlist")
	}
}
