package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialAudit(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/audit/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("audit dial failed: %v", err)
	}
	return conn
}

func TestAuditStreamReceivesEvents(t *testing.T) {
	s := newTestServer()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialAudit(t, ts)
	defer conn.Close()

	// Trigger one allowed and one denied classification.
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	for _, candidate := range []string{"http://trusted.com/page", "http://malicious.com"} {
		resp, err := client.Get(ts.URL + "/redirect?url=" + url.QueryEscape(candidate))
		if err != nil {
			t.Fatalf("redirect request failed: %v", err)
		}
		resp.Body.Close()
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first, second AuditEvent
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first event: %v", err)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read second event: %v", err)
	}

	if first.Verdict != "allow" || first.Host != "trusted.com" {
		t.Errorf("first event=%+v, want allow/trusted.com", first)
	}
	if second.Verdict != "deny" || second.Reason != "host" {
		t.Errorf("second event=%+v, want deny/host", second)
	}
}

func TestAuditCrossOriginRejected(t *testing.T) {
	s := newTestServer()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/audit/ws"
	header := http.Header{"Origin": []string{"http://evil.com"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		conn.Close()
		t.Fatal("cross-origin upgrade should be rejected")
	}
	if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Errorf("status=%d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestAuditPublishNeverBlocks(t *testing.T) {
	s := New(DefaultConfig().WithAllowedHosts([]string{"trusted.com"}))
	hub := s.audit

	// A stalled subscriber with a full queue must not stall publish.
	sub := &auditSubscriber{send: make(chan AuditEvent, 1)}
	sub.send <- AuditEvent{Verdict: "allow"}
	hub.subs[sub] = struct{}{}

	done := make(chan struct{})
	go func() {
		hub.publish(AuditEvent{Verdict: "deny", Reason: "host"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber queue")
	}

	if hub.Dropped() != 1 {
		t.Errorf("Dropped()=%d, want 1", hub.Dropped())
	}
}

func TestAuditShutdownClosesSubscribers(t *testing.T) {
	s := newTestServer()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn := dialAudit(t, ts)
	defer conn.Close()

	s.audit.shutdown()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read to fail after hub shutdown")
	}

	// New subscribers are refused after shutdown.
	sub := &auditSubscriber{send: make(chan AuditEvent, 1)}
	if s.audit.register(sub) {
		t.Error("register should fail after shutdown")
	}
}
