package server

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// AuditEvent is one classification published to the audit stream.
type AuditEvent struct {
	Time     time.Time `json:"time"`
	Verdict  string    `json:"verdict"`
	Reason   string    `json:"reason"`
	Host     string    `json:"host,omitempty"`
	ClientIP string    `json:"client_ip,omitempty"`
}

// Audit stream timing. Mirrors the write/ping cadence of a long-lived
// operator connection: pings must be acknowledged within the read deadline.
const (
	auditWriteTimeout = 10 * time.Second
	auditPingInterval = 30 * time.Second
	auditReadTimeout  = 60 * time.Second
)

// auditHub fans classification events out to WebSocket subscribers.
//
// Publishing never blocks: each subscriber has a bounded queue and events to
// a full queue are dropped. The redirect path is unaffected by slow or
// absent subscribers.
type auditHub struct {
	mu     sync.RWMutex
	subs   map[*auditSubscriber]struct{}
	closed bool

	upgrader  websocket.Upgrader
	queueSize int
	dropped   atomic.Int64

	logger *slog.Logger
}

type auditSubscriber struct {
	conn *websocket.Conn
	send chan AuditEvent
	once sync.Once
}

func newAuditHub(config *Config, logger *slog.Logger) *auditHub {
	return &auditHub{
		subs: make(map[*auditSubscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
		queueSize: config.AuditQueueSize,
		logger:    logger,
	}
}

// publish delivers ev to every subscriber without blocking.
func (h *auditHub) publish(ev AuditEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		select {
		case sub.send <- ev:
		default:
			// Queue full: drop rather than stall the request path.
			h.dropped.Add(1)
		}
	}
}

// Dropped returns the number of events dropped due to full subscriber queues.
func (h *auditHub) Dropped() int64 {
	return h.dropped.Load()
}

// handleUpgrade implements GET /audit/ws.
func (h *auditHub) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("audit upgrade failed", "error", err)
		return
	}

	sub := &auditSubscriber{
		conn: conn,
		send: make(chan AuditEvent, h.queueSize),
	}

	if !h.register(sub) {
		conn.Close()
		return
	}

	go h.writeLoop(sub)
	go h.readLoop(sub)
}

func (h *auditHub) register(sub *auditSubscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.subs[sub] = struct{}{}
	h.logger.Info("audit subscriber connected", "subscribers", len(h.subs))
	return true
}

func (h *auditHub) unregister(sub *auditSubscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	sub.close()
	h.logger.Info("audit subscriber disconnected", "subscribers", len(h.subs))
}

// writeLoop drains the subscriber queue and keeps the connection alive.
func (h *auditHub) writeLoop(sub *auditSubscriber) {
	ping := time.NewTicker(auditPingInterval)
	defer func() {
		ping.Stop()
		h.unregister(sub)
	}()

	for {
		select {
		case ev, ok := <-sub.send:
			if !ok {
				return
			}
			sub.conn.SetWriteDeadline(time.Now().Add(auditWriteTimeout))
			if err := sub.conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ping.C:
			sub.conn.SetWriteDeadline(time.Now().Add(auditWriteTimeout))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards inbound messages; the stream is one-way. It exists to
// process pong frames and to notice the peer going away.
func (h *auditHub) readLoop(sub *auditSubscriber) {
	defer h.unregister(sub)

	sub.conn.SetReadLimit(512)
	sub.conn.SetReadDeadline(time.Now().Add(auditReadTimeout))
	sub.conn.SetPongHandler(func(string) error {
		sub.conn.SetReadDeadline(time.Now().Add(auditReadTimeout))
		return nil
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				h.logger.Warn("audit read error", "error", err)
			}
			return
		}
	}
}

// shutdown closes every subscriber and refuses new ones.
func (h *auditHub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		sub.close()
		delete(h.subs, sub)
	}
}

func (s *auditSubscriber) close() {
	s.once.Do(func() {
		close(s.send)
		s.conn.Close()
	})
}
