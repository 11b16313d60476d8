// Package hub fans accepted telemetry out to live websocket subscribers.
package hub

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/uastrack/internal/metrics"
	"github.com/example/uastrack/internal/security"
	"github.com/example/uastrack/internal/telemetry"
)

const writeTimeout = 10 * time.Second

// Options configure a Hub.
type Options struct {
	// AuthToken is the shared subscriber secret. Empty disables the check.
	AuthToken string
	// HeartbeatInterval is the ping sweep period. A connection that fails
	// to answer one full interval is terminated.
	HeartbeatInterval time.Duration
	// RateLimit is both the minimum interval between hub-wide dispatches
	// and the per-connection minimum send interval.
	RateLimit time.Duration
}

func (o *Options) applyDefaults() {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 250 * time.Millisecond
	}
}

// envelope is the wire frame sent to subscribers.
type envelope struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

type connection struct {
	ws       *websocket.Conn
	alive    bool
	lastSent time.Time
}

// Hub owns the live subscriber set. All mutable state (connections, pending
// debounce payload, last-dispatch instant) sits behind one mutex so the
// debounce and heartbeat sequencing cannot be reordered by finer locking.
type Hub struct {
	opts     Options
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu              sync.Mutex
	conns           map[*connection]struct{}
	lastBroadcastAt time.Time
	pending         *telemetry.Message
	debounce        *time.Timer
	closed          bool

	heartbeatStop chan struct{}
}

// New builds a Hub and starts its heartbeat sweep.
func New(opts Options, logger *log.Logger) *Hub {
	opts.applyDefaults()
	if logger == nil {
		logger = log.Default()
	}

	h := &Hub{
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns:         make(map[*connection]struct{}),
		heartbeatStop: make(chan struct{}),
	}

	go h.heartbeatLoop()
	return h
}

// ServeHTTP upgrades a subscriber handshake. Authorization happens after the
// upgrade so the handshake itself stays standard: a bad token gets a 1008
// close and is never registered.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Echo the offered subprotocol; clients may carry the token there.
	var respHeader http.Header
	if proto := r.Header.Get("Sec-WebSocket-Protocol"); proto != "" {
		respHeader = http.Header{"Sec-WebSocket-Protocol": {proto}}
	}

	ws, err := h.upgrader.Upgrade(w, r, respHeader)
	if err != nil {
		h.logger.Printf("WebSocket upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	if !security.AuthorizeSubscriber(r, h.opts.AuthToken) {
		h.logger.Printf("Unauthorized subscriber from %s", r.RemoteAddr)
		deadline := time.Now().Add(writeTimeout)
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"), deadline)
		ws.Close()
		return
	}

	conn := &connection{ws: ws, alive: true}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		ws.Close()
		return
	}
	h.conns[conn] = struct{}{}
	count := len(h.conns)
	h.writeJSON(conn, envelope{Type: "welcome", Timestamp: time.Now().UTC().Format(time.RFC3339)})
	h.mu.Unlock()

	metrics.SetActiveConnections("ingest-service", float64(count))
	ws.SetPongHandler(func(string) error {
		h.markAlive(conn)
		return nil
	})

	go h.readPump(conn)
}

// Broadcast delivers a message to every live subscriber, collapsing bursts:
// at most one hub-wide dispatch per RateLimit interval, and a burst inside
// the interval is debounced to a single deferred dispatch carrying the most
// recent message.
func (h *Hub) Broadcast(msg telemetry.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || len(h.conns) == 0 {
		return
	}

	elapsed := time.Since(h.lastBroadcastAt)
	if elapsed < h.opts.RateLimit {
		m := msg
		h.pending = &m
		if h.debounce == nil {
			h.debounce = time.AfterFunc(h.opts.RateLimit-elapsed, h.fireDebounce)
		}
		return
	}

	h.dispatchLocked(msg)
}

// ConnCount reports the number of registered subscriber connections.
func (h *Hub) ConnCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close stops the heartbeat, cancels any pending debounce, and closes every
// subscriber connection. Safe to call more than once.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.heartbeatStop)
	if h.debounce != nil {
		h.debounce.Stop()
		h.debounce = nil
	}
	h.pending = nil
	for conn := range h.conns {
		conn.ws.Close()
	}
	h.conns = make(map[*connection]struct{})
	h.mu.Unlock()

	metrics.SetActiveConnections("ingest-service", 0)
}

func (h *Hub) fireDebounce() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.debounce = nil
	if h.closed || h.pending == nil {
		return
	}
	msg := *h.pending
	h.pending = nil
	h.dispatchLocked(msg)
}

// dispatchLocked sends to every open connection that has not received a
// message within the last RateLimit. Callers hold h.mu.
func (h *Hub) dispatchLocked(msg telemetry.Message) {
	now := time.Now()
	h.lastBroadcastAt = now

	payload, err := json.Marshal(envelope{Type: "telemetry", Payload: msg})
	if err != nil {
		h.logger.Printf("Failed to marshal broadcast payload: %v", err)
		return
	}

	sent := 0
	for conn := range h.conns {
		if now.Sub(conn.lastSent) < h.opts.RateLimit {
			continue
		}
		conn.lastSent = now
		conn.ws.SetWriteDeadline(now.Add(writeTimeout))
		if err := conn.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			// The read pump reaps broken connections; a failed send is
			// skipped, never escalated.
			continue
		}
		sent++
	}

	metrics.RecordBroadcast("ingest-service", sent)
}

// heartbeatLoop is a two-sweep dead-peer detector: each sweep terminates
// connections that never answered the previous ping, then marks the rest
// stale and pings them again.
func (h *Hub) heartbeatLoop() {
	ticker := time.NewTicker(h.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.heartbeatStop:
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

func (h *Hub) sweep() {
	h.mu.Lock()
	for conn := range h.conns {
		if !conn.alive {
			conn.ws.Close()
			delete(h.conns, conn)
			continue
		}
		conn.alive = false
		conn.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		conn.ws.WriteMessage(websocket.PingMessage, nil)
	}
	count := len(h.conns)
	h.mu.Unlock()

	metrics.SetActiveConnections("ingest-service", float64(count))
}

// readPump consumes inbound frames so control messages (pong, close) are
// processed, and unregisters the connection when the peer goes away.
func (h *Hub) readPump(conn *connection) {
	for {
		if _, _, err := conn.ws.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(conn)
}

func (h *Hub) remove(conn *connection) {
	h.mu.Lock()
	delete(h.conns, conn)
	count := len(h.conns)
	h.mu.Unlock()

	conn.ws.Close()
	metrics.SetActiveConnections("ingest-service", float64(count))
}

func (h *Hub) markAlive(conn *connection) {
	h.mu.Lock()
	conn.alive = true
	h.mu.Unlock()
}

// writeJSON sends one frame; callers hold h.mu.
func (h *Hub) writeJSON(conn *connection, v interface{}) {
	conn.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.ws.WriteJSON(v); err != nil {
		h.logger.Printf("Failed to send frame: %v", err)
	}
}
