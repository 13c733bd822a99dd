// Package feed broadcasts stride metrics to WebSocket clients.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cwbudde/gait-sonify/sonify"
)

const (
	// Path is the WebSocket endpoint.
	Path = "/ws"

	sendBuffer   = 16
	writeWait    = time.Second
	shutdownWait = 2 * time.Second
)

// Message is one metric update.
type Message struct {
	Session    string  `json:"session"`
	TimeMs     float64 `json:"timeMs"`
	Balance    float64 `json:"balance"`
	LeftAvgMs  float64 `json:"leftAvgMs"`
	RightAvgMs float64 `json:"rightAvgMs"`
	Cadence    float64 `json:"cadence"`
	Event      string  `json:"event"`
}

// FromUpdate builds a message from an analysis update.
func FromUpdate(session string, u sonify.Update) Message {
	m := Message{
		Session:    session,
		TimeMs:     u.TimeMs,
		Balance:    u.Balance,
		LeftAvgMs:  u.LeftMs,
		RightAvgMs: u.RightMs,
		Cadence:    u.Cadence,
	}
	if u.Event.Valid() {
		m.Event = u.Event.Type.String()
	}
	return m
}

// Stats contains hub statistics.
type Stats struct {
	Clients        int    `json:"clients"`
	MessagesSent   uint64 `json:"messages_sent"`
	ClientsDropped uint64 `json:"clients_dropped"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans messages out to connected clients. Broadcast never blocks; a
// client whose send buffer is full is disconnected.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	messagesSent   atomic.Uint64
	clientsDropped atomic.Uint64
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed is read-only and carries no credentials.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// RegisterRoutes adds the WebSocket endpoint and a JSON stats endpoint.
func (h *Hub) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle(Path, h)
	mux.HandleFunc("/stats", h.handleStats)
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("feed upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("feed client connected", "remote", r.RemoteAddr, "clients", count)

	go h.writePump(c)
	go h.readPump(c)
}

// writePump owns all writes to the connection.
func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			return
		}
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump discards client input and notices disconnects.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}

	if h.remove(c) {
		h.logger.Info("feed client disconnected", "clients", h.ClientCount())
	}
}

// remove unregisters c and closes its send channel. It reports whether c was
// still registered.
func (h *Hub) remove(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) bool {
	if _, ok := h.clients[c]; !ok {
		return false
	}
	delete(h.clients, c)
	close(c.send)
	return true
}

// Broadcast sends msg to every client.
func (h *Hub) Broadcast(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
			h.messagesSent.Add(1)
		default:
			h.removeLocked(c)
			h.clientsDropped.Add(1)
			h.logger.Warn("feed client too slow, dropped")
		}
	}

	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// Stats returns hub statistics.
func (h *Hub) Stats() Stats {
	return Stats{
		Clients:        h.ClientCount(),
		MessagesSent:   h.messagesSent.Load(),
		ClientsDropped: h.clientsDropped.Load(),
	}
}

func (h *Hub) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.Stats())
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// ListenAndServe serves the hub on addr until ctx is done.
func ListenAndServe(ctx context.Context, addr string, h *Hub) error {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("feed listening", "addr", addr, "path", Path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	h.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
