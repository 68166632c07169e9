package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/logger"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/memory"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/metrics"
	"github.com/Chorst09/SistemaPrevendasFull-sub006/internal/middleware"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// DefaultStatsPeriod is how often connected clients receive stats.
	DefaultStatsPeriod = 5 * time.Second
)

// WebSocketMessage represents a message sent to clients
type WebSocketMessage struct {
	Type    string `json:"type"` // "stats", "sweep"
	Payload any    `json:"payload"`
}

// Client represents a WebSocket client connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// StatsSource produces the snapshot pushed to clients.
type StatsSource func() memory.Stats

// Hub keeps the connected dashboards and pushes memory stats to them on a
// fixed period. Nothing is sampled while no client is connected.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	stats  StatsSource
	period time.Duration
	// done is closed when Run returns.
	done chan struct{}

	upgrader websocket.Upgrader
	origins  []string

	mu sync.RWMutex
}

// NewHub creates a hub sampling stats every period.
func NewHub(stats StatsSource, period time.Duration) *Hub {
	if period <= 0 {
		period = DefaultStatsPeriod
	}
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		stats:      stats,
		period:     period,
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// AllowOrigins sets the browser origins allowed to open a stream, using the
// same patterns as the CORS policy. Call before serving.
func (h *Hub) AllowOrigins(origins []string) {
	h.origins = origins
}

// checkOrigin accepts clients that send no Origin, same-host pages and the
// configured origins. Upgrades bypass CORS, so the check happens here.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if middleware.OriginAllowed(origin, h.origins) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.period)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketConnections.Inc()
			logger.Info("WebSocket client connected", "total_clients", n)
			h.sendStats(client)

		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				h.drop(client)
				logger.Info("WebSocket client disconnected", "total_clients", len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.fanOut(message)

		case <-ticker.C:
			if h.ClientCount() == 0 {
				continue
			}
			if data, ok := encodeMessage("stats", h.stats()); ok {
				h.fanOut(data)
			}
		}
	}
}

// drop removes client. Caller holds mu for writing.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	metrics.WebSocketConnections.Dec()
}

func (h *Hub) fanOut(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- message:
			metrics.WebSocketMessagesSent.Inc()
		default:
			// Client's send buffer is full, close the connection
			h.drop(client)
		}
	}
}

func (h *Hub) sendStats(client *Client) {
	data, ok := encodeMessage("stats", h.stats())
	if !ok {
		return
	}
	select {
	case client.send <- data:
		metrics.WebSocketMessagesSent.Inc()
	default:
	}
}

// Publish queues a message for every connected client. It never blocks; a
// full broadcast queue drops the message.
func (h *Hub) Publish(kind string, payload any) {
	data, ok := encodeMessage(kind, payload)
	if !ok {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		logger.Warn("WebSocket broadcast queue full, dropping message", "type", kind)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encodeMessage(kind string, payload any) ([]byte, bool) {
	data, err := json.Marshal(WebSocketMessage{Type: kind, Payload: payload})
	if err != nil {
		logger.Error("Failed to marshal WebSocket message", "type", kind, "error", err)
		return nil, false
	}
	return data, true
}

// readPump drains the connection so control frames are processed. Clients
// have nothing to say; any read error ends the session.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket unexpected close", "error", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleWebSocket upgrades the connection and subscribes it to the hub.
// GET /api/memory/ws
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade writes its own error response.
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithRequestID(r.Context()).Warn("Failed to upgrade to WebSocket", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 16),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
