// Package ws pushes overlay view states to connected widgets over WebSocket,
// so embeds can refresh the moment a poll commits instead of waiting out
// their own timer.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/oddsboard/oddsboard/internal/metrics"
	"github.com/oddsboard/oddsboard/internal/overlay"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 512

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 16
)

// upgrader configures the WebSocket upgrade parameters. Overlay embeds live
// on arbitrary third-party origins, so origin checks stay open.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is one connected widget, bound to a single ticker for its lifetime.
type client struct {
	id     string
	ticker string
	conn   *websocket.Conn
	send   chan []byte
}

// envelope is the wire format pushed to clients.
type envelope struct {
	Type    string            `json:"type"` // "view_state"
	Ticker  string            `json:"ticker"`
	Payload overlay.ViewState `json:"payload"`
}

// Hub upgrades widget connections and streams each one the view states of
// its ticker's session. There is no cross-client broadcast: every client has
// exactly one subscription, made against the shared session manager.
type Hub struct {
	manager *overlay.Manager
	logger  *slog.Logger

	mu      sync.Mutex
	clients map[string]*client
}

// NewHub creates a Hub backed by the given session manager.
func NewHub(manager *overlay.Manager, logger *slog.Logger) *Hub {
	return &Hub{
		manager: manager,
		logger:  logger.With(slog.String("component", "ws")),
		clients: make(map[string]*client),
	}
}

// HandleWS upgrades the request and streams view states for the ticker named
// in the query string until either side disconnects.
// GET /ws?ticker=...
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		http.Error(w, `{"error":"missing ticker","code":"INVALID_INPUT"}`, http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		id:     uuid.NewString(),
		ticker: ticker,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}

	h.addClient(c)

	sess, release := h.manager.Acquire(r.Context(), ticker)
	states, unsubscribe := sess.Subscribe()

	go c.writePump()

	// Sole sender on c.send: pushes the current state immediately so a late
	// joiner does not wait for the next poll, then forwards committed states
	// until the subscription closes.
	go func() {
		defer close(c.send)
		c.enqueue(ticker, sess.View())
		for view := range states {
			c.enqueue(ticker, view)
		}
	}()

	go func() {
		c.readPump(h.logger)
		unsubscribe()
		release()
		h.removeClient(c)
	}()
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Shutdown disconnects every client.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
}

func (h *Hub) addClient(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(total))
	h.logger.Info("client connected",
		slog.String("client_id", c.id),
		slog.String("ticker", c.ticker),
		slog.Int("total_clients", total),
	)
}

func (h *Hub) removeClient(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(total))
	h.logger.Info("client disconnected",
		slog.String("client_id", c.id),
		slog.Int("total_clients", total),
	)
}

// enqueue serializes a view state onto the client's send buffer, dropping
// the update when the client cannot keep up. The next state supersedes it
// anyway.
func (c *client) enqueue(ticker string, view overlay.ViewState) {
	data, err := json.Marshal(envelope{
		Type:    "view_state",
		Ticker:  ticker,
		Payload: view,
	})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readPump consumes the connection until it closes. Clients send nothing
// meaningful; reads exist to process pongs and detect disconnects.
func (c *client) readPump(logger *slog.Logger) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("unexpected close", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// writePump pumps view states from the send buffer to the connection and
// keeps the connection alive with periodic pings.
func (c *client) writePump() {
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
