package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/JonMunkholm/bakery/internal/loader"
	"github.com/JonMunkholm/bakery/internal/logging"
	"github.com/gorilla/websocket"
)

// Websocket message types.
const (
	MessageSnapshot = "menu.snapshot" // sent once on connect
	MessageUpdated  = "menu.updated"  // sent whenever the loader publishes
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsSendBuffer = 8
	wsReadLimit  = 512
)

// WSMessage is the envelope pushed to websocket clients.
type WSMessage struct {
	Type string       `json:"type"`
	Data MenuResponse `json:"data"`
}

// Hub fans loader updates out to connected websocket clients.
// Clients are read-only; anything they send is discarded.
type Hub struct {
	upgrader websocket.Upgrader
	current  func() loader.State
	logger   *slog.Logger

	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub. current supplies the snapshot sent to new clients.
// An empty allowedOrigins accepts same-host connections only.
func NewHub(current func() loader.State, allowedOrigins []string) *Hub {
	h := &Hub{
		current:    current,
		logger:     slog.Default().With("component", "menu_ws"),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		clients:    make(map[*wsClient]struct{}),
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		}
	}
	return h
}

// Run serves register, unregister and broadcast until ctx is cancelled or
// updates is closed. Remaining clients are disconnected on return.
func (h *Hub) Run(ctx context.Context, updates <-chan loader.State) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			h.sendSnapshot(c)

		case c := <-h.unregister:
			h.remove(c)

		case st, ok := <-updates:
			if !ok {
				return
			}
			msg, err := encodeMessage(MessageUpdated, st)
			if err != nil {
				h.logger.Error("encode menu update failed", "error", err)
				continue
			}
			h.broadcast(msg)
		}
	}
}

// sendSnapshot queues the current menu for a client that was just registered.
// It runs on the hub loop, so no update can slip in between the snapshot and
// the client's first broadcast.
func (h *Hub) sendSnapshot(c *wsClient) {
	msg, err := encodeMessage(MessageSnapshot, h.current())
	if err != nil {
		h.logger.Error("encode menu snapshot failed", "error", err)
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("websocket client too slow, disconnecting")
			close(c.send)
			delete(h.clients, c)
		}
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	close(h.done)
}

// HandleWebSocket upgrades the request and registers the client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithFields(r.Context(), "ip", r.RemoteAddr)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	logger.Debug("websocket client connected")
	go c.writePump()
	go c.readPump(h)
}

// writePump writes queued messages and keepalive pings until send is closed.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client input and unregisters the client once the
// connection fails or closes.
func (c *wsClient) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	c.conn.SetReadLimit(wsReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func encodeMessage(kind string, st loader.State) ([]byte, error) {
	return json.Marshal(WSMessage{Type: kind, Data: newMenuResponse(st)})
}
