package live

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bitor-console/internal/store"
	"bitor-console/internal/types"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames.
	maxMessageSize = 1024

	sendBuffer = 64
)

var errSlowClient = errors.New("client send buffer full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame is the payload written for every settings value. Data is absent
// while the settings are unset.
type Frame = types.ApiResponse[types.AppSettings]

// Hub streams the settings store to websocket clients
type Hub struct {
	settings store.Readable[*types.AppSettings]
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

// NewHub creates a hub for the given settings
func NewHub(settings store.Readable[*types.AppSettings], logger *slog.Logger) *Hub {
	return &Hub{
		settings: settings,
		logger:   logger,
		clients:  make(map[string]*client),
	}
}

// Handler returns an HTTP handler function for WebSocket upgrades
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := "client-" + uuid.New().String()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Error("websocket upgrade failed", "error", err)
			return
		}

		c := newClient(conn, clientID)
		if !h.register(c) {
			c.close()
			return
		}
		defer h.unregister(c)

		h.logger.Debug("settings stream opened", "client_id", clientID)

		unsubscribe := h.settings.Subscribe(func(v *types.AppSettings) {
			if err := c.enqueue(frame(v)); err != nil {
				h.logger.Warn("dropping settings stream client", "client_id", clientID, "error", err)
				c.close()
			}
		})
		defer unsubscribe()

		go c.writePump()
		c.readPump()

		h.logger.Debug("settings stream closed", "client_id", clientID)
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	c.close()
}

func frame(v *types.AppSettings) []byte {
	f := Frame{Success: true, Data: v}
	if v == nil {
		f.Message = "settings not loaded"
	}
	data, _ := json.Marshal(f)
	return data
}
