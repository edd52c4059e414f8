// Package preview streams the strip's output to browsers over a websocket so
// patterns can be watched without hardware attached.
package preview

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smazurov/ledsched/internal/events"
	"github.com/smazurov/ledsched/internal/led"
)

const (
	writeWait  = 200 * time.Millisecond
	sendBuffer = 16
)

// Source is the strip being previewed.
type Source interface {
	LastFrame() (led.State, uint64, bool)
	Count() int
	DriverName() string
}

// Topology is the first message a client receives.
type Topology struct {
	Type   string `json:"type"`
	Count  int    `json:"count"`
	Driver string `json:"driver"`
}

// Frame carries one written LED state as packed RGB. FrameID is the strip's
// write sequence number, so gaps show frames the client missed.
type Frame struct {
	Type    string `json:"type"`
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	RGB     []byte `json:"rgb"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans LED frames out to websocket clients. Slow clients drop frames
// rather than hold up the strip.
type Hub struct {
	source   Source
	bus      *events.Bus
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	unsub   func()
}

// NewHub creates a hub for source. Call Start to begin forwarding frames.
func NewHub(source Source, bus *events.Bus, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		source:  source,
		bus:     bus,
		logger:  logger,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Start subscribes to LED state changes.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unsub != nil {
		return
	}
	h.unsub = h.bus.Subscribe(func(e events.LEDStateChangedEvent) {
		h.broadcast(e.Seq, e.Frame)
	})
}

// Stop unsubscribes and disconnects every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.unsub != nil {
		h.unsub()
		h.unsub = nil
	}
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		close(c.send)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Preview upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	c.send <- mustJSON(Topology{Type: "topology", Count: h.source.Count(), Driver: h.source.DriverName()})
	if last, seq, ok := h.source.LastFrame(); ok {
		c.send <- frame(seq, last.Bytes())
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("Preview client connected", "remote", r.RemoteAddr, "clients", n)

	go h.writeLoop(c)
	go h.readLoop(c)
}

func frame(seq uint64, rgb []byte) []byte {
	return mustJSON(Frame{
		Type:    "frame",
		T:       time.Now().UnixNano(),
		FrameID: seq,
		RGB:     rgb,
	})
}

func (h *Hub) broadcast(seq uint64, rgb []byte) {
	msg := frame(seq, rgb)

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// client is behind; drop this frame
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("Preview write failed", "error", err)
			h.remove(c)
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
}

// readLoop discards client messages and notices disconnects.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
