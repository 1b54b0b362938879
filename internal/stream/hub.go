// Package stream pushes bus events to connected dashboard clients over
// WebSocket.
package stream

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"nsiwatch/internal/events"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 90 * time.Second
	pingInterval = 30 * time.Second
)

// Frame is the wire format pushed to clients.
type Frame struct {
	Type       string            `json:"type"`
	Dictionary string            `json:"dictionary,omitempty"`
	Message    string            `json:"message"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	done chan struct{}

	// writeMu serializes data writes; publishers on different
	// goroutines may broadcast at the same time.
	writeMu sync.Mutex
}

func (c *client) writeFrame(frame Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(frame)
}

// Hub fans bus events out to every connected client. A write failure
// drops only the failing connection.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Attach subscribes the hub to the event types worth streaming.
func (h *Hub) Attach(bus *events.Bus) {
	bus.Subscribe(h.broadcast,
		events.UpdateDetected, events.ReportReady, events.CatalogRefreshed)
}

// HandleConnection upgrades the request and keeps the connection
// registered until the peer goes away.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("stream: upgrade failed")
		return
	}

	c := &client{conn: conn, done: make(chan struct{})}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("stream: client connected")

	go h.pingLoop(c)
	h.readLoop(c)

	h.drop(c)
	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("stream: client disconnected")
}

// readLoop consumes inbound frames. Clients only listen; anything they
// send is discarded, but reading is what detects the close.
func (h *Hub) readLoop(c *client) {
	defer c.conn.Close()

	c.conn.SetReadLimit(4 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	}
}

func (h *Hub) pingLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(
				websocket.PingMessage, nil,
				time.Now().Add(writeTimeout),
			); err != nil {
				return
			}
		}
	}
}

// broadcast writes one event to every client on the publisher's
// goroutine. The scheduler and manual checks publish independently, so
// each client write is serialized through its writeMu.
func (h *Hub) broadcast(e events.Event) {
	frame := Frame{
		Type:       string(e.Type),
		Dictionary: e.Dictionary,
		Message:    e.Message,
		Metadata:   e.Metadata,
		Timestamp:  e.Timestamp,
	}

	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.writeFrame(frame); err != nil {
			log.Debug().Err(err).Msg("stream: dropping client after write failure")
			c.conn.Close()
			h.drop(c)
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		close(c.done)
		delete(h.clients, c)
	}
	h.mu.Unlock()
}

// ActiveConnections reports the number of connected clients.
func (h *Hub) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll terminates every connection on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		close(c.done)
		c.writeMu.Lock()
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(5*time.Second),
		)
		c.conn.Close()
		c.writeMu.Unlock()
	}
}
