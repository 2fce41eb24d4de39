// Package events broadcasts front-end activity to WebSocket subscribers so
// web clients can refresh their views without polling.
package events

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/paperfeed/paperfeed/api/types/v1alpha1"
)

const (
	// writeWait bounds a single frame write to a subscriber
	writeWait = 10 * time.Second
	// sendBuffer is the per-client queue; slow clients are dropped when it
	// fills rather than stalling the hub
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the front end serves a single-origin UI on a private network
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan v1alpha1.Event
}

// Hub fans events out to all connected subscribers
type Hub struct {
	logger *slog.Logger

	broadcast  chan v1alpha1.Event
	register   chan *client
	unregister chan *client
	clients    map[*client]bool

	// done is closed when Run exits so client goroutines never block on
	// a hub that is no longer receiving
	done chan struct{}
}

// NewHub creates an event hub; call Run before serving connections
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		broadcast:  make(chan v1alpha1.Event, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		clients:    make(map[*client]bool),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until the context is canceled
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				close(c.send)
				c.conn.Close()
			}
			return ctx.Err()
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case ev := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- ev:
				default:
					// slow consumer; disconnect instead of blocking
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Publish queues an event for every subscriber. Never blocks; when the hub
// is saturated the event is dropped.
func (h *Hub) Publish(eventType v1alpha1.EventType, data map[string]string) {
	ev := v1alpha1.Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	select {
	case h.broadcast <- ev:
	default:
		h.logger.Warn("event dropped, hub saturated", "type", eventType)
	}
}

// ServeHTTP upgrades the request and subscribes the connection to the feed
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan v1alpha1.Event, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writeLoop(c)
	go h.readLoop(c)
}

// writeLoop pushes queued events to one subscriber
func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for ev := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			h.drop(c)
			return
		}
	}
}

// readLoop discards inbound frames and detects disconnects
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.drop(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// drop hands a client back to the hub, or gives up if the hub has stopped
func (h *Hub) drop(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
