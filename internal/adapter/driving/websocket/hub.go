// Package websocket hosts the gorilla/websocket status-broadcast hub
// spec.md §6 describes: a per-tenant fan-out of status.Event messages to
// any connected client. Connection lifecycle and backpressure handling
// beyond a bounded per-client send buffer are out of scope (spec.md §1);
// this is the publish-side contract only.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/orchestrix/tracksync/internal/status"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client is one subscribed connection, scoped to a single tenant.
type client struct {
	tenantID uuid.UUID
	conn     *websocket.Conn
	send     chan status.Event
}

// Hub fans status.Events out to every client subscribed to the event's
// tenant. A mutex guards the client set so register/unregister/broadcast
// never race each other.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub builds an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Broadcast fans event out to every currently-connected client subscribed
// to event.TenantID. Non-blocking: for a client whose send buffer is full
// the event is dropped (the client stays connected) rather than stalling
// the whole hub.
func (h *Hub) Broadcast(event status.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.tenantID != event.TenantID {
			continue
		}
		select {
		case c.send <- event:
		default:
			slog.Warn("websocket client send buffer full, dropping event", "tenant_id", event.TenantID)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
}

// ServeHTTP upgrades the connection and subscribes it to tenant_id's
// status events, per spec.md §6's {tenant_id, job_id, status_json}
// contract.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.URL.Query().Get("tenant_id"))
	if err != nil {
		http.Error(w, "missing or invalid tenant_id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{tenantID: tenantID, conn: conn, send: make(chan status.Event, 32)}
	h.register(c)
	go h.writeLoop(c)
	go h.readLoop(c)
}

// readLoop only exists to notice the client going away (gorilla/websocket
// requires draining reads to detect close/error).
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			body, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Bridge subscribes to status.Channel on Redis and forwards every event to
// a Hub, decoupling the process that observes a flag crossing (a worker)
// from the process hosting client connections (the API).
type Bridge struct {
	client *redis.Client
	hub    *Hub
}

// NewBridge builds a Bridge.
func NewBridge(client *redis.Client, hub *Hub) *Bridge {
	return &Bridge{client: client, hub: hub}
}

// Run subscribes and forwards until ctx is canceled.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.client.Subscribe(ctx, status.Channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event status.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Error("invalid status event payload", "error", err)
				continue
			}
			b.hub.Broadcast(event)
		}
	}
}
