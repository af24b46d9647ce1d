// Package websocket pushes library activity to the owning user's live connections.
package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gaming-library/internal/domain"
	"github.com/gaming-library/internal/metrics"
	"github.com/gorilla/websocket"
)

// Message types
const (
	MessageTypeActivity    = "activity"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeError       = "error"
)

// Message is one frame sent to a client
type Message struct {
	Type         string      `json:"type"`
	CollectionID int64       `json:"collection_id,omitempty"`
	Data         interface{} `json:"data,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
}

// Hub owns the live connections, grouped by user. Membership changes and
// deliveries are serialized through Run.
type Hub struct {
	users map[int64]map[*Client]struct{}
	mu    sync.RWMutex

	register   chan *Client
	unregister chan *Client
	events     chan domain.ActivityEvent

	upgrader websocket.Upgrader
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub accepting upgrades from allowedOrigins ("*" allows any)
func NewHub(allowedOrigins []string, logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		users:      make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan domain.ActivityEvent, 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	anyOrigin := slices.Contains(allowed, "*")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin
		return origin == "" || anyOrigin || slices.Contains(allowed, origin)
	}
}

// Run processes registrations and deliveries until Stop
func (h *Hub) Run() {
	h.logger.Info("activity hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("activity hub stopped")
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case ev := <-h.events:
			h.deliver(ev)
		}
	}
}

// Stop ends Run
func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	set, ok := h.users[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.users[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	metrics.WebSocketConnections.Inc()
	c.logger.Debug("feed client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.users[c.userID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.users, c.userID)
	}
	close(c.send)
	metrics.WebSocketConnections.Dec()
	c.logger.Debug("feed client disconnected")
}

// deliver fans an event out to the owner's connections
func (h *Hub) deliver(ev domain.ActivityEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	msg := Message{
		Type:         MessageTypeActivity,
		CollectionID: ev.CollectionID,
		Data:         ev,
		Timestamp:    time.Now(),
	}
	for c := range h.users[ev.UserID] {
		if c.wants(ev.CollectionID) && !c.enqueue(msg) {
			c.logger.Warn("feed client is slow, dropping event", "event_id", ev.ID)
		}
	}
}

// BroadcastActivity queues an event for delivery without blocking
func (h *Hub) BroadcastActivity(ev domain.ActivityEvent) {
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("activity queue full, dropping event", "event_id", ev.ID)
	}
}

// Publish lets the hub stand in for a broker when Kafka is disabled
func (h *Hub) Publish(_ context.Context, ev domain.ActivityEvent) error {
	h.BroadcastActivity(ev)
	metrics.ActivityEventsPublished.WithLabelValues(string(ev.Type)).Inc()
	return nil
}

// Register adds a client to the hub
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// ConnectionCount returns the number of live connections of a user
func (h *Hub) ConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// TotalConnections returns the number of live connections
func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.users {
		n += len(set)
	}
	return n
}
