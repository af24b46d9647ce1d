package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one authenticated feed connection
type Client struct {
	id     string
	userID int64
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
	logger *slog.Logger

	mu          sync.RWMutex
	collections map[int64]struct{} // empty means every collection
}

// ClientMessage is a control frame sent by the browser
type ClientMessage struct {
	Type         string `json:"type"`
	CollectionID int64  `json:"collection_id,omitempty"`
}

// NewClient creates a feed client for userID
func NewClient(hub *Hub, conn *websocket.Conn, userID int64, logger *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:          id,
		userID:      userID,
		hub:         hub,
		conn:        conn,
		send:        make(chan Message, sendBuffer),
		logger:      logger.With("client_id", id, "user_id", userID),
		collections: make(map[int64]struct{}),
	}
}

// wants reports whether events for collectionID pass the client's filter
func (c *Client) wants(collectionID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.collections) == 0 {
		return true
	}
	_, ok := c.collections[collectionID]
	return ok
}

func (c *Client) follow(collectionID int64, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.collections[collectionID] = struct{}{}
	} else {
		delete(c.collections, collectionID)
	}
}

// enqueue hands msg to the writer without blocking; a full buffer drops it
func (c *Client) enqueue(msg Message) bool {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// readLoop handles control frames until the peer goes away
func (c *Client) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("feed connection closed unexpectedly", "error", err)
			}
			return
		}

		var in ClientMessage
		if err := json.Unmarshal(raw, &in); err != nil {
			c.enqueue(errorMessage("invalid message format"))
			continue
		}
		c.dispatch(in)
	}
}

func (c *Client) dispatch(in ClientMessage) {
	switch in.Type {
	case MessageTypeSubscribe:
		if in.CollectionID <= 0 {
			c.enqueue(errorMessage("collection_id required for subscribe"))
			return
		}
		c.follow(in.CollectionID, true)
		c.enqueue(Message{Type: "subscribed", CollectionID: in.CollectionID})
	case MessageTypeUnsubscribe:
		c.follow(in.CollectionID, false)
		c.enqueue(Message{Type: "unsubscribed", CollectionID: in.CollectionID})
	case MessageTypePing:
		c.enqueue(Message{Type: MessageTypePong})
	default:
		c.logger.Debug("ignoring unknown message type", "type", in.Type)
	}
}

// writeLoop serializes queued messages and keeps the connection alive
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, open := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !open {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func errorMessage(text string) Message {
	return Message{Type: MessageTypeError, Data: map[string]string{"error": text}}
}

// ServeWs upgrades an already authenticated request into a feed for userID
func ServeWs(hub *Hub, userID int64, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(hub, conn, userID, logger)
	hub.Register(client)

	go client.writeLoop()
	go client.readLoop()
}
