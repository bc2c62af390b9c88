package server

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dkovn/match-server/pkg/messages"
)

// Connection wraps one websocket client. The rest of the system never sees
// the socket; it sees the uuid identity and the SendJSON sink.
type Connection struct {
	ID   uuid.UUID
	ws   *websocket.Conn
	hub  *Hub
	send chan []byte // Buffered channel of outbound messages.

	mu     sync.Mutex
	closed bool

	logger *zap.Logger
}

// NewConnection wraps an upgraded websocket.
func NewConnection(ws *websocket.Conn, hub *Hub, logger *zap.Logger) *Connection {
	return &Connection{
		ID:     uuid.New(),
		ws:     ws,
		hub:    hub,
		send:   make(chan []byte, 256), // buffered for outgoing messages
		logger: logger,
	}
}

// ConnID returns the stable opaque identity of this connection.
func (c *Connection) ConnID() uuid.UUID {
	return c.ID
}

// ReadPump handles inbound messages from the client
func (c *Connection) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.ws.Close()
	}()

	for {
		msgType, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Error("read error", zap.Error(err))
			}
			break
		}

		// We only handle text
		if msgType != websocket.TextMessage {
			continue
		}

		var inbound messages.InboundMessage
		if err := json.Unmarshal(msg, &inbound); err != nil {
			c.SendJSON(messages.OutboundMessage{
				Type:    messages.TypeError,
				Payload: messages.ErrorPayload{Message: "malformed message envelope"},
			})
			continue
		}

		c.hub.route(InboundHubMessage{
			Conn:    c,
			Message: inbound,
		})
	}
}

// WritePump handles outbound messages to the client
func (c *Connection) WritePump() {
	defer func() {
		c.ws.Close()
	}()

	for {
		message, ok := <-c.send
		if !ok {
			// Channel closed
			return
		}
		if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
			c.logger.Error("write error", zap.Error(err))
			return
		}
	}
}

// SendJSON queues a JSON message for this connection. Sends are fire and
// forget; a slow client whose buffer is full loses the frame rather than
// stalling a session.
func (c *Connection) SendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("error marshaling JSON", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping frame",
			zap.String("connection_id", c.ID.String()))
	}
}

// closeSend stops the write pump. Further SendJSON calls become no-ops.
func (c *Connection) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
