// Package server connects the websocket transport to the match core: the Hub
// owns the connection set and routes every inbound message and lifecycle
// event to the matchmaking queue or the session registry.
package server

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/dkovn/match-server/pkg/events"
	"github.com/dkovn/match-server/pkg/game"
	"github.com/dkovn/match-server/pkg/matchmaking"
	"github.com/dkovn/match-server/pkg/messages"
	"github.com/dkovn/match-server/pkg/practice"
)

// InboundHubMessage are the messages that the hub receives
type InboundHubMessage struct {
	Conn    *Connection             // who sent it
	Message messages.InboundMessage // decoded envelope
}

// Hub keeps track of all active connections and routes their messages.
// Ready-signals go to the matchmaking queue, game messages go through the
// session registry, disconnects go to both.
type Hub struct {
	mu          sync.RWMutex         // Mutex to protect direct access to the connections map.
	connections map[*Connection]bool // Registered connections

	register   chan *Connection       // Incoming registration
	unregister chan *Connection       // Incoming unregistration
	inbound    chan InboundHubMessage // Inbound messages to route

	done chan struct{}

	queue     *matchmaking.Queue
	registry  *game.Registry
	generator *practice.Generator

	publisher *events.Publisher
	logger    *zap.Logger
}

// NewHub creates a new hub
func NewHub(
	queue *matchmaking.Queue,
	registry *game.Registry,
	generator *practice.Generator,
	publisher *events.Publisher,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		inbound:     make(chan InboundHubMessage),
		done:        make(chan struct{}),
		queue:       queue,
		registry:    registry,
		generator:   generator,
		publisher:   publisher,
		logger:      logger,
	}
}

// Run is the main execution of the hub
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.registerConnection(conn)

		case conn := <-h.unregister:
			h.unregisterConnection(conn)

		case msg := <-h.inbound:
			h.handleInbound(msg)

		case <-h.done:
			return
		}
	}
}

func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
	}
}

func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// route hands an inbound message to the hub loop, dropping it when the hub
// has already shut down.
func (h *Hub) route(msg InboundHubMessage) {
	select {
	case h.inbound <- msg:
	case <-h.done:
	}
}

// Shutdown stops the hub loop and closes every connection's send channel.
func (h *Hub) Shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.connections {
		conn.closeSend()
		delete(h.connections, conn)
	}
}

func (h *Hub) registerConnection(conn *Connection) {
	h.mu.Lock()
	h.connections[conn] = true
	h.mu.Unlock()

	conn.SendJSON(messages.OutboundMessage{
		Type:    messages.TypeConnected,
		Payload: messages.ConnectedPayload{ConnectionID: conn.ID.String()},
	})

	h.logger.Info("connection registered", zap.String("connection_id", conn.ID.String()))

	h.publisher.Publish(events.Event{
		Type:    events.EventConnectionOpened,
		Payload: conn.ID.String(),
	})
}

func (h *Hub) unregisterConnection(conn *Connection) {
	h.mu.Lock()
	_, ok := h.connections[conn]
	if ok {
		delete(h.connections, conn)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	// Drop any pending matchmaking entry first, then let the registry run the
	// session-side disconnect handling.
	h.queue.Remove(conn.ID)
	h.registry.Disconnect(conn.ID)
	conn.closeSend()

	h.logger.Info("connection unregistered", zap.String("connection_id", conn.ID.String()))

	h.publisher.Publish(events.Event{
		Type:    events.EventConnectionClosed,
		Payload: conn.ID.String(),
	})
}

// handleInbound routes one decoded client message. Every path is fault
// isolated: a panic while handling one message must not take down the shared
// loop.
func (h *Hub) handleInbound(msg InboundHubMessage) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic handling inbound message",
				zap.Any("panic", r),
				zap.String("type", msg.Message.Type),
				zap.String("connection_id", msg.Conn.ID.String()),
			)
			h.sendError(msg.Conn, "internal error")
		}
	}()

	switch msg.Message.Type {
	case messages.TypePlayerReady, messages.TypeInitGame:
		h.queue.Enqueue(msg.Conn)

	case messages.TypeMove:
		var payload messages.MovePayload
		if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
			h.sendError(msg.Conn, "Invalid MOVE payload")
			return
		}

		session, ok := h.registry.Route(msg.Conn.ID)
		if !ok {
			h.sendError(msg.Conn, "You are not in an active game")
			return
		}
		session.HandleMove(msg.Conn.ID, payload.Move)

	case messages.TypeResign:
		session, ok := h.registry.Route(msg.Conn.ID)
		if !ok {
			h.sendError(msg.Conn, "You are not in an active game")
			return
		}
		session.Resign(msg.Conn.ID)

	case messages.TypeDrawOffer:
		session, ok := h.registry.Route(msg.Conn.ID)
		if !ok {
			h.sendError(msg.Conn, "You are not in an active game")
			return
		}
		session.OfferDraw(msg.Conn.ID)

	case messages.TypePracticeMove:
		var payload messages.PracticeMovePayload
		if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
			h.sendError(msg.Conn, "Invalid PRACTICE_MOVE payload")
			return
		}

		reply, err := h.generator.Generate(payload.Position)
		if err != nil {
			h.sendError(msg.Conn, err.Error())
			return
		}
		msg.Conn.SendJSON(messages.OutboundMessage{
			Type: messages.TypePracticeMove,
			Payload: messages.PracticeMoveReplyPayload{
				From:      reply.From,
				To:        reply.To,
				Promotion: reply.Promotion,
				Position:  reply.Position,
			},
		})

	default:
		h.sendError(msg.Conn, "Unknown message type")
	}
}

func (h *Hub) sendError(conn *Connection, text string) {
	conn.SendJSON(messages.OutboundMessage{
		Type:    messages.TypeError,
		Payload: messages.ErrorPayload{Message: text},
	})
}
