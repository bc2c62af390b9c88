// Package events carries lifecycle notifications between components that
// should not call each other directly, such as metrics and logging observers.
package events

import "sync"

// EventType represents the type of event
type EventType string

// Define event types
const (
	EventConnectionOpened EventType = "CONNECTION_OPENED"
	EventConnectionClosed EventType = "CONNECTION_CLOSED"
	EventMatchCreated     EventType = "MATCH_CREATED"
	EventMoveProcessed    EventType = "MOVE_PROCESSED"
	EventGameOver         EventType = "GAME_OVER"
)

// Event represents an event in the system
type Event struct {
	Type      EventType
	SessionID string // Optional, empty for connection-level events
	Payload   interface{}
}

// Handler is a function that processes events
type Handler func(event Event)

// Publisher is the central event publisher
type Publisher struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Handler
}

// NewPublisher creates a new event publisher
func NewPublisher() *Publisher {
	return &Publisher{
		subscribers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a specific event type
func (p *Publisher) Subscribe(eventType EventType, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscribers[eventType] = append(p.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every event type
func (p *Publisher) SubscribeAll(handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscribers["*"] = append(p.subscribers["*"], handler)
}

// Publish broadcasts an event to its subscribers and to "all events" handlers
func (p *Publisher) Publish(event Event) {
	p.mu.RLock()
	handlers := append([]Handler{}, p.subscribers[event.Type]...)
	handlers = append(handlers, p.subscribers["*"]...)
	p.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
