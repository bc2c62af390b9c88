package game

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dkovn/match-server/pkg/events"
)

// Registry is the single source of truth for which session a connection
// belongs to. Inbound routing reads it; only session creation and teardown
// mutate it.
//
// Lock order: the registry lock is never held while calling into a session,
// and sessions may call back into the registry (terminal teardown) while
// holding their own lock.
type Registry struct {
	mu       sync.RWMutex
	byConn   map[uuid.UUID]*Session
	sessions map[uuid.UUID]*Session

	publisher *events.Publisher
	logger    *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(publisher *events.Publisher, logger *zap.Logger) *Registry {
	return &Registry{
		byConn:   make(map[uuid.UUID]*Session),
		sessions: make(map[uuid.UUID]*Session),

		publisher: publisher,
		logger:    logger,
	}
}

// CreateSession pairs a and b into a new session, a moving first. The queue
// already refuses clients that are in a session; the registry re-validates
// under its own lock as the second line of defense.
func (r *Registry) CreateSession(a, b Client) (*Session, error) {
	session := NewSession(a, b, r.publisher, r.logger)
	session.onTerminal = r.Teardown

	r.mu.Lock()
	if existing, ok := r.byConn[a.ConnID()]; ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("connection %s already in session %s", a.ConnID(), existing.ID)
	}
	if existing, ok := r.byConn[b.ConnID()]; ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("connection %s already in session %s", b.ConnID(), existing.ID)
	}
	r.byConn[a.ConnID()] = session
	r.byConn[b.ConnID()] = session
	r.sessions[session.ID] = session
	r.mu.Unlock()

	session.Start()

	return session, nil
}

// Route returns the session the connection currently belongs to.
func (r *Registry) Route(connID uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.byConn[connID]
	return session, ok
}

// InSession reports whether the connection is mapped to a live session.
func (r *Registry) InSession(connID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byConn[connID]
	return ok
}

// SessionCount returns the number of live sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Teardown removes the session and its participant mappings. A participant
// mapping is only removed while it still points at this session; a connection
// may already belong to a newer session, which must not be clobbered.
func (r *Registry) Teardown(session *Session) {
	white, black := session.Participants()

	r.mu.Lock()
	if current, ok := r.byConn[white.ConnID()]; ok && current == session {
		delete(r.byConn, white.ConnID())
	}
	if current, ok := r.byConn[black.ConnID()]; ok && current == session {
		delete(r.byConn, black.ConnID())
	}
	delete(r.sessions, session.ID)
	r.mu.Unlock()

	r.logger.Info("session torn down", zap.String("session_id", session.ID.String()))
}

// Disconnect handles a connection going away: it unmaps the connection,
// notifies the session, and tears the session down once the other participant
// is gone too. Until then the abandoned session stays live for the remaining
// participant to observe.
func (r *Registry) Disconnect(connID uuid.UUID) {
	r.mu.Lock()
	session, ok := r.byConn[connID]
	if ok {
		delete(r.byConn, connID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	session.HandleDisconnect(connID)

	other := session.Other(connID)

	r.mu.Lock()
	otherStillHere := false
	if other != nil {
		if current, mapped := r.byConn[other.ConnID()]; mapped && current == session {
			otherStillHere = true
		}
	}
	if !otherStillHere {
		delete(r.sessions, session.ID)
	}
	r.mu.Unlock()

	if !otherStillHere {
		r.logger.Info("session torn down after disconnect",
			zap.String("session_id", session.ID.String()))
	}
}
