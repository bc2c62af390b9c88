// Package game implements the per-match session state machine and the
// registry that routes connections to their sessions.
package game

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dkovn/match-server/internal/color"
	"github.com/dkovn/match-server/pkg/events"
	"github.com/dkovn/match-server/pkg/messages"
	"github.com/dkovn/match-server/pkg/rules"
)

// Client is the outbound side of one connection as the core sees it: a stable
// opaque identity plus a fire-and-forget message sink. Sessions and the
// registry compare ids, never transport handles.
type Client interface {
	ConnID() uuid.UUID
	SendJSON(v interface{})
}

// State is the session lifecycle state. Terminal states are absorbing.
type State string

const (
	StateAwaitingFirstMove State = "awaiting_first_move"
	StateInProgress        State = "in_progress"
	StateCheckmate         State = "checkmate"
	StateDraw              State = "draw"
	StateResigned          State = "resigned"
	StateAbandoned         State = "abandoned"
)

// Terminal reports whether the state accepts no further operations.
func (s State) Terminal() bool {
	switch s {
	case StateCheckmate, StateDraw, StateResigned, StateAbandoned:
		return true
	}
	return false
}

// Session is one paired match. It owns the position exclusively and mutates
// it only through the rules board; every externally visible effect of a move
// happens under one mutex so broadcasts come out in acceptance order.
type Session struct {
	ID uuid.UUID

	white Client
	black Client

	board     *rules.Board
	moveCount int
	state     State

	// onTerminal is invoked once when the session reaches checkmate, draw or
	// resignation, so the registry can drop it immediately.
	onTerminal func(*Session)

	mu sync.Mutex

	publisher *events.Publisher
	logger    *zap.Logger
}

// NewSession pairs two clients. The first client is white, the first mover.
// Nothing is sent until Start is called.
func NewSession(white, black Client, publisher *events.Publisher, logger *zap.Logger) *Session {
	return &Session{
		ID:        uuid.New(),
		white:     white,
		black:     black,
		board:     rules.NewBoard(),
		state:     StateAwaitingFirstMove,
		publisher: publisher,
		logger:    logger,
	}
}

// Start sends each participant its role assignment and broadcasts the initial
// position.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	fen := s.board.FEN()
	s.white.SendJSON(messages.OutboundMessage{
		Type: messages.TypeInitGame,
		Payload: messages.InitGamePayload{
			Color:           color.White,
			GameID:          s.ID.String(),
			InitialPosition: fen,
		},
	})
	s.black.SendJSON(messages.OutboundMessage{
		Type: messages.TypeInitGame,
		Payload: messages.InitGamePayload{
			Color:           color.Black,
			GameID:          s.ID.String(),
			InitialPosition: fen,
		},
	})

	s.broadcastState()

	s.logger.Info("session started",
		zap.String("session_id", s.ID.String()),
		zap.String("white", s.white.ConnID().String()),
		zap.String("black", s.black.ConnID().String()),
	)

	s.publisher.Publish(events.Event{
		Type:      events.EventMatchCreated,
		SessionID: s.ID.String(),
	})
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MoveCount returns the number of accepted moves. Display value only; turn
// ownership always comes from the board.
func (s *Session) MoveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveCount
}

// Participants returns the two clients in role order.
func (s *Session) Participants() (white, black Client) {
	return s.white, s.black
}

// Other returns the opponent of the given participant, or nil for strangers.
func (s *Session) Other(connID uuid.UUID) Client {
	switch connID {
	case s.white.ConnID():
		return s.black
	case s.black.ConnID():
		return s.white
	}
	return nil
}

// HandleMove applies one proposed move from the given connection.
func (s *Session) HandleMove(connID uuid.UUID, mv messages.MoveSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role, participant := s.roleOf(connID)
	if participant == nil {
		// Registry routing should make this impossible.
		s.logger.Warn("move from non-participant",
			zap.String("session_id", s.ID.String()),
			zap.String("connection_id", connID.String()),
		)
		return
	}

	if s.state.Terminal() {
		s.sendError(participant, "game is over")
		return
	}

	turn := s.board.Turn()
	if role != turn {
		s.sendError(participant, fmt.Sprintf("It's not your turn. Current turn: %s", turn))
		return
	}

	result, err := s.board.Apply(rules.Move{From: mv.From, To: mv.To, Promotion: mv.Promotion})
	if err != nil {
		s.sendError(participant, "Invalid move: "+err.Error())
		return
	}

	s.moveCount++
	if s.state == StateAwaitingFirstMove {
		s.state = StateInProgress
	}

	s.broadcast(messages.OutboundMessage{
		Type: messages.TypeMove,
		Payload: messages.MoveBroadcastPayload{
			From:           mv.From,
			To:             mv.To,
			Promotion:      mv.Promotion,
			MovingRole:     role,
			ResultingPiece: result.Piece,
			Position:       result.FEN,
		},
	})

	s.publisher.Publish(events.Event{
		Type:      events.EventMoveProcessed,
		SessionID: s.ID.String(),
	})

	outcome := s.board.Outcome()
	switch {
	case outcome.Checkmate:
		// Checkmate is declared against the side now unable to move, so the
		// mover wins.
		s.finishLocked(StateCheckmate, messages.GameOverPayload{
			Winner:   string(role),
			Reason:   rules.ReasonCheckmate,
			Position: result.FEN,
		})
	case outcome.Draw:
		s.finishLocked(StateDraw, messages.GameOverPayload{
			Winner:   messages.WinnerDraw,
			Reason:   outcome.Reason,
			Position: result.FEN,
		})
	default:
		s.broadcastState()
	}
}

// Resign ends the game in favor of the opponent.
func (s *Session) Resign(connID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role, participant := s.roleOf(connID)
	if participant == nil {
		return
	}
	if s.state.Terminal() {
		s.sendError(participant, "game is over")
		return
	}

	s.finishLocked(StateResigned, messages.GameOverPayload{
		Winner:   string(role.Opp()),
		Reason:   rules.ReasonResignation,
		Position: s.board.FEN(),
	})
}

// OfferDraw relays a draw offer to the opponent. The base protocol only
// relays; accepting an offer is a client concern for now.
func (s *Session) OfferDraw(connID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role, participant := s.roleOf(connID)
	if participant == nil {
		return
	}
	if s.state.Terminal() {
		s.sendError(participant, "game is over")
		return
	}

	s.Other(connID).SendJSON(messages.OutboundMessage{
		Type:    messages.TypeDrawOffer,
		Payload: messages.DrawOfferPayload{From: role},
	})
}

// HandleDisconnect notifies the remaining participant and marks the session
// abandoned. No winner is adjudicated; reconnection policy lives elsewhere.
func (s *Session) HandleDisconnect(connID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role, participant := s.roleOf(connID)
	if participant == nil {
		return
	}
	if s.state.Terminal() {
		return
	}

	s.state = StateAbandoned

	s.Other(connID).SendJSON(messages.OutboundMessage{
		Type: messages.TypePlayerDisconnected,
		Payload: messages.PlayerDisconnectedPayload{
			Color:   role,
			Message: fmt.Sprintf("Your opponent (%s) has disconnected", role),
		},
	})

	s.logger.Info("participant disconnected",
		zap.String("session_id", s.ID.String()),
		zap.String("color", string(role)),
	)
}

func (s *Session) roleOf(connID uuid.UUID) (color.Color, Client) {
	switch connID {
	case s.white.ConnID():
		return color.White, s.white
	case s.black.ConnID():
		return color.Black, s.black
	}
	return "", nil
}

// finishLocked enters a terminal state, broadcasts the outcome and hands the
// session back to the registry. Callers hold s.mu.
func (s *Session) finishLocked(state State, payload messages.GameOverPayload) {
	s.state = state

	s.broadcast(messages.OutboundMessage{
		Type:    messages.TypeGameOver,
		Payload: payload,
	})

	s.logger.Info("session finished",
		zap.String("session_id", s.ID.String()),
		zap.String("winner", payload.Winner),
		zap.String("reason", payload.Reason),
	)

	s.publisher.Publish(events.Event{
		Type:      events.EventGameOver,
		SessionID: s.ID.String(),
		Payload:   payload,
	})

	if s.onTerminal != nil {
		s.onTerminal(s)
	}
}

// broadcastState sends the routine state update to both sides. Callers hold
// s.mu.
func (s *Session) broadcastState() {
	s.broadcast(messages.OutboundMessage{
		Type: messages.TypeGameState,
		Payload: messages.GameStatePayload{
			Position:    s.board.FEN(),
			Turn:        s.board.Turn(),
			IsCheck:     s.board.InCheck(),
			IsCheckmate: false,
			IsDraw:      false,
			IsGameOver:  false,
			MoveCount:   s.moveCount,
			GameID:      s.ID.String(),
		},
	})
}

func (s *Session) broadcast(msg messages.OutboundMessage) {
	s.white.SendJSON(msg)
	s.black.SendJSON(msg)
}

func (s *Session) sendError(c Client, text string) {
	c.SendJSON(messages.OutboundMessage{
		Type:    messages.TypeError,
		Payload: messages.ErrorPayload{Message: text},
	})
}
