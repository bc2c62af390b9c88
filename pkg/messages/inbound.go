package messages

import "encoding/json"

// Client-to-server message types.
const (
	TypePlayerReady  = "PLAYER_READY"
	TypeInitGame     = "INIT_GAME" // legacy alias for PLAYER_READY
	TypeMove         = "MOVE"
	TypeResign       = "RESIGN"
	TypeDrawOffer    = "DRAW_OFFER"
	TypePracticeMove = "PRACTICE_MOVE"
)

// InboundMessage is the generic envelope for messages coming from the client.
// The "type" field tells us the action; "payload" is the data we parse further.
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MoveSpec describes a single proposed move in coordinate form.
type MoveSpec struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// MovePayload represents the payload for making a move during a game
type MovePayload struct {
	Move MoveSpec `json:"move"`
}

// PracticeMovePayload asks the practice generator for a reply move in the
// given position.
type PracticeMovePayload struct {
	Position string `json:"position"`
}
