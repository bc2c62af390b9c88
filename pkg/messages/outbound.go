package messages

import "github.com/dkovn/match-server/internal/color"

// Server-to-client message types.
const (
	TypeConnected          = "CONNECTED"
	TypeMatchmaking        = "MATCHMAKING"
	TypeGameState          = "GAME_STATE"
	TypeGameOver           = "GAME_OVER"
	TypePlayerDisconnected = "PLAYER_DISCONNECTED"
	TypeError              = "ERROR"
)

// WinnerDraw is the sentinel winner value of a drawn game.
const WinnerDraw = "draw"

// OutboundMessage is how we wrap responses before sending them to the client
type OutboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

// MatchmakingPayload acknowledges that a connection entered the pending queue
type MatchmakingPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// InitGamePayload tells a participant its role and the session it joined
type InitGamePayload struct {
	Color           color.Color `json:"color"`
	GameID          string      `json:"gameId"`
	InitialPosition string      `json:"initialPosition"`
}

// GameStatePayload is the routine both-sides broadcast after a non-terminal move
type GameStatePayload struct {
	Position    string      `json:"position"`
	Turn        color.Color `json:"turn"`
	IsCheck     bool        `json:"isCheck"`
	IsCheckmate bool        `json:"isCheckmate"`
	IsDraw      bool        `json:"isDraw"`
	IsGameOver  bool        `json:"isGameOver"`
	MoveCount   int         `json:"moveCount"`
	GameID      string      `json:"gameId"`
}

// MoveBroadcastPayload confirms an accepted move to both participants in the
// same shape.
type MoveBroadcastPayload struct {
	From           string      `json:"from"`
	To             string      `json:"to"`
	Promotion      string      `json:"promotion,omitempty"`
	MovingRole     color.Color `json:"movingRole"`
	ResultingPiece string      `json:"resultingPiece"`
	Position       string      `json:"position"`
}

// GameOverPayload carries the terminal outcome. Winner is a role or "draw".
type GameOverPayload struct {
	Winner   string `json:"winner"`
	Reason   string `json:"reason"`
	Position string `json:"position"`
}

// DrawOfferPayload relays a draw offer to the opponent
type DrawOfferPayload struct {
	From color.Color `json:"from"`
}

// PlayerDisconnectedPayload names the side that disappeared mid-session
type PlayerDisconnectedPayload struct {
	Color   color.Color `json:"color"`
	Message string      `json:"message"`
}

// PracticeMoveReplyPayload is the generator's answer in practice mode
type PracticeMoveReplyPayload struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
	Position  string `json:"position"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
