// Package rules adapts the chess library behind the interface the match core
// needs: move legality, turn ownership and terminal verdicts. Nothing outside
// this package inspects chess state directly.
package rules

import (
	"fmt"
	"strings"

	"github.com/corentings/chess/v2"

	"github.com/dkovn/match-server/internal/color"
)

// Draw causes, reported in this fixed priority order when several hold at once.
const (
	ReasonCheckmate            = "checkmate"
	ReasonResignation          = "resignation"
	ReasonStalemate            = "stalemate"
	ReasonRepetition           = "repetition"
	ReasonInsufficientMaterial = "insufficient material"
	ReasonFiftyMove            = "50-move rule"
)

// Move is a proposed move in coordinate form, e.g. e7 e8 q.
type Move struct {
	From      string
	To        string
	Promotion string
}

// MoveResult describes an accepted move.
type MoveResult struct {
	// Piece standing on the destination square after the move, as a lowercase
	// SAN letter. After a promotion this is the promoted piece.
	Piece string
	// Captured piece letter, empty when nothing was taken.
	Captured string
	// Position after the move.
	FEN string
}

// Outcome is the terminal verdict for the current position.
type Outcome struct {
	Over      bool
	Checkmate bool
	Draw      bool
	// Reason is set for draws, to the first matching cause.
	Reason string
}

// Board owns one game position and answers legality and terminal questions.
type Board struct {
	game    *chess.Game
	inCheck bool
}

// NewBoard starts a board from the standard initial position.
func NewBoard() *Board {
	return &Board{game: chess.NewGame()}
}

// NewBoardFEN starts a board from the given position.
func NewBoardFEN(fen string) (*Board, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid position: %w", err)
	}
	return &Board{game: chess.NewGame(opt)}, nil
}

// FEN returns the current position.
func (b *Board) FEN() string {
	return b.game.FEN()
}

// Turn reports which role is to move. This is the only turn authority in the
// system; callers must not derive turn from move counts.
func (b *Board) Turn() color.Color {
	if b.game.Position().Turn() == chess.White {
		return color.White
	}
	return color.Black
}

// InCheck reports whether the side to move is currently in check.
func (b *Board) InCheck() bool {
	return b.inCheck
}

// Apply validates mv against the current position and, when legal, advances
// the position. On rejection the error carries the reason and the position is
// untouched.
func (b *Board) Apply(mv Move) (MoveResult, error) {
	uci := strings.ToLower(mv.From + mv.To + mv.Promotion)

	pos := b.game.Position()
	decoded, err := chess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return MoveResult{}, err
	}

	// Decoding only checks coordinate syntax. Legality means membership in
	// the valid-move set; the matched move also carries the library's tags
	// (capture, en passant, check), which the decoded one does not.
	var matched *chess.Move
	for _, legal := range b.game.ValidMoves() {
		legal := legal
		if legal.S1() == decoded.S1() && legal.S2() == decoded.S2() && legal.Promo() == decoded.Promo() {
			matched = &legal
			break
		}
	}
	if matched == nil {
		return MoveResult{}, fmt.Errorf("%s is not legal in this position", uci)
	}

	captured := ""
	if matched.HasTag(chess.Capture) {
		if matched.HasTag(chess.EnPassant) {
			captured = chess.Pawn.String()
		} else if p := pos.Board().Piece(matched.S2()); p != chess.NoPiece {
			captured = p.Type().String()
		}
	}

	san := chess.AlgebraicNotation{}.Encode(pos, matched)
	if err := b.game.PushMove(san, nil); err != nil {
		return MoveResult{}, err
	}

	b.inCheck = matched.HasTag(chess.Check)

	res := MoveResult{
		Captured: captured,
		FEN:      b.game.FEN(),
	}
	if p := b.game.Position().Board().Piece(matched.S2()); p != chess.NoPiece {
		res.Piece = p.Type().String()
	}

	return res, nil
}

// Outcome reports the terminal state of the current position. Threefold
// repetition and the fifty-move rule are claimable draws in the library; here
// they are declared automatically, matching the relay protocol. The cause
// priority (stalemate, repetition, insufficient material, fifty-move) is fixed
// so that positions satisfying several causes report deterministically.
func (b *Board) Outcome() Outcome {
	// Status is read off the position itself so the priority below cannot be
	// skewed by whichever condition the library happened to record first.
	switch b.game.Position().Status() {
	case chess.Checkmate:
		return Outcome{Over: true, Checkmate: true}
	case chess.Stalemate:
		return Outcome{Over: true, Draw: true, Reason: ReasonStalemate}
	}

	method := b.game.Method()
	if method == chess.FivefoldRepetition || b.drawEligible(chess.ThreefoldRepetition) {
		return Outcome{Over: true, Draw: true, Reason: ReasonRepetition}
	}
	if method == chess.InsufficientMaterial {
		return Outcome{Over: true, Draw: true, Reason: ReasonInsufficientMaterial}
	}
	if method == chess.SeventyFiveMoveRule || b.drawEligible(chess.FiftyMoveRule) {
		return Outcome{Over: true, Draw: true, Reason: ReasonFiftyMove}
	}

	return Outcome{}
}

func (b *Board) drawEligible(method chess.Method) bool {
	for _, m := range b.game.EligibleDraws() {
		if m == method {
			return true
		}
	}
	return false
}
