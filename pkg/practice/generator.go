// Package practice implements the stateless move generator behind practice
// mode. It holds no session state: every request carries the position.
package practice

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/corentings/chess/v2"
)

var (
	ErrInvalidPosition = errors.New("invalid practice position")
	ErrNoLegalMoves    = errors.New("no legal moves in practice position")
)

// Reply is the generated move plus the position after playing it.
type Reply struct {
	From      string
	To        string
	Promotion string
	Position  string
}

// Generator produces a uniformly random legal move for a given position.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator seeded with src.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate picks a random legal move in the position given by fen.
func (g *Generator) Generate(fen string) (Reply, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return Reply{}, ErrInvalidPosition
	}
	game := chess.NewGame(opt)

	moves := game.ValidMoves()
	if len(moves) == 0 {
		return Reply{}, ErrNoLegalMoves
	}

	g.mu.Lock()
	pick := moves[g.rng.Intn(len(moves))]
	g.mu.Unlock()

	pos := game.Position()
	san := chess.AlgebraicNotation{}.Encode(pos, &pick)
	if err := game.PushMove(san, nil); err != nil {
		return Reply{}, ErrInvalidPosition
	}

	reply := Reply{
		From:     pick.S1().String(),
		To:       pick.S2().String(),
		Position: game.FEN(),
	}
	if promo := pick.Promo(); promo != chess.NoPieceType {
		reply.Promotion = promo.String()
	}

	return reply, nil
}
