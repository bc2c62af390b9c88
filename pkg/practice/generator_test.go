package practice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestGenerateReturnsLegalMove(t *testing.T) {
	g := NewGenerator(1)

	reply, err := g.Generate(startFEN)
	require.NoError(t, err)

	assert.Len(t, reply.From, 2)
	assert.Len(t, reply.To, 2)
	assert.NotEqual(t, startFEN, reply.Position)
}

func TestGenerateIsStateless(t *testing.T) {
	g := NewGenerator(1)

	_, err := g.Generate(startFEN)
	require.NoError(t, err)

	// The same position can be asked again; nothing carried over.
	reply, err := g.Generate(startFEN)
	require.NoError(t, err)
	assert.NotEmpty(t, reply.From)
}

func TestGenerateRejectsInvalidPosition(t *testing.T) {
	g := NewGenerator(1)

	_, err := g.Generate("this is not chess")
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestGenerateRejectsFinishedPosition(t *testing.T) {
	g := NewGenerator(1)

	// Fool's mate final position, white to move with no legal reply.
	_, err := g.Generate("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	assert.ErrorIs(t, err, ErrNoLegalMoves)
}
