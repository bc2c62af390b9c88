// Package color provides the role/color assignment for a match participant
package color

// Color represents a participant's side in a match
type Color string

// The two fixed roles of a session. White is the first mover.
const (
	White Color = "white"
	Black Color = "black"
)

// Opp returns the opposite color for the given color.
func (c Color) Opp() Color {
	if c == White {
		return Black
	}

	return White
}
