package models

// PlayerKind distinguishes human chat users from bot-driven participants.
// Game logic branches on this tag rather than on naming conventions.
type PlayerKind uint8

const (
	// PlayerHuman is a player backed by a real chat user.
	PlayerHuman PlayerKind = iota
	// PlayerAutomated is a player whose moves come from a MoveGenerator.
	PlayerAutomated
)

// Player is one participant in a room's game. IDs are unique within a game;
// human players use their chat user id, automated players get generated ids.
type Player struct {
	ID             string
	Name           string
	Kind           PlayerKind
	MeetingsCalled int // bounded at the per-player meeting quota
}

// Automated reports whether the player's moves are machine-generated.
func (p *Player) Automated() bool {
	return p.Kind == PlayerAutomated
}
