package models

// Status is the lifecycle phase of a room's game.
type Status string

// Valid transitions: lobby -> playing -> voting -> {playing, ended}.
// Ended is terminal; the room is removed from the registry when it is reached.
const (
	StatusLobby   Status = "lobby"
	StatusPlaying Status = "playing"
	StatusVoting  Status = "voting"
	StatusEnded   Status = "ended"
)

// RoundContent is the secret material for one round, supplied by a WordProvider.
type RoundContent struct {
	Word     string
	Category string
	Hint     string
}

// ClueEntry is one accepted clue in a game's append-only clue log.
type ClueEntry struct {
	PlayerID   string
	PlayerName string
	Content    string
}
