package game

import "errors"

// Game state errors are returned synchronously to the caller for user-facing
// translation. Match with errors.Is; the presentation layer maps these onto
// chat replies.
var (
	ErrGameNotFound        = errors.New("no game in this room")
	ErrGameExists          = errors.New("a game already exists in this room")
	ErrAlreadyStarted      = errors.New("the game has already started")
	ErrAlreadyJoined       = errors.New("player already joined")
	ErrNotHost             = errors.New("only the host can start the game")
	ErrInsufficientPlayers = errors.New("not enough players to start")
	ErrMeetingLimit        = errors.New("meeting limit exceeded")
	ErrNotInProgress       = errors.New("the game is not in progress")
	ErrVoteAlreadyCast     = errors.New("vote already cast")
	ErrNotAPlayer          = errors.New("not a player in this game")
	ErrVotingClosed        = errors.New("the voting window is closed")
)
