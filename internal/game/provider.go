package game

import (
	"context"

	"github.com/halver/imposterbot/internal/models"
)

// WordProvider supplies the secret content for a new round. Implementations
// are external (typically a text-generation service) and may fail; Start
// aborts cleanly when they do.
type WordProvider interface {
	GenerateRound(ctx context.Context) (models.RoundContent, error)
}

// MoveContext is everything an automated player is allowed to know when
// producing a clue, an action decision, or a vote. Word is empty when the
// player is the imposter.
type MoveContext struct {
	Word        string
	Category    string
	Hint        string
	IsImposter  bool
	RecentClues []models.ClueEntry
	UsedMoves   []string
	PlayerName  string
}

// ActionKind tags an automated player's decision for its turn.
type ActionKind uint8

const (
	// ActionClue means the player submits the decision's Clue as its move.
	ActionClue ActionKind = iota
	// ActionVoteIntent means the player wants to call a meeting instead.
	ActionVoteIntent
)

// ActionDecision is the outcome of MoveGenerator.DecideAction.
type ActionDecision struct {
	Kind   ActionKind
	Clue   string // set when Kind == ActionClue
	Reason string // set when Kind == ActionVoteIntent, for the announcement
}

// VoteCandidate is one votable player slot presented to an automated voter.
type VoteCandidate struct {
	PlayerID string
	Name     string
}

// MoveGenerator produces moves for automated players. All methods are
// fallible; the engine degrades to deterministic fallbacks rather than let a
// generator failure break the turn loop.
type MoveGenerator interface {
	// GenerateClue returns a short one-word clue for the player's turn.
	GenerateClue(ctx context.Context, mc MoveContext) (string, error)
	// DecideAction chooses between submitting a clue and calling a meeting.
	DecideAction(ctx context.Context, mc MoveContext) (ActionDecision, error)
	// DecideVote picks a candidate's PlayerID, or "" to abstain.
	DecideVote(ctx context.Context, mc MoveContext, candidates []VoteCandidate) (string, error)
}
