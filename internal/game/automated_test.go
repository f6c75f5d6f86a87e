package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halver/imposterbot/internal/models"
)

// setupWithBot starts a game with two humans and one automated player, then
// puts the automated player on turn. Returns the registry, the live game, and
// the automated player's id.
func setupWithBot(t *testing.T, words WordProvider, moves MoveGenerator, mb *mockBroadcaster) (*Registry, *Game, string) {
	t.Helper()
	r := NewRegistry(testOptions(words, moves, mb, time.Minute))
	_, err := r.CreateGame("room-1", "alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, r.JoinGame("room-1", "bob", "Bob"))
	_, err = r.AddAutomatedPlayer("room-1")
	require.NoError(t, err)
	require.NoError(t, r.StartGame("room-1", "alice"))

	g := mustGame(r, "room-1")
	require.NotNil(t, g)

	g.mu.Lock()
	defer g.mu.Unlock()
	botID := ""
	for _, p := range g.players {
		if p.Automated() {
			botID = p.ID
		}
	}
	require.NotEmpty(t, botID)
	for i, id := range g.turnOrder {
		if id == botID {
			g.turnIndex = i
		}
	}
	return r, g, botID
}

func TestAutomatedTurnPlaysClue(t *testing.T) {
	mb := newMockBroadcaster()
	moves := &fakeMoves{decision: ActionDecision{Kind: ActionClue, Clue: "mozzarella"}}
	_, g, botID := setupWithBot(t, defaultWords(), moves, mb)

	g.PlayAutomatedTurn()

	ev := mb.findEventByType(EventClueAccepted)
	require.NotNil(t, ev)
	assert.Equal(t, "mozzarella", ev.Payload["clue"])
	assert.Equal(t, true, ev.Payload["automated"])

	g.mu.Lock()
	require.Len(t, g.clueLog, 1)
	assert.Equal(t, botID, g.clueLog[0].PlayerID)
	g.mu.Unlock()

	// The turn moved on.
	p := g.CurrentPlayer()
	require.NotNil(t, p)
	assert.NotEqual(t, botID, p.ID)
}

func TestAutomatedTurnIsNoOpForHumans(t *testing.T) {
	mb := newMockBroadcaster()
	moves := &fakeMoves{clue: "mozzarella"}
	r := setupLobby(defaultWords(), moves, mb, time.Minute)
	require.NoError(t, r.StartGame("room-1", "alice"))

	assert.False(t, r.IsAutomatedTurn("room-1"))
	r.PlayAutomatedTurn("room-1")

	g := mustGame(r, "room-1")
	require.NotNil(t, g)
	g.mu.Lock()
	assert.Empty(t, g.clueLog)
	assert.Equal(t, 0, g.turnIndex)
	g.mu.Unlock()
	assert.Equal(t, 0, moves.clueCalls)
}

func TestAutomatedVoteIntentOpensMeeting(t *testing.T) {
	mb := newMockBroadcaster()
	moves := &fakeMoves{decision: ActionDecision{Kind: ActionVoteIntent, Reason: "clues feel off"}}
	_, g, botID := setupWithBot(t, defaultWords(), moves, mb)

	g.PlayAutomatedTurn()

	assert.Equal(t, models.StatusVoting, g.Status())
	opened := mb.findEventByType(EventMeetingOpened)
	require.NotNil(t, opened)
	assert.Equal(t, "clues feel off", opened.Payload["reason"])

	g.mu.Lock()
	assert.Equal(t, 1, g.playerByIDLocked(botID).MeetingsCalled)
	g.mu.Unlock()
}

func TestAutomatedVoteIntentFallsBackWhenQuotaSpent(t *testing.T) {
	mb := newMockBroadcaster()
	moves := &fakeMoves{
		decision: ActionDecision{Kind: ActionVoteIntent},
		clue:     "pepperoni",
	}
	_, g, botID := setupWithBot(t, defaultWords(), moves, mb)

	g.mu.Lock()
	g.playerByIDLocked(botID).MeetingsCalled = MeetingQuota
	g.mu.Unlock()

	g.PlayAutomatedTurn()

	// No meeting opens; the turn produces a clue instead.
	assert.Equal(t, models.StatusPlaying, g.Status())
	assert.Nil(t, mb.findEventByType(EventMeetingOpened))
	ev := mb.findEventByType(EventClueAccepted)
	require.NotNil(t, ev)
	assert.Equal(t, "pepperoni", ev.Payload["clue"])
}

func TestAutomatedTurnDegradesToFallbackClue(t *testing.T) {
	mb := newMockBroadcaster()
	moves := &fakeMoves{decisionErr: errGeneratorDown, clueErr: errGeneratorDown}
	_, g, _ := setupWithBot(t, defaultWords(), moves, mb)

	g.PlayAutomatedTurn()

	// Both generator calls failed; the deterministic fallback still advances
	// the turn.
	ev := mb.findEventByType(EventClueAccepted)
	require.NotNil(t, ev)
	assert.Equal(t, "pass-1", ev.Payload["clue"])
	assert.Equal(t, models.StatusPlaying, g.Status())
}

func TestAutomatedTurnRetriesDuplicateClue(t *testing.T) {
	mb := newMockBroadcaster()
	moves := &fakeMoves{decision: ActionDecision{Kind: ActionClue, Clue: "crust"}}
	r, g, botID := setupWithBot(t, defaultWords(), moves, mb)

	// A human already used the clue the generator is about to repeat.
	g.mu.Lock()
	g.usedMoves["crust"] = struct{}{}
	g.clueLog = append(g.clueLog, models.ClueEntry{PlayerID: "alice", PlayerName: "Alice", Content: "crust"})
	g.mu.Unlock()

	g.PlayAutomatedTurn()

	ev := mb.findEventByType(EventClueAccepted)
	require.NotNil(t, ev)
	assert.Equal(t, "pass-2", ev.Payload["clue"])

	g.mu.Lock()
	require.Len(t, g.clueLog, 2)
	assert.Equal(t, botID, g.clueLog[1].PlayerID)
	g.mu.Unlock()

	p := r.CurrentPlayer("room-1")
	require.NotNil(t, p)
	assert.NotEqual(t, botID, p.ID)
}

func TestAutomatedVoteLandsInWindow(t *testing.T) {
	mb := newMockBroadcaster()
	moves := &fakeMoves{voteFor: "Bob"}
	opts := testOptions(defaultWords(), moves, mb, time.Minute)
	opts.BotDelayMin = time.Millisecond
	opts.BotDelayMax = 2 * time.Millisecond
	r := NewRegistry(opts)

	_, err := r.CreateGame("room-1", "alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, r.JoinGame("room-1", "bob", "Bob"))
	_, err = r.AddAutomatedPlayer("room-1")
	require.NoError(t, err)
	require.NoError(t, r.StartGame("room-1", "alice"))

	require.NoError(t, r.TriggerMeeting("room-1", "alice"))
	require.NoError(t, r.CastVote("room-1", "alice", "bob"))
	require.NoError(t, r.CastVote("room-1", "bob", "bob"))

	// The bot's delayed vote completes the tally and the unanimous target is
	// ejected, which tears the room down.
	require.Eventually(t, func() bool {
		_, err := r.GetGame("room-1")
		return err != nil
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 3, mb.countEventsByType(EventVoteCast))
	result := mb.findEventByType(EventMeetingResult)
	require.NotNil(t, result)
	assert.Equal(t, "Bob", result.Payload["ejected"])
}
