package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/halver/imposterbot/internal/models"
)

// fakeWords is a WordProvider returning fixed round content or an error.
type fakeWords struct {
	content models.RoundContent
	err     error
}

func (f *fakeWords) GenerateRound(ctx context.Context) (models.RoundContent, error) {
	if f.err != nil {
		return models.RoundContent{}, f.err
	}
	return f.content, nil
}

// fakeMoves is a MoveGenerator with overridable behavior per method.
type fakeMoves struct {
	mu          sync.Mutex
	clue        string
	clueErr     error
	decision    ActionDecision
	decisionErr error
	voteFor     string // candidate name to vote for, "" abstains
	voteErr     error

	clueCalls int
}

func (f *fakeMoves) GenerateClue(ctx context.Context, mc MoveContext) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clueCalls++
	return f.clue, f.clueErr
}

func (f *fakeMoves) DecideAction(ctx context.Context, mc MoveContext) (ActionDecision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decision, f.decisionErr
}

func (f *fakeMoves) DecideVote(ctx context.Context, mc MoveContext, candidates []VoteCandidate) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.voteErr != nil {
		return "", f.voteErr
	}
	for _, c := range candidates {
		if c.Name == f.voteFor {
			return c.PlayerID, nil
		}
	}
	return "", nil
}

// mockBroadcaster captures game events for assertions.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []GameEvent
	playerEvents map[string][]GameEvent
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{playerEvents: make(map[string][]GameEvent)}
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(playerID string, ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[playerID] = append(mb.playerEvents[playerID], ev)
}

func (mb *mockBroadcaster) findEventByType(eventType GameEventType) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.allEvents) - 1; i >= 0; i-- {
		if mb.allEvents[i].Type == eventType {
			return &mb.allEvents[i]
		}
	}
	return nil
}

func (mb *mockBroadcaster) countEventsByType(eventType GameEventType) int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	count := 0
	for _, ev := range mb.allEvents {
		if ev.Type == eventType {
			count++
		}
	}
	return count
}

func (mb *mockBroadcaster) lastPlayerEvent(playerID string) *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	events := mb.playerEvents[playerID]
	if len(events) == 0 {
		return nil
	}
	return &events[len(events)-1]
}

var errGeneratorDown = errors.New("generator unavailable")

// testOptions builds registry options with fast timings and the given fakes.
// Automated turn delays default to an hour so tests drive bot turns manually.
func testOptions(words WordProvider, moves MoveGenerator, mb *mockBroadcaster, window time.Duration) Options {
	return Options{
		Words:               words,
		Moves:               moves,
		MeetingWindow:       window,
		BotDelayMin:         time.Hour,
		BotDelayMax:         time.Hour,
		BroadcastFn:         mb.broadcastFn,
		BroadcastToPlayerFn: mb.broadcastToPlayerFn,
	}
}

func defaultWords() *fakeWords {
	return &fakeWords{content: models.RoundContent{Word: "pizza", Category: "food", Hint: "often round"}}
}

// setupLobby creates a registry with a three-human lobby in room "room-1".
func setupLobby(words WordProvider, moves MoveGenerator, mb *mockBroadcaster, window time.Duration) *Registry {
	r := NewRegistry(testOptions(words, moves, mb, window))
	r.CreateGame("room-1", "alice", "Alice")
	r.JoinGame("room-1", "bob", "Bob")
	r.JoinGame("room-1", "carol", "Carol")
	return r
}

// mustGame fetches the live game for white-box assertions.
func mustGame(r *Registry, roomID string) *Game {
	g, err := r.lookup(roomID)
	if err != nil {
		return nil
	}
	return g
}
