package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halver/imposterbot/internal/chat"
	"github.com/halver/imposterbot/internal/game"
	"github.com/halver/imposterbot/internal/models"
)

// fakeSender records everything the bot says.
type fakeSender struct {
	mu      sync.Mutex
	room    []string // room messages, in order
	direct  map[string][]string
	sendErr error
}

func newFakeSender() *fakeSender {
	return &fakeSender{direct: make(map[string][]string)}
}

func (f *fakeSender) Send(room, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.room = append(f.room, text)
	return nil
}

func (f *fakeSender) SendDirect(userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.direct[userID] = append(f.direct[userID], text)
	return nil
}

func (f *fakeSender) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.room) == 0 {
		return ""
	}
	return f.room[len(f.room)-1]
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.room)
}

type stubWords struct{}

func (stubWords) GenerateRound(ctx context.Context) (models.RoundContent, error) {
	return models.RoundContent{Word: "pizza", Category: "food", Hint: "often round"}, nil
}

type stubMoves struct{}

func (stubMoves) GenerateClue(ctx context.Context, mc game.MoveContext) (string, error) {
	return "cheese", nil
}

func (stubMoves) DecideAction(ctx context.Context, mc game.MoveContext) (game.ActionDecision, error) {
	return game.ActionDecision{Kind: game.ActionClue, Clue: "cheese"}, nil
}

func (stubMoves) DecideVote(ctx context.Context, mc game.MoveContext, candidates []game.VoteCandidate) (string, error) {
	return "", nil
}

func newTestRouter(sender *fakeSender) *Router {
	registry := game.NewRegistry(game.Options{
		Words:       stubWords{},
		Moves:       stubMoves{},
		BotDelayMin: time.Hour,
		BotDelayMax: time.Hour,
	})
	return NewRouter(registry, sender, "!imposter")
}

func msg(userID, userName, text string) *chat.Message {
	return &chat.Message{Room: "room-1", UserID: userID, UserName: userName, Text: text}
}

func TestRouterHelp(t *testing.T) {
	sender := newFakeSender()
	r := newTestRouter(sender)

	r.HandleMessage(msg("alice", "Alice", "!imposter help"))
	assert.Contains(t, sender.last(), "new")

	// A bare prefix and an unknown command both land on help.
	r.HandleMessage(msg("alice", "Alice", "!imposter"))
	assert.Contains(t, sender.last(), "new")
	r.HandleMessage(msg("alice", "Alice", "!imposter dance"))
	assert.Contains(t, sender.last(), `"dance"`)
}

func TestRouterMapsGameErrors(t *testing.T) {
	sender := newFakeSender()
	r := newTestRouter(sender)

	r.HandleMessage(msg("alice", "Alice", "!imposter join"))
	assert.Contains(t, sender.last(), "no game in this room")

	r.HandleMessage(msg("alice", "Alice", "!imposter new"))
	r.HandleMessage(msg("bob", "Bob", "!imposter new"))
	assert.Contains(t, sender.last(), "already running")

	r.HandleMessage(msg("bob", "Bob", "!imposter start"))
	assert.Contains(t, sender.last(), "host")

	r.HandleMessage(msg("alice", "Alice", "!imposter start"))
	assert.Contains(t, sender.last(), fmt.Sprintf("%d players", game.MinPlayers))
}

func TestRouterIgnoresPlainChatter(t *testing.T) {
	sender := newFakeSender()
	r := newTestRouter(sender)

	r.HandleMessage(msg("alice", "Alice", "anyone up for lunch?"))
	r.HandleMessage(msg("alice", "Alice", "   "))
	r.HandleMessage(&chat.Message{Room: "room-1", Text: "no sender id"})
	assert.Equal(t, 0, sender.count())
}

func TestRouterDuplicateClueReply(t *testing.T) {
	sender := newFakeSender()
	r := newTestRouter(sender)

	r.HandleMessage(msg("alice", "Alice", "!imposter new"))
	r.HandleMessage(msg("bob", "Bob", "!imposter join"))
	r.HandleMessage(msg("alice", "Alice", "!imposter start"))

	first := r.registry.CurrentPlayer("room-1")
	require.NotNil(t, first)
	r.HandleMessage(msg(first.ID, first.Name, "oven"))

	second := r.registry.CurrentPlayer("room-1")
	require.NotNil(t, second)
	before := sender.count()
	r.HandleMessage(msg(second.ID, second.Name, "Oven"))
	assert.Contains(t, sender.last(), "already used")
	assert.Equal(t, before+1, sender.count())
}

func TestRouterVote(t *testing.T) {
	sender := newFakeSender()
	r := newTestRouter(sender)

	r.HandleMessage(msg("alice", "Alice", "!imposter new"))
	r.HandleMessage(msg("bob", "Bob", "!imposter join"))
	r.HandleMessage(msg("alice", "Alice", "!imposter start"))
	r.HandleMessage(msg("alice", "Alice", "!imposter meeting"))

	r.HandleMessage(msg("alice", "Alice", "!imposter vote"))
	assert.Contains(t, sender.last(), "Usage")

	r.HandleMessage(msg("alice", "Alice", "!imposter vote Ghost"))
	assert.Contains(t, sender.last(), `"Ghost"`)

	// Names resolve case-insensitively, with or without an @.
	r.HandleMessage(msg("alice", "Alice", "!imposter vote @bob"))
	r.HandleMessage(msg("alice", "Alice", "!imposter vote bob"))
	assert.Contains(t, sender.last(), "already voted")
}

func TestRouterStatus(t *testing.T) {
	sender := newFakeSender()
	r := newTestRouter(sender)

	r.HandleMessage(msg("alice", "Alice", "!imposter new"))
	r.HandleMessage(msg("bob", "Bob", "!imposter join"))
	r.HandleMessage(msg("alice", "Alice", "!imposter status"))

	status := sender.last()
	assert.Contains(t, status, string(models.StatusLobby))
	assert.Contains(t, status, "2 players")

	r.HandleMessage(msg("alice", "Alice", "!imposter start"))
	r.HandleMessage(msg("alice", "Alice", "!imposter status"))
	status = sender.last()
	assert.Contains(t, status, string(models.StatusPlaying))
	assert.True(t, strings.Contains(status, "category: food"), status)
}

func TestRouterEnd(t *testing.T) {
	sender := newFakeSender()
	r := newTestRouter(sender)

	r.HandleMessage(msg("alice", "Alice", "!imposter new"))
	r.HandleMessage(msg("alice", "Alice", "!imposter end"))
	assert.Contains(t, sender.last(), "Game ended")

	r.HandleMessage(msg("alice", "Alice", "!imposter end"))
	assert.Contains(t, sender.last(), "no game in this room")
}
