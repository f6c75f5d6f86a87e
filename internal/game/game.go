package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/halver/imposterbot/internal/models"
)

const (
	// MinPlayers is the minimum number of players required to start a game.
	MinPlayers = 2
	// MeetingQuota is the maximum number of meetings a single player may call.
	MeetingQuota = 3
	// DefaultMeetingWindow is how long a voting window stays open.
	DefaultMeetingWindow = 60 * time.Second
)

// ActionRecord describes one game action for the external history log.
type ActionRecord struct {
	GameID    uuid.UUID      `json:"gameId"`
	RoomID    string         `json:"roomId"`
	Index     int            `json:"index"`
	ActorID   string         `json:"actorId,omitempty"`
	Action    string         `json:"action"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp int64          `json:"ts"`
}

// Game holds one room's full game state. A game is a single-writer resource:
// every mutation runs to completion under mu before any other operation on the
// room observes it. Independent rooms share nothing mutable.
type Game struct {
	ID     uuid.UUID
	RoomID string

	mu sync.Mutex

	status     models.Status
	players    []*models.Player // join order preserved
	hostID     string
	word       string
	category   string
	hint       string
	imposterID string
	turnOrder  []string // permutation of player ids, fixed once started
	turnIndex  int      // always in [0, len(turnOrder)) while playing
	round      int      // starts at 1, increments when turnIndex wraps to 0
	clueLog    []models.ClueEntry
	usedMoves  map[string]struct{} // normalized, case-folded

	vote      *voteSession
	voteEpoch int // guards stale window timers against double resolution
	turnEpoch int // guards stale scheduled automated turns

	botSeq int // sequential label counter for automated players

	meetingWindow time.Duration
	botDelayMin   time.Duration
	botDelayMax   time.Duration

	actionIndex int

	words WordProvider
	moves MoveGenerator

	// Communication callbacks into the presentation layer.
	BroadcastFn         func(ev GameEvent)
	BroadcastToPlayerFn func(playerID string, ev GameEvent)
	RecordFn            func(rec ActionRecord)
	onGameEnd           func(roomID string) // removes the room from the registry
}

// PlayerInfo is the read-only view of a player used in snapshots.
type PlayerInfo struct {
	ID             string
	Name           string
	Automated      bool
	MeetingsCalled int
}

// Snapshot is a read-only copy of the observable game state. It deliberately
// omits the secret word and the imposter's identity; those are only revealed
// through private events and the end-of-game result.
type Snapshot struct {
	RoomID    string
	Status    models.Status
	HostID    string
	Players   []PlayerInfo
	Category  string
	Hint      string
	Round     int
	TurnOrder []string // player names in turn order
	TurnIndex int
	ClueLog   []models.ClueEntry
}

func newGame(roomID, hostID, hostName string, opts Options) *Game {
	g := &Game{
		ID:            uuid.New(),
		RoomID:        roomID,
		status:        models.StatusLobby,
		hostID:        hostID,
		usedMoves:     make(map[string]struct{}),
		meetingWindow: opts.MeetingWindow,
		botDelayMin:   opts.BotDelayMin,
		botDelayMax:   opts.BotDelayMax,
		words:         opts.Words,
		moves:         opts.Moves,

		BroadcastFn:         opts.BroadcastFn,
		BroadcastToPlayerFn: opts.BroadcastToPlayerFn,
		RecordFn:            opts.RecordFn,
	}
	g.players = append(g.players, &models.Player{ID: hostID, Name: hostName, Kind: models.PlayerHuman})
	return g
}

// Status returns the game's current lifecycle phase.
func (g *Game) Status() models.Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// CurrentPlayer returns the player whose turn it is, or nil while the game is
// not in the playing phase.
func (g *Game) CurrentPlayer() *models.Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentPlayerLocked()
}

// IsAutomatedTurn reports whether an automated player is on turn.
func (g *Game) IsAutomatedTurn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.currentPlayerLocked()
	return p != nil && p.Automated()
}

// Snapshot returns a read-only copy of the observable game state.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := Snapshot{
		RoomID:    g.RoomID,
		Status:    g.status,
		HostID:    g.hostID,
		Category:  g.category,
		Hint:      g.hint,
		Round:     g.round,
		TurnIndex: g.turnIndex,
	}
	for _, p := range g.players {
		snap.Players = append(snap.Players, PlayerInfo{
			ID:             p.ID,
			Name:           p.Name,
			Automated:      p.Automated(),
			MeetingsCalled: p.MeetingsCalled,
		})
	}
	for _, id := range g.turnOrder {
		if p := g.playerByIDLocked(id); p != nil {
			snap.TurnOrder = append(snap.TurnOrder, p.Name)
		}
	}
	snap.ClueLog = append(snap.ClueLog, g.clueLog...)
	return snap
}

// currentPlayerLocked resolves turnOrder[turnIndex] to a player.
// Assumes lock is held by caller.
func (g *Game) currentPlayerLocked() *models.Player {
	if g.status != models.StatusPlaying {
		return nil
	}
	if g.turnIndex < 0 || g.turnIndex >= len(g.turnOrder) {
		// Invariant violation; should not occur in correct operation.
		logrus.WithFields(logrus.Fields{"room": g.RoomID, "turnIndex": g.turnIndex}).
			Error("turn index out of range")
		return nil
	}
	return g.playerByIDLocked(g.turnOrder[g.turnIndex])
}

// playerByIDLocked finds a player by id, or nil.
// Assumes lock is held by caller.
func (g *Game) playerByIDLocked(id string) *models.Player {
	for _, p := range g.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// join appends a new human player while the game is in the lobby.
func (g *Game) join(playerID, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != models.StatusLobby {
		return ErrAlreadyStarted
	}
	if g.playerByIDLocked(playerID) != nil {
		return ErrAlreadyJoined
	}
	g.players = append(g.players, &models.Player{ID: playerID, Name: name, Kind: models.PlayerHuman})
	g.logAction(playerID, "player_join", map[string]any{"name": name})
	g.fireEvent(GameEvent{Type: EventPlayerJoined, RoomID: g.RoomID, Payload: map[string]any{
		"name":    name,
		"players": len(g.players),
	}})
	return nil
}

// addAutomated appends a bot-driven player while the game is in the lobby and
// returns its display name.
func (g *Game) addAutomated() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != models.StatusLobby {
		return "", ErrAlreadyStarted
	}
	g.botSeq++
	p := &models.Player{
		ID:   "bot-" + uuid.NewString(),
		Name: botName(g.botSeq),
		Kind: models.PlayerAutomated,
	}
	g.players = append(g.players, p)
	g.logAction(p.ID, "player_join", map[string]any{"name": p.Name, "automated": true})
	g.fireEvent(GameEvent{Type: EventPlayerJoined, RoomID: g.RoomID, Payload: map[string]any{
		"name":      p.Name,
		"automated": true,
		"players":   len(g.players),
	}})
	return p.Name, nil
}

// shutdown marks the game ended and cancels any pending voting window.
// Called when the room is torn down from outside (explicit end command).
func (g *Game) shutdown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closeVoteSessionLocked()
	g.status = models.StatusEnded
	g.turnEpoch++
	g.logAction("", "game_shutdown", nil)
}

// fireEvent broadcasts a room-wide event through the callback, if set.
// Assumes lock is held by caller.
func (g *Game) fireEvent(ev GameEvent) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}

// fireEventToPlayer sends a private event to one player, if the callback is set.
// Assumes lock is held by caller.
func (g *Game) fireEventToPlayer(playerID string, ev GameEvent) {
	if g.BroadcastToPlayerFn != nil {
		g.BroadcastToPlayerFn(playerID, ev)
	}
}

// logAction hands an action record to the external history sink, if wired.
// Assumes lock is held by caller.
func (g *Game) logAction(actorID, action string, payload map[string]any) {
	g.actionIndex++
	if g.RecordFn == nil {
		return
	}
	g.RecordFn(ActionRecord{
		GameID:    g.ID,
		RoomID:    g.RoomID,
		Index:     g.actionIndex,
		ActorID:   actorID,
		Action:    action,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
}

// botName builds the sequential display label for the nth automated player.
func botName(n int) string {
	return "Bot " + string(rune('A'+(n-1)%26))
}
