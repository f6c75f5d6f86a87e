package game

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/halver/imposterbot/internal/models"
)

// Options configures the games a Registry creates. Zero values get sensible
// defaults; providers are required for games to be playable.
type Options struct {
	Words WordProvider
	Moves MoveGenerator

	MeetingWindow time.Duration
	BotDelayMin   time.Duration
	BotDelayMax   time.Duration

	BroadcastFn         func(ev GameEvent)
	BroadcastToPlayerFn func(playerID string, ev GameEvent)
	RecordFn            func(rec ActionRecord)
}

// Registry owns the room id to game mapping and enforces at most one game per
// room. Games are reached only through registry methods; callers never hold a
// reference they can mutate outside the game's own lock.
type Registry struct {
	mu    sync.RWMutex
	games map[string]*Game
	opts  Options
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	if opts.MeetingWindow <= 0 {
		opts.MeetingWindow = DefaultMeetingWindow
	}
	if opts.BotDelayMin <= 0 {
		opts.BotDelayMin = 2 * time.Second
	}
	if opts.BotDelayMax <= 0 {
		opts.BotDelayMax = 10 * time.Second
	}
	return &Registry{
		games: make(map[string]*Game),
		opts:  opts,
	}
}

// CreateGame opens a lobby in roomID with the host as its sole player.
func (r *Registry) CreateGame(roomID, hostID, hostName string) (Snapshot, error) {
	r.mu.Lock()
	if _, exists := r.games[roomID]; exists {
		r.mu.Unlock()
		return Snapshot{}, ErrGameExists
	}
	g := newGame(roomID, hostID, hostName, r.opts)
	g.onGameEnd = r.removeRoom
	r.games[roomID] = g
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{"room": roomID, "host": hostName}).Info("game created")
	g.mu.Lock()
	g.logAction(hostID, "game_create", map[string]any{"host": hostName})
	g.fireEvent(GameEvent{Type: EventGameCreated, RoomID: roomID, Payload: map[string]any{"host": hostName}})
	g.mu.Unlock()
	return g.Snapshot(), nil
}

// JoinGame adds a human player to the lobby in roomID.
func (r *Registry) JoinGame(roomID, playerID, name string) error {
	g, err := r.lookup(roomID)
	if err != nil {
		return err
	}
	return g.join(playerID, name)
}

// AddAutomatedPlayer appends a bot-driven player to the lobby in roomID and
// returns its display name.
func (r *Registry) AddAutomatedPlayer(roomID string) (string, error) {
	g, err := r.lookup(roomID)
	if err != nil {
		return "", err
	}
	return g.addAutomated()
}

// StartGame starts the game in roomID on behalf of callerID.
func (r *Registry) StartGame(roomID, callerID string) error {
	g, err := r.lookup(roomID)
	if err != nil {
		return err
	}
	return g.Start(callerID)
}

// HandleMove routes a chat message from playerID as a move in roomID. Rooms
// without a game ignore the message.
func (r *Registry) HandleMove(roomID, playerID, content string) MoveResult {
	g, err := r.lookup(roomID)
	if err != nil {
		return MoveResult{Outcome: MoveIgnored}
	}
	return g.HandleMove(playerID, content)
}

// TriggerMeeting opens a voting window in roomID on behalf of callerID.
func (r *Registry) TriggerMeeting(roomID, callerID string) error {
	g, err := r.lookup(roomID)
	if err != nil {
		return err
	}
	return g.TriggerMeeting(callerID)
}

// CastVote records voterID's vote in roomID's open window.
func (r *Registry) CastVote(roomID, voterID, targetID string) error {
	g, err := r.lookup(roomID)
	if err != nil {
		return err
	}
	return g.CastVote(voterID, targetID)
}

// CurrentPlayer returns the player on turn in roomID, or nil.
func (r *Registry) CurrentPlayer(roomID string) *models.Player {
	g, err := r.lookup(roomID)
	if err != nil {
		return nil
	}
	return g.CurrentPlayer()
}

// IsAutomatedTurn reports whether roomID's current turn belongs to an
// automated player.
func (r *Registry) IsAutomatedTurn(roomID string) bool {
	g, err := r.lookup(roomID)
	if err != nil {
		return false
	}
	return g.IsAutomatedTurn()
}

// PlayAutomatedTurn drives an automated turn in roomID, if one is due.
func (r *Registry) PlayAutomatedTurn(roomID string) {
	g, err := r.lookup(roomID)
	if err != nil {
		return
	}
	g.PlayAutomatedTurn()
}

// GetGame returns a read-only snapshot of roomID's game.
func (r *Registry) GetGame(roomID string) (Snapshot, error) {
	g, err := r.lookup(roomID)
	if err != nil {
		return Snapshot{}, err
	}
	return g.Snapshot(), nil
}

// EndGame tears the room's game down and removes it from the registry.
func (r *Registry) EndGame(roomID string) error {
	r.mu.Lock()
	g, exists := r.games[roomID]
	if !exists {
		r.mu.Unlock()
		return ErrGameNotFound
	}
	delete(r.games, roomID)
	r.mu.Unlock()

	g.shutdown()
	logrus.WithField("room", roomID).Info("game ended")
	return nil
}

// lookup fetches the room's game under the read lock. The registry lock is
// released before any game method runs, keeping lock order one-directional.
func (r *Registry) lookup(roomID string) (*Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, exists := r.games[roomID]
	if !exists {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// removeRoom drops a finished game from the mapping. Invoked from a game's
// end path while that game's own lock is held; it must never take a game lock.
func (r *Registry) removeRoom(roomID string) {
	r.mu.Lock()
	delete(r.games, roomID)
	r.mu.Unlock()
}
