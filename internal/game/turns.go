package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/halver/imposterbot/internal/models"
)

// MoveOutcome tags the result of a move submission.
type MoveOutcome uint8

const (
	// MoveIgnored means the submission was not a legal move attempt
	// (wrong phase, wrong player, unknown sender) and nothing changed.
	MoveIgnored MoveOutcome = iota
	// MoveDuplicate means the clue was already used this game; turn state
	// is unchanged.
	MoveDuplicate
	// MoveAccepted means the clue was recorded and the turn advanced.
	MoveAccepted
)

// MoveResult is the tagged outcome of HandleMove.
type MoveResult struct {
	Outcome MoveOutcome
	Content string // the accepted clue, set only for MoveAccepted
}

// Start transitions the game from lobby to playing. It asks the WordProvider
// for round content first and commits nothing on failure, so an aborted start
// leaves the lobby exactly as it was. The imposter is picked uniformly at
// random and the turn order is an unbiased permutation of all player ids.
func (g *Game) Start(callerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != models.StatusLobby {
		return ErrAlreadyStarted
	}
	if callerID != g.hostID {
		return ErrNotHost
	}
	if len(g.players) < MinPlayers {
		return ErrInsufficientPlayers
	}

	// The room waits on the provider; there is no cancellation at this level.
	content, err := g.words.GenerateRound(context.Background())
	if err != nil {
		logrus.WithField("room", g.RoomID).WithError(err).Warn("word provider failed, start aborted")
		return fmt.Errorf("word provider: %w", err)
	}

	order := make([]string, len(g.players))
	for i, p := range g.players {
		order[i] = p.ID
	}
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	g.word = strings.TrimSpace(content.Word)
	g.category = strings.TrimSpace(content.Category)
	g.hint = strings.TrimSpace(content.Hint)
	g.imposterID = g.players[rand.IntN(len(g.players))].ID
	g.turnOrder = order
	g.turnIndex = 0
	g.round = 1
	g.clueLog = nil
	g.usedMoves = make(map[string]struct{})
	g.status = models.StatusPlaying
	g.turnEpoch++

	logrus.WithFields(logrus.Fields{
		"room":     g.RoomID,
		"game":     g.ID,
		"players":  len(g.players),
		"category": g.category,
	}).Info("game started")
	g.logAction(callerID, "game_start", map[string]any{"category": g.category, "players": len(g.players)})

	names := make([]string, 0, len(order))
	for _, id := range order {
		if p := g.playerByIDLocked(id); p != nil {
			names = append(names, p.Name)
		}
	}
	g.fireEvent(GameEvent{Type: EventGameStarted, RoomID: g.RoomID, Payload: map[string]any{
		"category": g.category,
		"hint":     g.hint,
		"order":    names,
	}})

	// The secret word goes out privately; the imposter only learns the
	// category and hint.
	for _, p := range g.players {
		if p.Automated() {
			continue
		}
		if p.ID == g.imposterID {
			g.fireEventToPlayer(p.ID, GameEvent{Type: EventPrivateImposterRole, RoomID: g.RoomID, Payload: map[string]any{
				"category": g.category,
				"hint":     g.hint,
			}})
		} else {
			g.fireEventToPlayer(p.ID, GameEvent{Type: EventPrivateWord, RoomID: g.RoomID, Payload: map[string]any{
				"word":     g.word,
				"category": g.category,
			}})
		}
	}

	g.announceTurnLocked()
	g.scheduleAutomatedTurnLocked()
	return nil
}

// HandleMove validates and applies a clue submission from playerID. Messages
// outside the playing phase, from unknown senders, or out of turn are ignored
// without mutating anything; clues already used this game (case-insensitive)
// are rejected as duplicates with the turn unchanged.
func (g *Game) HandleMove(playerID, content string) MoveResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != models.StatusPlaying {
		return MoveResult{Outcome: MoveIgnored}
	}
	p := g.playerByIDLocked(playerID)
	if p == nil {
		return MoveResult{Outcome: MoveIgnored}
	}
	current := g.currentPlayerLocked()
	if current == nil || current.ID != playerID {
		return MoveResult{Outcome: MoveIgnored}
	}
	return g.applyMoveLocked(p, content)
}

// applyMoveLocked runs the duplicate check and, on success, records the clue
// and advances the turn. Assumes lock is held and p is the current player.
func (g *Game) applyMoveLocked(p *models.Player, content string) MoveResult {
	content = strings.TrimSpace(content)
	key := normalizeMove(content)
	if key == "" {
		return MoveResult{Outcome: MoveIgnored}
	}
	if _, used := g.usedMoves[key]; used {
		return MoveResult{Outcome: MoveDuplicate}
	}

	g.usedMoves[key] = struct{}{}
	g.clueLog = append(g.clueLog, models.ClueEntry{PlayerID: p.ID, PlayerName: p.Name, Content: content})
	g.logAction(p.ID, "clue", map[string]any{"content": content, "round": g.round})
	g.fireEvent(GameEvent{Type: EventClueAccepted, RoomID: g.RoomID, Payload: map[string]any{
		"player":    p.Name,
		"clue":      content,
		"automated": p.Automated(),
	}})

	g.advanceTurnLocked()
	return MoveResult{Outcome: MoveAccepted, Content: content}
}

// advanceTurnLocked moves the cursor to the next slot in the turn order,
// bumping the round counter on wrap. Assumes lock is held by caller.
func (g *Game) advanceTurnLocked() {
	g.turnIndex = (g.turnIndex + 1) % len(g.turnOrder)
	if g.turnIndex == 0 {
		g.round++
	}
	g.turnEpoch++
	g.announceTurnLocked()
	g.scheduleAutomatedTurnLocked()
}

// announceTurnLocked tells the room whose turn it is.
// Assumes lock is held by caller.
func (g *Game) announceTurnLocked() {
	current := g.currentPlayerLocked()
	if current == nil {
		return
	}
	g.fireEvent(GameEvent{Type: EventPlayerTurn, RoomID: g.RoomID, Payload: map[string]any{
		"player": current.Name,
		"round":  g.round,
	}})
}

// scheduleAutomatedTurnLocked arms a delayed automated turn when an automated
// player is on turn. The epoch capture makes a stale callback a no-op if the
// turn has since advanced or the game left the playing phase.
// Assumes lock is held by caller.
func (g *Game) scheduleAutomatedTurnLocked() {
	current := g.currentPlayerLocked()
	if current == nil || !current.Automated() {
		return
	}
	epoch := g.turnEpoch
	time.AfterFunc(g.automatedDelay(), func() {
		g.mu.Lock()
		if g.turnEpoch != epoch || g.status != models.StatusPlaying {
			g.mu.Unlock()
			return
		}
		g.playAutomatedTurnLocked()
		g.mu.Unlock()
	})
}

// PlayAutomatedTurn drives one automated player's turn. It is a no-op unless
// an automated player is on turn.
func (g *Game) PlayAutomatedTurn() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.playAutomatedTurnLocked()
}

// playAutomatedTurnLocked asks the MoveGenerator for a decision and applies
// it. Generator failures degrade to a deterministic fallback clue; they never
// break the turn loop. Assumes lock is held by caller.
func (g *Game) playAutomatedTurnLocked() {
	p := g.currentPlayerLocked()
	if p == nil || !p.Automated() {
		return
	}
	mc := g.moveContextLocked(p)

	decision, err := g.moves.DecideAction(context.Background(), mc)
	if err != nil {
		logrus.WithFields(logrus.Fields{"room": g.RoomID, "player": p.Name}).
			WithError(err).Warn("move generator decision failed, falling back to clue")
		decision = ActionDecision{Kind: ActionClue}
	}

	if decision.Kind == ActionVoteIntent {
		if err := g.triggerMeetingLocked(p.ID, decision.Reason); err == nil {
			return
		}
		// Quota exhausted (or the phase shifted underneath us): fall back to
		// a plain clue, same as a human whose meeting request was refused.
		logrus.WithFields(logrus.Fields{"room": g.RoomID, "player": p.Name}).
			Debug("automated meeting request rejected, requesting clue instead")
		decision = ActionDecision{Kind: ActionClue}
	}

	clue := strings.TrimSpace(decision.Clue)
	if clue == "" {
		generated, err := g.moves.GenerateClue(context.Background(), mc)
		if err != nil {
			logrus.WithFields(logrus.Fields{"room": g.RoomID, "player": p.Name}).
				WithError(err).Warn("move generator failed, using fallback clue")
			g.logAction(p.ID, "generator_degraded", map[string]any{"error": err.Error()})
		}
		clue = strings.TrimSpace(generated)
	}
	if clue == "" {
		clue = g.fallbackClueLocked()
	}

	res := g.applyMoveLocked(p, clue)
	if res.Outcome != MoveAccepted {
		// Duplicate (or empty) clue from the generator; the fallback is
		// unique by construction so the turn always advances.
		g.logAction(p.ID, "generator_degraded", map[string]any{"duplicate": clue})
		g.applyMoveLocked(p, g.fallbackClueLocked())
	}
}

// moveContextLocked builds the context an automated player is allowed to see.
// The secret word is withheld from the imposter. Assumes lock is held.
func (g *Game) moveContextLocked(p *models.Player) MoveContext {
	mc := MoveContext{
		Category:   g.category,
		Hint:       g.hint,
		IsImposter: p.ID == g.imposterID,
		PlayerName: p.Name,
	}
	if !mc.IsImposter {
		mc.Word = g.word
	}
	start := 0
	if len(g.clueLog) > 8 {
		start = len(g.clueLog) - 8
	}
	mc.RecentClues = append(mc.RecentClues, g.clueLog[start:]...)
	for used := range g.usedMoves {
		mc.UsedMoves = append(mc.UsedMoves, used)
	}
	return mc
}

// fallbackClueLocked returns a deterministic clue that cannot collide with
// any previously accepted move. Assumes lock is held by caller.
func (g *Game) fallbackClueLocked() string {
	return fmt.Sprintf("pass-%d", len(g.clueLog)+1)
}

// automatedDelay returns a randomized pause that emulates human pacing.
func (g *Game) automatedDelay() time.Duration {
	if g.botDelayMax <= g.botDelayMin {
		return g.botDelayMin
	}
	return g.botDelayMin + rand.N(g.botDelayMax-g.botDelayMin)
}

// normalizeMove folds a move for duplicate detection.
func normalizeMove(content string) string {
	return strings.ToLower(strings.TrimSpace(content))
}
