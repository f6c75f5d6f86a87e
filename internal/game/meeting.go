package game

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/halver/imposterbot/internal/models"
)

// voteSession is the state of one open voting window. All access goes through
// the game mutex: human votes arrive as chat events, automated votes as
// delayed background computations, and both race the window timer, so the
// mutex plus the open flag form the single coordinating point that decides
// which attempts land before resolution begins.
type voteSession struct {
	callerID string
	choices  map[string]int // voter id -> index into players
	open     bool
	deadline time.Time
	timer    *time.Timer
}

// TriggerMeeting opens a timed voting window on behalf of callerID. The
// caller's meeting quota is consumed even if the vote ends without an
// ejection.
func (g *Game) TriggerMeeting(callerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.triggerMeetingLocked(callerID, "")
}

// triggerMeetingLocked validates the caller, opens the window, publishes the
// clue recap, arms the timeout, and schedules automated voters.
// Assumes lock is held by caller.
func (g *Game) triggerMeetingLocked(callerID, reason string) error {
	if g.status != models.StatusPlaying {
		return ErrNotInProgress
	}
	caller := g.playerByIDLocked(callerID)
	if caller == nil {
		return ErrNotAPlayer
	}
	if caller.MeetingsCalled >= MeetingQuota {
		return ErrMeetingLimit
	}
	caller.MeetingsCalled++

	g.voteEpoch++
	epoch := g.voteEpoch
	g.status = models.StatusVoting
	g.vote = &voteSession{
		callerID: callerID,
		choices:  make(map[string]int),
		open:     true,
		deadline: time.Now().Add(g.meetingWindow),
	}
	g.vote.timer = time.AfterFunc(g.meetingWindow, func() {
		g.resolveAfterTimeout(epoch)
	})

	logrus.WithFields(logrus.Fields{
		"room":   g.RoomID,
		"caller": caller.Name,
		"window": g.meetingWindow,
	}).Info("meeting called")
	g.logAction(callerID, "meeting_called", map[string]any{"reason": reason})

	recap := make([]models.ClueEntry, len(g.clueLog))
	copy(recap, g.clueLog)
	candidates := make([]map[string]any, 0, len(g.players))
	for _, p := range g.players {
		candidates = append(candidates, map[string]any{"id": p.ID, "name": p.Name})
	}
	g.fireEvent(GameEvent{Type: EventMeetingOpened, RoomID: g.RoomID, Payload: map[string]any{
		"caller":     caller.Name,
		"reason":     reason,
		"recap":      recap,
		"candidates": candidates,
		"windowSec":  int(g.meetingWindow / time.Second),
	}})

	g.scheduleAutomatedVotesLocked()
	return nil
}

// scheduleAutomatedVotesLocked spawns one delayed vote computation per
// automated player. Each result funnels back through CastVote, which applies
// the same window checks as a human vote. Assumes lock is held by caller.
func (g *Game) scheduleAutomatedVotesLocked() {
	candidates := make([]VoteCandidate, 0, len(g.players))
	for _, p := range g.players {
		candidates = append(candidates, VoteCandidate{PlayerID: p.ID, Name: p.Name})
	}
	for _, p := range g.players {
		if !p.Automated() {
			continue
		}
		mc := g.moveContextLocked(p)
		delay := g.automatedDelay()
		go g.runAutomatedVote(p.ID, p.Name, mc, candidates, delay)
	}
}

// runAutomatedVote sleeps out its randomized delay, asks the generator for a
// choice, and casts it. A rejected vote here is normal when the window closed
// while the generator was thinking.
func (g *Game) runAutomatedVote(playerID, playerName string, mc MoveContext, candidates []VoteCandidate, delay time.Duration) {
	time.Sleep(delay)

	target, err := g.moves.DecideVote(context.Background(), mc, candidates)
	if err != nil {
		logrus.WithFields(logrus.Fields{"room": g.RoomID, "player": playerName}).
			WithError(err).Warn("move generator vote failed, abstaining")
		return
	}
	if target == "" {
		return // abstain
	}
	if err := g.CastVote(playerID, target); err != nil {
		logrus.WithFields(logrus.Fields{"room": g.RoomID, "player": playerName}).
			WithError(err).Debug("automated vote not recorded")
	}
}

// CastVote records one player's vote for another player's slot. Each voter
// gets exactly one vote; attempts after the window has begun resolving are
// rejected. When the last expected vote lands, the window resolves
// immediately and the timeout timer is cancelled.
func (g *Game) CastVote(voterID, targetID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.status != models.StatusVoting || g.vote == nil {
		return ErrNotInProgress
	}
	if !g.vote.open {
		return ErrVotingClosed
	}
	voter := g.playerByIDLocked(voterID)
	if voter == nil {
		return ErrNotAPlayer
	}
	targetIdx := -1
	for i, p := range g.players {
		if p.ID == targetID {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return ErrNotAPlayer
	}
	if _, dup := g.vote.choices[voterID]; dup {
		return ErrVoteAlreadyCast
	}

	g.vote.choices[voterID] = targetIdx
	g.logAction(voterID, "vote_cast", map[string]any{"target": g.players[targetIdx].Name})
	g.fireEvent(GameEvent{Type: EventVoteCast, RoomID: g.RoomID, Payload: map[string]any{
		"voter": voter.Name,
		"votes": len(g.vote.choices),
		"total": len(g.players),
	}})

	if len(g.vote.choices) == len(g.players) {
		// Everyone voted; resolve now and disarm the timeout so it cannot
		// fire against a later session.
		g.vote.timer.Stop()
		g.resolveVotesLocked("all_voted")
	}
	return nil
}

// resolveAfterTimeout is the timer path into resolution. The epoch check makes
// a stale timer a no-op when the session already resolved early or a newer
// meeting has since been opened.
func (g *Game) resolveAfterTimeout(epoch int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.vote == nil || !g.vote.open || g.voteEpoch != epoch {
		return
	}
	g.resolveVotesLocked("timeout")
}

// resolveVotesLocked closes the window and tallies. A strict unique maximum
// ejects that player and ends the game with a full reveal; a tie or an empty
// tally returns the game to the playing phase with the meeting consumed.
// Assumes lock is held by caller; runs exactly once per session.
func (g *Game) resolveVotesLocked(trigger string) {
	session := g.vote
	session.open = false
	g.voteEpoch++
	if session.timer != nil {
		session.timer.Stop()
	}

	counts := make([]int, len(g.players))
	for _, idx := range session.choices {
		counts[idx]++
	}
	maxVotes, maxIdx, tied := 0, -1, false
	for i, c := range counts {
		switch {
		case c > maxVotes:
			maxVotes, maxIdx, tied = c, i, false
		case c == maxVotes && c > 0:
			tied = true
		}
	}

	tally := make(map[string]int)
	for i, c := range counts {
		if c > 0 {
			tally[g.players[i].Name] = c
		}
	}

	if maxVotes == 0 || tied {
		g.vote = nil
		g.status = models.StatusPlaying
		logrus.WithFields(logrus.Fields{"room": g.RoomID, "trigger": trigger}).
			Info("meeting ended without ejection")
		g.logAction("", "meeting_result", map[string]any{"ejected": "", "trigger": trigger, "tally": tally})
		g.fireEvent(GameEvent{Type: EventMeetingResult, RoomID: g.RoomID, Payload: map[string]any{
			"ejected": "",
			"tie":     tied,
			"tally":   tally,
		}})
		g.announceTurnLocked()
		g.scheduleAutomatedTurnLocked()
		return
	}

	ejected := g.players[maxIdx]
	wasImposter := ejected.ID == g.imposterID
	imposterName := ""
	if p := g.playerByIDLocked(g.imposterID); p != nil {
		imposterName = p.Name
	}

	logrus.WithFields(logrus.Fields{
		"room":        g.RoomID,
		"ejected":     ejected.Name,
		"wasImposter": wasImposter,
		"trigger":     trigger,
	}).Info("player ejected")
	g.logAction("", "meeting_result", map[string]any{
		"ejected":     ejected.Name,
		"wasImposter": wasImposter,
		"trigger":     trigger,
		"tally":       tally,
	})
	g.fireEvent(GameEvent{Type: EventMeetingResult, RoomID: g.RoomID, Payload: map[string]any{
		"ejected":     ejected.Name,
		"wasImposter": wasImposter,
		"imposter":    imposterName,
		"word":        g.word,
		"tally":       tally,
	}})

	// Any ejection ends the game, win or lose.
	g.endLocked(wasImposter, ejected.Name)
}

// endLocked finishes the game and removes the room from the registry.
// Assumes lock is held by caller.
func (g *Game) endLocked(imposterCaught bool, ejectedName string) {
	g.closeVoteSessionLocked()
	g.status = models.StatusEnded
	g.turnEpoch++

	imposterName := ""
	if p := g.playerByIDLocked(g.imposterID); p != nil {
		imposterName = p.Name
	}
	g.logAction("", "game_end", map[string]any{"imposterCaught": imposterCaught})
	g.fireEvent(GameEvent{Type: EventGameEnd, RoomID: g.RoomID, Payload: map[string]any{
		"gameId":         g.ID.String(),
		"imposterCaught": imposterCaught,
		"imposter":       imposterName,
		"word":           g.word,
		"ejected":        ejectedName,
		"clues":          len(g.clueLog),
	}})

	if g.onGameEnd != nil {
		g.onGameEnd(g.RoomID)
	}
}

// closeVoteSessionLocked disarms any open window without resolving it.
// Assumes lock is held by caller.
func (g *Game) closeVoteSessionLocked() {
	if g.vote == nil {
		return
	}
	g.vote.open = false
	if g.vote.timer != nil {
		g.vote.timer.Stop()
	}
	g.vote = nil
	g.voteEpoch++
}
