// Package bot binds the chat gateway to the game core: it parses commands out
// of room messages, routes bare messages as moves, and replies with
// user-facing translations of game errors.
package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/halver/imposterbot/internal/chat"
	"github.com/halver/imposterbot/internal/game"
)

// Router dispatches inbound chat messages.
type Router struct {
	registry *game.Registry
	sender   Sender
	prefix   string
}

// NewRouter creates a router for the given command prefix.
func NewRouter(registry *game.Registry, sender Sender, prefix string) *Router {
	return &Router{registry: registry, sender: sender, prefix: prefix}
}

// HandleMessage is the gateway's inbound callback.
func (r *Router) HandleMessage(msg *chat.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" || msg.UserID == "" {
		return
	}

	if strings.HasPrefix(text, r.prefix) {
		r.handleCommand(msg, strings.TrimSpace(strings.TrimPrefix(text, r.prefix)))
		return
	}

	// Not a command: while a game is playing in this room, any message from
	// the player on turn is a move; everything else is ignored.
	switch res := r.registry.HandleMove(msg.Room, msg.UserID, text); res.Outcome {
	case game.MoveDuplicate:
		r.reply(msg.Room, fmt.Sprintf("\"%s\" was already used. Try another clue, %s.", text, msg.UserName))
	case game.MoveAccepted, game.MoveIgnored:
		// Accepted moves are announced through game events.
	}
}

func (r *Router) handleCommand(msg *chat.Message, raw string) {
	parts := strings.Fields(raw)
	cmd := "help"
	if len(parts) > 0 {
		cmd = strings.ToLower(parts[0])
	}
	args := parts[1:]

	var err error
	switch cmd {
	case "help":
		r.reply(msg.Room, r.helpText())
	case "new":
		_, err = r.registry.CreateGame(msg.Room, msg.UserID, msg.UserName)
	case "join":
		err = r.registry.JoinGame(msg.Room, msg.UserID, msg.UserName)
	case "bot":
		_, err = r.registry.AddAutomatedPlayer(msg.Room)
	case "start":
		err = r.registry.StartGame(msg.Room, msg.UserID)
	case "meeting":
		err = r.registry.TriggerMeeting(msg.Room, msg.UserID)
	case "vote":
		err = r.handleVote(msg, args)
	case "status":
		r.handleStatus(msg)
	case "end":
		if err = r.registry.EndGame(msg.Room); err == nil {
			r.reply(msg.Room, "Game ended.")
		}
	default:
		r.reply(msg.Room, fmt.Sprintf("Unknown command %q. %s", cmd, r.helpText()))
	}

	if err != nil {
		r.reply(msg.Room, errorText(err))
	}
}

// handleVote resolves the named target to a player id and casts the vote.
func (r *Router) handleVote(msg *chat.Message, args []string) error {
	if len(args) == 0 {
		r.reply(msg.Room, "Usage: vote <player name>")
		return nil
	}
	target := strings.TrimPrefix(strings.Join(args, " "), "@")

	snap, err := r.registry.GetGame(msg.Room)
	if err != nil {
		return err
	}
	for _, p := range snap.Players {
		if strings.EqualFold(p.Name, target) {
			return r.registry.CastVote(msg.Room, msg.UserID, p.ID)
		}
	}
	r.reply(msg.Room, fmt.Sprintf("No player named %q in this game.", target))
	return nil
}

func (r *Router) handleStatus(msg *chat.Message) {
	snap, err := r.registry.GetGame(msg.Room)
	if err != nil {
		r.reply(msg.Room, errorText(err))
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s, %d players", snap.Status, len(snap.Players))
	if len(snap.TurnOrder) > 0 {
		fmt.Fprintf(&b, ", round %d, turn: %s", snap.Round, snap.TurnOrder[snap.TurnIndex])
	}
	if snap.Category != "" {
		fmt.Fprintf(&b, ", category: %s", snap.Category)
	}
	r.reply(msg.Room, b.String())
}

func (r *Router) helpText() string {
	p := r.prefix
	return strings.Join([]string{
		"Imposter word game:",
		p + " new     create a lobby",
		p + " join    join the lobby",
		p + " bot     add an automated player",
		p + " start   start (host only)",
		p + " meeting call an accusation vote",
		p + " vote <name>  vote during a meeting",
		p + " status / end",
		"On your turn, just type your one-word clue.",
	}, "\n")
}

func (r *Router) reply(room, text string) {
	if err := r.sender.Send(room, text); err != nil {
		logrus.WithError(err).WithField("room", room).Warn("send reply")
	}
}

// errorText maps game errors onto chat replies.
func errorText(err error) string {
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		return "There's no game in this room. Create one first."
	case errors.Is(err, game.ErrGameExists):
		return "A game is already running in this room."
	case errors.Is(err, game.ErrAlreadyStarted):
		return "The game has already started."
	case errors.Is(err, game.ErrAlreadyJoined):
		return "You're already in."
	case errors.Is(err, game.ErrNotHost):
		return "Only the host can start the game."
	case errors.Is(err, game.ErrInsufficientPlayers):
		return fmt.Sprintf("Need at least %d players to start.", game.MinPlayers)
	case errors.Is(err, game.ErrMeetingLimit):
		return "You've used all your meetings."
	case errors.Is(err, game.ErrNotInProgress):
		return "You can't do that right now."
	case errors.Is(err, game.ErrVoteAlreadyCast):
		return "You already voted."
	case errors.Is(err, game.ErrNotAPlayer):
		return "You're not in this game."
	case errors.Is(err, game.ErrVotingClosed):
		return "Voting has closed."
	default:
		return "Something went wrong: " + err.Error()
	}
}
