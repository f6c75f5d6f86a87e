package bot

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/halver/imposterbot/internal/database"
	"github.com/halver/imposterbot/internal/game"
	"github.com/halver/imposterbot/internal/models"
)

// Sender is the outbound half of the chat gateway.
type Sender interface {
	Send(room, text string) error
	SendDirect(userID, text string) error
}

// Presenter turns game events into chat messages. It is the only place that
// knows how game state reads in chat; the game core never formats text.
type Presenter struct {
	sender  Sender
	archive *database.Store // optional match archive, may be nil
}

// NewPresenter wires a presenter to the gateway and the optional archive.
func NewPresenter(sender Sender, archive *database.Store) *Presenter {
	return &Presenter{sender: sender, archive: archive}
}

// HandleEvent renders a room-wide game event.
func (p *Presenter) HandleEvent(ev game.GameEvent) {
	text := ""
	switch ev.Type {
	case game.EventGameCreated:
		text = fmt.Sprintf("%s opened an imposter lobby! Join with the join command, add a bot with the bot command, then the host starts.", str(ev.Payload, "host"))
	case game.EventPlayerJoined:
		text = fmt.Sprintf("%s joined (%d players).", str(ev.Payload, "name"), intVal(ev.Payload, "players"))
	case game.EventGameStarted:
		order, _ := ev.Payload["order"].([]string)
		text = fmt.Sprintf("The game begins! Category: %s. One of you does not know the word. Turn order: %s.",
			str(ev.Payload, "category"), strings.Join(order, " -> "))
	case game.EventPlayerTurn:
		text = fmt.Sprintf("Round %d: %s, your clue.", intVal(ev.Payload, "round"), str(ev.Payload, "player"))
	case game.EventClueAccepted:
		// Human clues are already visible as the chat message itself.
		if auto, _ := ev.Payload["automated"].(bool); auto {
			text = fmt.Sprintf("%s: %s", str(ev.Payload, "player"), str(ev.Payload, "clue"))
		}
	case game.EventMeetingOpened:
		text = p.meetingOpened(ev)
	case game.EventVoteCast:
		text = fmt.Sprintf("%s voted (%d/%d).", str(ev.Payload, "voter"), intVal(ev.Payload, "votes"), intVal(ev.Payload, "total"))
	case game.EventMeetingResult:
		text = p.meetingResult(ev)
	case game.EventGameEnd:
		p.archiveMatch(ev)
	}
	if text == "" {
		return
	}
	if err := p.sender.Send(ev.RoomID, text); err != nil {
		logrus.WithError(err).WithField("room", ev.RoomID).Warn("send event message")
	}
}

// HandlePlayerEvent renders a private game event as a direct message.
func (p *Presenter) HandlePlayerEvent(playerID string, ev game.GameEvent) {
	text := ""
	switch ev.Type {
	case game.EventPrivateWord:
		text = fmt.Sprintf("The secret word is \"%s\" (category: %s). Don't say it outright!", str(ev.Payload, "word"), str(ev.Payload, "category"))
	case game.EventPrivateImposterRole:
		text = fmt.Sprintf("You are the IMPOSTER. You don't know the word. Category: %s. Hint: %s. Blend in!", str(ev.Payload, "category"), str(ev.Payload, "hint"))
	}
	if text == "" {
		return
	}
	if err := p.sender.SendDirect(playerID, text); err != nil {
		logrus.WithError(err).WithField("player", playerID).Warn("send private message")
	}
}

func (p *Presenter) meetingOpened(ev game.GameEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s called a meeting!", str(ev.Payload, "caller"))
	if reason := str(ev.Payload, "reason"); reason != "" {
		fmt.Fprintf(&b, " (%s)", reason)
	}
	b.WriteString("\nClues so far:")
	if recap, ok := ev.Payload["recap"].([]models.ClueEntry); ok && len(recap) > 0 {
		for _, entry := range recap {
			fmt.Fprintf(&b, "\n  %s: %s", entry.PlayerName, entry.Content)
		}
	} else {
		b.WriteString(" (none)")
	}
	fmt.Fprintf(&b, "\nVote with the vote command within %d seconds.", intVal(ev.Payload, "windowSec"))
	return b.String()
}

func (p *Presenter) meetingResult(ev game.GameEvent) string {
	ejected := str(ev.Payload, "ejected")
	if ejected == "" {
		if tie, _ := ev.Payload["tie"].(bool); tie {
			return "The vote was tied. No one was ejected; the game continues."
		}
		return "No votes were cast. No one was ejected; the game continues."
	}
	caught, _ := ev.Payload["wasImposter"].(bool)
	verdict := "was NOT the imposter"
	if caught {
		verdict = "WAS the imposter"
	}
	return fmt.Sprintf("%s was ejected and %s. The imposter was %s, and the word was \"%s\".",
		ejected, verdict, str(ev.Payload, "imposter"), str(ev.Payload, "word"))
}

// archiveMatch forwards the finished game to the optional Postgres archive.
func (p *Presenter) archiveMatch(ev game.GameEvent) {
	if p.archive == nil {
		return
	}
	caught, _ := ev.Payload["imposterCaught"].(bool)
	p.archive.SaveMatch(database.MatchResult{
		RoomID:         ev.RoomID,
		GameID:         str(ev.Payload, "gameId"),
		ImposterName:   str(ev.Payload, "imposter"),
		ImposterCaught: caught,
		EjectedName:    str(ev.Payload, "ejected"),
		Word:           str(ev.Payload, "word"),
		ClueCount:      intVal(ev.Payload, "clues"),
	})
}

func str(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

func intVal(payload map[string]any, key string) int {
	n, _ := payload[key].(int)
	return n
}
