package llm

import (
	"fmt"
	"strings"

	"github.com/halver/imposterbot/internal/game"
)

const roundSystemPrompt = `You prepare rounds for a social-deduction word game.
Pick a common, concrete noun that most people know, plus its category and a
subtle hint. Reply with ONLY a JSON object like
{"word":"pizza","category":"food","hint":"often round"} and nothing else.`

const clueSystemPrompt = `You are a player in a word-bluffing game. On your turn
you say exactly ONE word related to the secret word. If you are the imposter
you do not know the word; bluff from the category and the other clues. Never
say the secret word itself, and never repeat a clue that was already used.
Reply with the single word only.`

const actionSystemPrompt = `You are a player in a word-bluffing game. Decide
whether to give a clue or to call an accusation vote. Reply with exactly one
line: either "CLUE: <one word>" or "VOTE: <short reason>". Call a vote only
when someone's clues look like they do not know the word.`

const voteSystemPrompt = `You are voting in a word-bluffing game. Based on the
clues, pick the player most likely to be the imposter. Reply with exactly one
candidate name from the list, or "NONE" to abstain.`

// cluePrompt renders the player's view of the game for clue and action calls.
func cluePrompt(mc game.MoveContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.\n", mc.PlayerName)
	fmt.Fprintf(&b, "Category: %s\n", mc.Category)
	if mc.Hint != "" {
		fmt.Fprintf(&b, "Hint: %s\n", mc.Hint)
	}
	if mc.IsImposter {
		b.WriteString("You are the IMPOSTER: you do NOT know the secret word.\n")
	} else {
		fmt.Fprintf(&b, "The secret word is: %s\n", mc.Word)
	}
	if len(mc.RecentClues) > 0 {
		b.WriteString("Clues so far:\n")
		for _, entry := range mc.RecentClues {
			fmt.Fprintf(&b, "- %s: %s\n", entry.PlayerName, entry.Content)
		}
	}
	if len(mc.UsedMoves) > 0 {
		fmt.Fprintf(&b, "Already used (do not repeat): %s\n", strings.Join(mc.UsedMoves, ", "))
	}
	return b.String()
}

// votePrompt renders the voting context plus the candidate list.
func votePrompt(mc game.MoveContext, candidates []game.VoteCandidate) string {
	var b strings.Builder
	b.WriteString(cluePrompt(mc))
	b.WriteString("Candidates:\n")
	for _, cand := range candidates {
		fmt.Fprintf(&b, "- %s\n", cand.Name)
	}
	return b.String()
}
