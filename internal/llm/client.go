// Package llm implements the game's WordProvider and MoveGenerator on top of
// an OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/halver/imposterbot/internal/game"
	"github.com/halver/imposterbot/internal/models"
)

const requestTimeout = 20 * time.Second

// Client talks to a chat-completions API. It implements game.WordProvider and
// game.MoveGenerator.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// New creates a client for the given endpoint. baseURL is the API root, e.g.
// "https://api.openai.com/v1".
func New(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete sends one prompt pair and returns the model's reply text.
func (c *Client) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "system", Content: system}, {Role: "user", Content: user}},
		Temperature: 0.9,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// GenerateRound asks the model for a fresh word, category, and hint.
func (c *Client) GenerateRound(ctx context.Context) (models.RoundContent, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	reply, err := c.complete(ctx, roundSystemPrompt, "Generate a round now.", 150)
	if err != nil {
		return models.RoundContent{}, err
	}

	var out struct {
		Word     string `json:"word"`
		Category string `json:"category"`
		Hint     string `json:"hint"`
	}
	if err := json.Unmarshal([]byte(stripFences(reply)), &out); err != nil {
		return models.RoundContent{}, fmt.Errorf("round content not valid JSON: %w", err)
	}
	if out.Word == "" || out.Category == "" {
		return models.RoundContent{}, fmt.Errorf("round content incomplete: %q", reply)
	}
	return models.RoundContent{Word: out.Word, Category: out.Category, Hint: out.Hint}, nil
}

// GenerateClue asks the model for a one-word clue for the given context.
func (c *Client) GenerateClue(ctx context.Context, mc game.MoveContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	reply, err := c.complete(ctx, clueSystemPrompt, cluePrompt(mc), 20)
	if err != nil {
		return "", err
	}
	return firstWord(reply), nil
}

// DecideAction asks the model whether to give a clue or call a meeting.
func (c *Client) DecideAction(ctx context.Context, mc game.MoveContext) (game.ActionDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	reply, err := c.complete(ctx, actionSystemPrompt, cluePrompt(mc), 40)
	if err != nil {
		return game.ActionDecision{}, err
	}

	upper := strings.ToUpper(reply)
	if strings.HasPrefix(upper, "VOTE") {
		reason := strings.TrimSpace(strings.TrimPrefix(reply[4:], ":"))
		return game.ActionDecision{Kind: game.ActionVoteIntent, Reason: reason}, nil
	}
	clue := reply
	if strings.HasPrefix(upper, "CLUE") {
		clue = strings.TrimSpace(strings.TrimPrefix(reply[4:], ":"))
	}
	return game.ActionDecision{Kind: game.ActionClue, Clue: firstWord(clue)}, nil
}

// DecideVote asks the model to pick a suspect, or abstain with "".
func (c *Client) DecideVote(ctx context.Context, mc game.MoveContext, candidates []game.VoteCandidate) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	reply, err := c.complete(ctx, voteSystemPrompt, votePrompt(mc, candidates), 10)
	if err != nil {
		return "", err
	}
	choice := strings.TrimSpace(reply)
	if strings.EqualFold(choice, "none") {
		return "", nil
	}
	for _, cand := range candidates {
		if strings.EqualFold(cand.Name, choice) {
			return cand.PlayerID, nil
		}
	}
	logrus.WithField("choice", choice).Debug("vote reply matched no candidate, abstaining")
	return "", nil
}

// firstWord reduces a model reply to a single clue token.
func firstWord(s string) string {
	s = strings.Trim(strings.TrimSpace(s), `"'.`)
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// stripFences removes a markdown code fence wrapper if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
