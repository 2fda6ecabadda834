package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/BTreeMap/LiveWell/internal/models"
	"github.com/BTreeMap/LiveWell/internal/planner"
)

const (
	suggesterSystemPrompt = "You are a gentle health coach for older adults. Return only valid, compact JSON."
	suggesterUserPrompt   = "Create a simple, safe day plan with keys: morning, afternoon, evening, notes. " +
		"Each key should be a short list of strings. Avoid medical claims. " +
		"Slots: %s. Frailty score: %s."
)

var errEmptyCompletion = errors.New("empty completion")

// planGenerator is the part of genai.Client the suggester needs.
type planGenerator interface {
	GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// GenAISuggester asks a chat model for a plan candidate. Every failure is
// reported as an unavailable suggestion.
type GenAISuggester struct {
	client planGenerator
}

// NewGenAISuggester wraps client, normally a *genai.Client.
func NewGenAISuggester(client planGenerator) *GenAISuggester {
	return &GenAISuggester{client: client}
}

// Suggest implements planner.Suggester.
func (g *GenAISuggester) Suggest(ctx context.Context, slots models.Slots, score *int) planner.Suggestion {
	if g == nil || g.client == nil {
		return planner.Unavailable(nil)
	}
	userPrompt, err := SuggesterPrompt(slots, score)
	if err != nil {
		return planner.Unavailable(err)
	}
	text, err := g.client.GeneratePromptWithContext(ctx, suggesterSystemPrompt, userPrompt)
	if err != nil {
		slog.Warn("GenAISuggester request failed", "error", err)
		return planner.Unavailable(err)
	}
	if strings.TrimSpace(text) == "" {
		return planner.Unavailable(errEmptyCompletion)
	}
	return planner.Suggested(text)
}

// SuggesterPrompt renders the user prompt for slots and score.
func SuggesterPrompt(slots models.Slots, score *int) (string, error) {
	data, err := json.Marshal(slots)
	if err != nil {
		return "", fmt.Errorf("failed to encode slots: %w", err)
	}
	scoreText := "unknown"
	if score != nil {
		scoreText = strconv.Itoa(*score)
	}
	return fmt.Sprintf(suggesterUserPrompt, data, scoreText), nil
}
