package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"parley/model"
)

// DefaultBuckets are the topic pool for conversation starter suggestions.
var DefaultBuckets = []string{
	"Programming Questions",
	"Fun Facts",
	"General Knowledge",
	"Story Creation",
	"Jokes and Humor",
	"Career Advice",
	"Language Learning",
	"Scientific Explanations",
	"Mental Health & Wellness",
	"Creative Writing",
	"DIY & Home Projects",
	"Music & Art",
	"Historical Events",
	"Travel Tips",
	"Technology Trends",
	"Life Skills",
}

// magicTitleWindow is how many recent turns feed the title summary.
const magicTitleWindow = 6

// MagicTitleRequest asks for a generated conversation title.
type MagicTitleRequest struct {
	UserID         string
	Provider       string
	Model          string
	ConversationID string
}

// Suggestion is one generated conversation starter.
type Suggestion struct {
	Bucket   string `json:"bucket"`
	Summary  string `json:"summary"`
	Question string `json:"question"`
}

// SuggestionsRequest asks for count conversation starters.
type SuggestionsRequest struct {
	Provider string
	Model    string
	Count    int
}

// MagicTitle generates a title for a conversation in two model calls:
// first a summary of the recent turns, then a title from the summary.
func (o *Orchestrator) MagicTitle(ctx context.Context, req MagicTitleRequest) (string, error) {
	if req.Model == "" || req.Provider == "" || req.ConversationID == "" {
		return "", &model.ClientInputError{Reason: "Model, provider, and conversation are required"}
	}

	prov, err := o.providers.Resolve(req.Provider)
	if err != nil {
		return "", err
	}
	if _, err := o.store.GetConversation(ctx, req.UserID, req.ConversationID); err != nil {
		return "", err
	}

	stored, err := o.store.Messages(ctx, req.ConversationID)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, msg := range stored {
		if msg.IsDeleted {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	if len(lines) > magicTitleWindow {
		lines = lines[len(lines)-magicTitleWindow:]
	}

	summary, err := o.completeText(ctx, prov, req.Model,
		o.prompts.Summary, "MESSAGE HISTORY:\n"+strings.Join(lines, "\n"))
	if err != nil {
		return "", err
	}

	return o.completeText(ctx, prov, req.Model,
		o.prompts.Title, "CONVERSATION SUMMARY:\n"+summary)
}

// Suggestions generates up to req.Count conversation starters, one model
// call each. Every call picks from the buckets not yet used and avoids the
// summaries already generated; a call whose output fails to parse is logged
// and skipped rather than failing the batch.
func (o *Orchestrator) Suggestions(ctx context.Context, req SuggestionsRequest) ([]Suggestion, error) {
	if req.Model == "" || req.Provider == "" || req.Count <= 0 {
		return nil, &model.ClientInputError{Reason: "Model, provider, and count are required."}
	}

	prov, err := o.providers.Resolve(req.Provider)
	if err != nil {
		return nil, err
	}

	available := append([]string(nil), DefaultBuckets...)
	suggestions := make([]Suggestion, 0, req.Count)

	for i := 0; i < req.Count; i++ {
		prompt := o.suggestionPrompt(available, suggestions)
		resp := prov.Chat(ctx, model.ChatRequest{
			Model:    req.Model,
			Messages: []model.Message{{Role: "user", Content: prompt}},
		})
		if resp.Err != "" {
			o.logger.Warn("suggestion call failed", "error", resp.Err)
			continue
		}
		if resp.Message == nil {
			continue
		}

		suggestion, err := parseSuggestion(resp.Message.Content)
		if err != nil {
			o.logger.Warn("suggestion output unparseable", "error", err.Error())
			continue
		}

		suggestions = append(suggestions, suggestion)
		available = removeBucket(available, suggestion.Bucket)
	}
	return suggestions, nil
}

func (o *Orchestrator) suggestionPrompt(available []string, prior []Suggestion) string {
	buckets := "- " + strings.Join(available, "\n- ") + "\n"

	used := "No suggestions generated yet"
	if len(prior) > 0 {
		summaries := make([]string, len(prior))
		for i, s := range prior {
			summaries[i] = s.Summary
		}
		used = "\n- " + strings.Join(summaries, "\n- ")
	}

	prompt := strings.ReplaceAll(o.prompts.Suggestions, "${buckets}", buckets)
	return strings.ReplaceAll(prompt, "${suggestions}", used)
}

// parseSuggestion decodes one suggestion from model output, tolerating
// markdown code fences around the JSON.
func parseSuggestion(content string) (Suggestion, error) {
	cleaned := strings.ReplaceAll(content, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var suggestion Suggestion
	if err := json.Unmarshal([]byte(cleaned), &suggestion); err != nil {
		return Suggestion{}, &model.DecodeError{Raw: content, Err: err}
	}
	if suggestion.Bucket == "" || suggestion.Summary == "" || suggestion.Question == "" {
		return Suggestion{}, &model.DecodeError{
			Raw: content,
			Err: fmt.Errorf("missing bucket, summary, or question"),
		}
	}
	return suggestion, nil
}

func removeBucket(buckets []string, used string) []string {
	for i, b := range buckets {
		if strings.EqualFold(b, used) {
			return append(buckets[:i], buckets[i+1:]...)
		}
	}
	return buckets
}

// completeText runs one instruction/input exchange and returns the text
// reply. Provider failures surface as errors here; assist calls have no
// response envelope to carry them.
func (o *Orchestrator) completeText(ctx context.Context, prov model.Provider, modelName, instruction, input string) (string, error) {
	resp := prov.Chat(ctx, model.ChatRequest{
		Model: modelName,
		Messages: []model.Message{
			{Role: "assistant", Content: instruction},
			{Role: "user", Content: input},
		},
	})
	if resp.Err != "" {
		return "", fmt.Errorf("provider request failed: %s", resp.Err)
	}
	if resp.Message == nil {
		return "", fmt.Errorf("provider returned no message")
	}
	return resp.Message.Content, nil
}
