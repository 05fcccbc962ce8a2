package history

import (
	"fmt"
	"testing"

	"parley/model"
	"parley/store"
)

func storedTurns(n int) []store.StoredMessage {
	messages := make([]store.StoredMessage, n)
	for i := range messages {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		messages[i] = store.StoredMessage{Role: role, Content: fmt.Sprintf("turn %d", i)}
	}
	return messages
}

func incomingTurn() []model.Message {
	return []model.Message{{Role: "user", Content: "latest question"}}
}

func TestBuildLegacyMode(t *testing.T) {
	builder := &Builder{}

	tests := []struct {
		name      string
		stored    int
		count     int
		wantTotal int
		wantFirst string
	}{
		{name: "window full", stored: 10, count: 5, wantTotal: 5, wantFirst: "turn 5"},
		{name: "short history", stored: 2, count: 5, wantTotal: 2, wantFirst: "turn 0"},
		{name: "single stored turn", stored: 1, count: 5, wantTotal: 1, wantFirst: "latest question"},
		{name: "empty history", stored: 0, count: 5, wantTotal: 1, wantFirst: "latest question"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := store.Settings{UseMessageHistory: true, MessageHistoryCount: tt.count}
			result := builder.Build(storedTurns(tt.stored), settings, incomingTurn())

			if len(result) != tt.wantTotal {
				t.Fatalf("got %d messages, want %d", len(result), tt.wantTotal)
			}
			if result[0].Content != tt.wantFirst {
				t.Errorf("first content = %q, want %q", result[0].Content, tt.wantFirst)
			}
			if result[len(result)-1].Content != "latest question" {
				t.Error("incoming turn must come last")
			}
		})
	}
}

func TestBuildIncludesLatestPrior(t *testing.T) {
	builder := &Builder{IncludeLatestPrior: true}
	settings := store.Settings{UseMessageHistory: true, MessageHistoryCount: 5}

	// Two stored turns plus the incoming one: all three reach the provider.
	result := builder.Build(storedTurns(2), settings, incomingTurn())
	if len(result) != 3 {
		t.Fatalf("got %d messages, want 3", len(result))
	}
	if result[0].Content != "turn 0" || result[1].Content != "turn 1" {
		t.Errorf("window = %q, %q; want both stored turns", result[0].Content, result[1].Content)
	}
	if result[2].Content != "latest question" {
		t.Error("incoming turn must come last")
	}
}

func TestBuildIncludesLatestPriorBounded(t *testing.T) {
	builder := &Builder{IncludeLatestPrior: true}
	settings := store.Settings{UseMessageHistory: true, MessageHistoryCount: 5}

	result := builder.Build(storedTurns(10), settings, incomingTurn())
	if len(result) != 5 {
		t.Fatalf("got %d messages, want 5", len(result))
	}
	if result[0].Content != "turn 6" {
		t.Errorf("first content = %q, want turn 6", result[0].Content)
	}
}

func TestBuildHistoryDisabled(t *testing.T) {
	builder := &Builder{}
	settings := store.Settings{UseMessageHistory: false, MessageHistoryCount: 5}

	result := builder.Build(storedTurns(10), settings, incomingTurn())
	if len(result) != 1 || result[0].Content != "latest question" {
		t.Errorf("disabled history must pass the incoming turn through, got %+v", result)
	}
}

func TestBuildExcludesDeletedTurns(t *testing.T) {
	builder := &Builder{}
	settings := store.Settings{UseMessageHistory: true, MessageHistoryCount: 10}

	stored := storedTurns(4)
	stored[1].IsDeleted = true

	result := builder.Build(stored, settings, incomingTurn())
	for _, msg := range result {
		if msg.Content == "turn 1" {
			t.Fatal("deleted turn leaked into the context window")
		}
	}
	// Three surviving turns, minus the trailing one, plus the incoming turn.
	if len(result) != 3 {
		t.Errorf("got %d messages, want 3", len(result))
	}
}
