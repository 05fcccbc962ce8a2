package provider

import (
	"context"
	"strings"
	"testing"

	"parley/config"
	"parley/model"
)

func TestRegistryResolve(t *testing.T) {
	registry, err := NewRegistry(config.Default())
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	tests := []struct {
		name        string
		providerID  string
		expectError bool
	}{
		{name: "ollama", providerID: "ollama"},
		{name: "openai", providerID: "openai"},
		{name: "azure openai", providerID: "azure_openai"},
		{name: "anthropic", providerID: "anthropic"},
		{name: "unknown provider", providerID: "bedrock", expectError: true},
		{name: "empty provider", providerID: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := registry.Resolve(tt.providerID)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !model.IsClientInput(err) {
					t.Errorf("expected client input error, got %T", err)
				}
				want := "'" + tt.providerID + "' is an invalid provider."
				if err.Error() != want {
					t.Errorf("error = %q, want %q", err.Error(), want)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tt.providerID, err)
			}
			if p == nil {
				t.Fatal("Resolve returned nil provider")
			}
		})
	}
}

func TestRegistryIDsSorted(t *testing.T) {
	registry, err := NewRegistry(config.Default())
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	ids := registry.IDs()
	want := []string{"anthropic", "azure_openai", "ollama", "openai"}
	if len(ids) != len(want) {
		t.Fatalf("IDs() returned %d ids, want %d", len(ids), len(want))
	}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], id)
		}
	}
}

func TestOpenAIMissingCredentials(t *testing.T) {
	p := NewOpenAIProvider("", "")

	resp := p.Chat(context.Background(), model.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []model.Message{{Role: "user", Content: "hi"}},
	})
	if resp.Err == "" {
		t.Fatal("expected error response for uninitialized provider")
	}
	if !strings.Contains(resp.Err, "OPENAI_API_KEY") {
		t.Errorf("error %q does not name OPENAI_API_KEY", resp.Err)
	}
	if resp.Message != nil {
		t.Error("error response must not carry a message")
	}
}

func TestAzureMissingCredentials(t *testing.T) {
	p := NewAzureOpenAIProvider("", "", "")

	resp := p.Chat(context.Background(), model.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []model.Message{{Role: "user", Content: "hi"}},
	})
	if resp.Err == "" {
		t.Fatal("expected error response for uninitialized provider")
	}
	for _, key := range []string{"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_API_VERSION"} {
		if !strings.Contains(resp.Err, key) {
			t.Errorf("error %q does not name %s", resp.Err, key)
		}
	}
}

func TestAnthropicMissingCredentials(t *testing.T) {
	p := NewAnthropicProvider("", "")

	var emitted []model.StreamChunk
	err := p.ChatStream(context.Background(), model.ChatRequest{
		Model:    "claude-sonnet-4-5-20250929",
		Messages: []model.Message{{Role: "user", Content: "hi"}},
	}, func(chunk model.StreamChunk) error {
		emitted = append(emitted, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("ChatStream returned error: %v", err)
	}
	if len(emitted) != 1 || emitted[0].Err == "" {
		t.Fatalf("expected a single error chunk, got %+v", emitted)
	}
	if !strings.Contains(emitted[0].Err, "ANTHROPIC_API_KEY") {
		t.Errorf("error %q does not name ANTHROPIC_API_KEY", emitted[0].Err)
	}
}
