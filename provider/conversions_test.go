package provider

import (
	"encoding/base64"
	"testing"

	"parley/model"
)

func TestParseToolArguments(t *testing.T) {
	tests := []struct {
		name     string
		argsJSON string
		wantLen  int
	}{
		{name: "valid object", argsJSON: `{"city": "Berlin", "days": 3}`, wantLen: 2},
		{name: "empty object", argsJSON: `{}`, wantLen: 0},
		{name: "malformed json", argsJSON: `{"city": `, wantLen: 0},
		{name: "not an object", argsJSON: `[1, 2]`, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := ParseToolArguments(tt.argsJSON)
			if args == nil {
				t.Fatal("ParseToolArguments returned nil")
			}
			if len(args) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(args), tt.wantLen)
			}
		})
	}
}

func TestMapOllamaMessages(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{0x89, 0x50, 0x4e, 0x47})
	messages := []model.Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "what is this?", Images: []model.Image{
			{Type: "image/png", Data: payload},
			{Type: "image/png", Data: "not base64!!"},
		}},
	}

	mapped := mapOllamaMessages(messages)
	if len(mapped) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(mapped))
	}
	if mapped[0].Role != "system" || mapped[0].Content != "be brief" {
		t.Errorf("system message mapped to %+v", mapped[0])
	}
	// The undecodable image is dropped, the valid one decoded to raw bytes.
	if len(mapped[1].Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(mapped[1].Images))
	}
	if string(mapped[1].Images[0]) != string([]byte{0x89, 0x50, 0x4e, 0x47}) {
		t.Error("image bytes do not round-trip")
	}
}

func TestMapAnthropicMessages(t *testing.T) {
	messages := []model.Message{
		{Role: "system", Content: "you are terse"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "user", Content: "bye"},
	}

	mapped, system := mapAnthropicMessages(messages)
	if len(system) != 1 || system[0].Text != "you are terse" {
		t.Errorf("system blocks = %+v, want the system prompt", system)
	}
	if len(mapped) != 3 {
		t.Fatalf("expected 3 wire messages, got %d", len(mapped))
	}
	if mapped[0].Role != "user" || mapped[1].Role != "assistant" || mapped[2].Role != "user" {
		t.Errorf("roles = %v %v %v", mapped[0].Role, mapped[1].Role, mapped[2].Role)
	}
}

func TestImageDataURL(t *testing.T) {
	url := imageDataURL(model.Image{Type: "image/jpeg", Data: "QUJD"})
	want := "data:image/jpeg;base64,QUJD"
	if url != want {
		t.Errorf("imageDataURL = %q, want %q", url, want)
	}
}
