package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"parley/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"), 24, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConversationLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "alice", "First chat")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if conv.ID == "" {
		t.Fatal("conversation has no id")
	}

	loaded, err := s.GetConversation(ctx, "alice", conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if loaded.Title != "First chat" {
		t.Errorf("Title = %q, want %q", loaded.Title, "First chat")
	}

	// Another user's conversation is invisible.
	if _, err := s.GetConversation(ctx, "bob", conv.ID); !model.IsNotFound(err) {
		t.Errorf("expected not found for wrong user, got %v", err)
	}

	if err := s.RenameConversation(ctx, "alice", conv.ID, "Renamed"); err != nil {
		t.Fatalf("RenameConversation failed: %v", err)
	}
	loaded, err = s.GetConversation(ctx, "alice", conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if loaded.Title != "Renamed" {
		t.Errorf("Title = %q, want Renamed", loaded.Title)
	}

	if err := s.DeleteConversation(ctx, "alice", conv.ID); err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}
	if _, err := s.GetConversation(ctx, "alice", conv.ID); !model.IsNotFound(err) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestNotFoundErrorMessage(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetConversation(context.Background(), "alice", "missing-id")
	if err == nil {
		t.Fatal("expected an error")
	}
	if err.Error() != "Conversation not found" {
		t.Errorf("error = %q, want %q", err.Error(), "Conversation not found")
	}
}

func TestMessagesAndVariations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "alice", "chat")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	if _, err := s.AppendUserMessage(ctx, conv.ID, "hello", nil); err != nil {
		t.Fatalf("AppendUserMessage failed: %v", err)
	}
	assistant, err := s.AppendAssistantMessage(ctx, conv.ID, Variation{
		Content:  "hi there",
		Provider: "ollama",
		Model:    "llama3.1",
	})
	if err != nil {
		t.Fatalf("AppendAssistantMessage failed: %v", err)
	}

	messages, err := s.Messages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].Role != "user" || messages[1].Role != "assistant" {
		t.Errorf("roles = %q, %q", messages[0].Role, messages[1].Role)
	}
	if messages[1].Content != "hi there" {
		t.Errorf("assistant content = %q, want the variation", messages[1].Content)
	}

	// A regenerated response becomes the current content.
	if _, err := s.AddVariation(ctx, assistant.ID, Variation{Content: "hello again", Provider: "openai", Model: "gpt-4o-mini"}); err != nil {
		t.Fatalf("AddVariation failed: %v", err)
	}
	messages, err = s.Messages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if messages[1].Content != "hello again" {
		t.Errorf("assistant content = %q, want the latest variation", messages[1].Content)
	}
	if messages[1].Provider != "openai" {
		t.Errorf("provider = %q, want the latest variation's", messages[1].Provider)
	}

	variations, err := s.Variations(ctx, assistant.ID)
	if err != nil {
		t.Fatalf("Variations failed: %v", err)
	}
	if len(variations) != 2 {
		t.Errorf("got %d variations, want 2", len(variations))
	}

	// Variations only attach to assistant messages.
	userMsg, err := s.AppendUserMessage(ctx, conv.ID, "another", nil)
	if err != nil {
		t.Fatalf("AppendUserMessage failed: %v", err)
	}
	if _, err := s.AddVariation(ctx, userMsg.ID, Variation{Content: "x"}); !model.IsClientInput(err) {
		t.Errorf("expected client input error, got %v", err)
	}
}

func TestSoftDeleteRedaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	s.SetClock(func() time.Time { return clock })

	conv, err := s.CreateConversation(ctx, "alice", "chat")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	msg, err := s.AppendUserMessage(ctx, conv.ID, "delete me", nil)
	if err != nil {
		t.Fatalf("AppendUserMessage failed: %v", err)
	}

	if err := s.SoftDeleteMessage(ctx, "alice", conv.ID, msg.ID); err != nil {
		t.Fatalf("SoftDeleteMessage failed: %v", err)
	}

	display, err := s.DisplayMessages(ctx, "alice", conv.ID)
	if err != nil {
		t.Fatalf("DisplayMessages failed: %v", err)
	}
	want := fmt.Sprintf("*This message was deleted on %s and will be recoverable for 24 more hours.*",
		base.Format(time.RFC3339))
	if display[0].Content != want {
		t.Errorf("redacted content = %q, want %q", display[0].Content, want)
	}

	// 1.5 hours left floors to the singular hour.
	clock = base.Add(22*time.Hour + 30*time.Minute)
	display, err = s.DisplayMessages(ctx, "alice", conv.ID)
	if err != nil {
		t.Fatalf("DisplayMessages failed: %v", err)
	}
	want = fmt.Sprintf("*This message was deleted on %s and will be recoverable for 1 more hour.*",
		base.Format(time.RFC3339))
	if display[0].Content != want {
		t.Errorf("redacted content = %q, want %q", display[0].Content, want)
	}

	// Inside the final partial hour the count floors to zero while the
	// message stays recoverable.
	clock = base.Add(23*time.Hour + 30*time.Minute)
	display, err = s.DisplayMessages(ctx, "alice", conv.ID)
	if err != nil {
		t.Fatalf("DisplayMessages failed: %v", err)
	}
	want = fmt.Sprintf("*This message was deleted on %s and will be recoverable for 0 more hours.*",
		base.Format(time.RFC3339))
	if display[0].Content != want {
		t.Errorf("redacted content = %q, want %q", display[0].Content, want)
	}

	// Past the window the deletion is permanent.
	clock = base.Add(25 * time.Hour)
	display, err = s.DisplayMessages(ctx, "alice", conv.ID)
	if err != nil {
		t.Fatalf("DisplayMessages failed: %v", err)
	}
	if display[0].Content != "*This message was deleted and is no longer recoverable.*" {
		t.Errorf("redacted content = %q, want the permanent notice", display[0].Content)
	}
}

func TestRecoverMessage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	s.SetClock(func() time.Time { return clock })

	conv, err := s.CreateConversation(ctx, "alice", "chat")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	msg, err := s.AppendUserMessage(ctx, conv.ID, "precious", nil)
	if err != nil {
		t.Fatalf("AppendUserMessage failed: %v", err)
	}
	if err := s.SoftDeleteMessage(ctx, "alice", conv.ID, msg.ID); err != nil {
		t.Fatalf("SoftDeleteMessage failed: %v", err)
	}

	// Within the window recovery restores the original content.
	clock = base.Add(2 * time.Hour)
	if err := s.RecoverMessage(ctx, "alice", conv.ID, msg.ID); err != nil {
		t.Fatalf("RecoverMessage failed: %v", err)
	}
	display, err := s.DisplayMessages(ctx, "alice", conv.ID)
	if err != nil {
		t.Fatalf("DisplayMessages failed: %v", err)
	}
	if display[0].Content != "precious" || display[0].IsDeleted {
		t.Errorf("recovered message = %+v", display[0])
	}

	// Past the window recovery is refused.
	if err := s.SoftDeleteMessage(ctx, "alice", conv.ID, msg.ID); err != nil {
		t.Fatalf("SoftDeleteMessage failed: %v", err)
	}
	clock = clock.Add(25 * time.Hour)
	err = s.RecoverMessage(ctx, "alice", conv.ID, msg.ID)
	if !model.IsClientInput(err) {
		t.Fatalf("expected client input error, got %v", err)
	}
	if err.Error() != "Message is no longer recoverable" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestPurgeExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	s.SetClock(func() time.Time { return clock })

	conv, err := s.CreateConversation(ctx, "alice", "chat")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	msg, err := s.AppendUserMessage(ctx, conv.ID, "ephemeral", nil)
	if err != nil {
		t.Fatalf("AppendUserMessage failed: %v", err)
	}
	if err := s.SoftDeleteMessage(ctx, "alice", conv.ID, msg.ID); err != nil {
		t.Fatalf("SoftDeleteMessage failed: %v", err)
	}

	clock = base.Add(time.Hour)
	n, err := s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 0 {
		t.Errorf("purged %d messages inside the window, want 0", n)
	}

	clock = base.Add(25 * time.Hour)
	n, err = s.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d messages, want 1", n)
	}

	messages, err := s.Messages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if messages[0].Content != "" {
		t.Errorf("purged content = %q, want empty", messages[0].Content)
	}
}

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	settings, err := s.Settings(ctx, "nobody")
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	want := Settings{UseMessageHistory: true, MessageHistoryCount: 5, UseTools: false, StreamResponses: true}
	if settings != want {
		t.Errorf("defaults = %+v, want %+v", settings, want)
	}

	saved := Settings{UseMessageHistory: false, MessageHistoryCount: 9, UseTools: true, StreamResponses: false}
	if err := s.SaveSettings(ctx, "alice", saved); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	settings, err = s.Settings(ctx, "alice")
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if settings != saved {
		t.Errorf("settings = %+v, want %+v", settings, saved)
	}
}

func TestToolOwnership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.GrantTool(ctx, "alice", "tool-b"); err != nil {
		t.Fatalf("GrantTool failed: %v", err)
	}
	if err := s.GrantTool(ctx, "alice", "tool-a"); err != nil {
		t.Fatalf("GrantTool failed: %v", err)
	}
	// A second grant is a no-op.
	if err := s.GrantTool(ctx, "alice", "tool-a"); err != nil {
		t.Fatalf("repeated GrantTool failed: %v", err)
	}

	owned, err := s.OwnedToolIDs(ctx, "alice")
	if err != nil {
		t.Fatalf("OwnedToolIDs failed: %v", err)
	}
	if len(owned) != 2 || owned[0] != "tool-a" || owned[1] != "tool-b" {
		t.Errorf("owned = %v, want sorted [tool-a tool-b]", owned)
	}

	if err := s.RevokeTool(ctx, "alice", "tool-a"); err != nil {
		t.Fatalf("RevokeTool failed: %v", err)
	}
	owned, err = s.OwnedToolIDs(ctx, "alice")
	if err != nil {
		t.Fatalf("OwnedToolIDs failed: %v", err)
	}
	if len(owned) != 1 || owned[0] != "tool-b" {
		t.Errorf("owned = %v, want [tool-b]", owned)
	}
}
