// Package store persists conversations, messages, response variations,
// per-user settings, and tool ownership in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"parley/model"
)

// Store wraps the SQLite database. All methods are safe for concurrent use;
// database/sql serializes access to the single connection pool.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	// recoveryWindow is how long a soft-deleted message stays recoverable.
	recoveryWindow time.Duration

	// now is injectable for tests that need a fixed clock.
	now func() time.Time
}

// Conversation is one chat thread owned by a user.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoredMessage is one turn of a conversation as persisted. Assistant
// content comes from the latest response variation; user content is stored
// on the message itself.
type StoredMessage struct {
	ID             string                 `json:"id"`
	ConversationID string                 `json:"-"`
	Role           string                 `json:"role"`
	Content        string                 `json:"content"`
	Images         []model.Image          `json:"images,omitempty"`
	Provider       string                 `json:"provider,omitempty"`
	Model          string                 `json:"model,omitempty"`
	ToolsUsed      []model.ToolCallResult `json:"tools_used,omitempty"`
	IsDeleted      bool                   `json:"is_deleted"`
	DeletedAt      *time.Time             `json:"deleted_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// Variation is one generated response attached to an assistant message.
// Regenerating a response appends a variation; the latest one is the
// message's current content.
type Variation struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Provider  string                 `json:"provider"`
	Model     string                 `json:"model"`
	ToolsUsed []model.ToolCallResult `json:"tools_used,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Settings are the per-user chat preferences, with server defaults applied
// for users who never saved any.
type Settings struct {
	UseMessageHistory   bool `json:"use_message_history"`
	MessageHistoryCount int  `json:"message_history_count"`
	UseTools            bool `json:"use_tools"`
	StreamResponses     bool `json:"stream_responses"`
}

// DefaultSettings mirrors the defaults applied when a user has no stored
// settings row.
func DefaultSettings() Settings {
	return Settings{
		UseMessageHistory:   true,
		MessageHistoryCount: 5,
		UseTools:            false,
		StreamResponses:     true,
	}
}

// New opens (or creates) the database at path.
func New(path string, recoveryHours int, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:             db,
		logger:         logger,
		recoveryWindow: time.Duration(recoveryHours) * time.Hour,
		now:            time.Now,
	}
	if err := s.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

// SetClock replaces the store's time source. Tests use this to control the
// recovery window.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		images TEXT NOT NULL DEFAULT '[]',
		is_deleted INTEGER NOT NULL DEFAULT 0,
		deleted_at DATETIME,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);

	CREATE TABLE IF NOT EXISTS variations (
		id TEXT PRIMARY KEY,
		message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		provider TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		tools_used TEXT NOT NULL DEFAULT 'null',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_variations_message ON variations(message_id, created_at);

	CREATE TABLE IF NOT EXISTS user_settings (
		user_id TEXT PRIMARY KEY,
		use_message_history INTEGER NOT NULL DEFAULT 1,
		message_history_count INTEGER NOT NULL DEFAULT 5,
		use_tools INTEGER NOT NULL DEFAULT 0,
		stream_responses INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS user_tools (
		user_id TEXT NOT NULL,
		tool_id TEXT NOT NULL,
		PRIMARY KEY (user_id, tool_id)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(`PRAGMA foreign_keys = ON`)
	return err
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
