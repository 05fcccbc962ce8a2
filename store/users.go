package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Settings returns the user's chat preferences, falling back to the server
// defaults when the user never saved any.
func (s *Store) Settings(ctx context.Context, userID string) (Settings, error) {
	var settings Settings
	err := s.db.QueryRowContext(ctx,
		`SELECT use_message_history, message_history_count, use_tools, stream_responses
		 FROM user_settings WHERE user_id = ?`,
		userID).
		Scan(&settings.UseMessageHistory, &settings.MessageHistoryCount, &settings.UseTools, &settings.StreamResponses)
	if err == sql.ErrNoRows {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// SaveSettings upserts the user's chat preferences.
func (s *Store) SaveSettings(ctx context.Context, userID string, settings Settings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, use_message_history, message_history_count, use_tools, stream_responses)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			use_message_history = excluded.use_message_history,
			message_history_count = excluded.message_history_count,
			use_tools = excluded.use_tools,
			stream_responses = excluded.stream_responses`,
		userID, settings.UseMessageHistory, settings.MessageHistoryCount, settings.UseTools, settings.StreamResponses)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// OwnedToolIDs returns the tool ids granted to the user, sorted.
func (s *Store) OwnedToolIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tool_id FROM user_tools WHERE user_id = ? ORDER BY tool_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owned tools: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tool id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GrantTool gives the user access to a tool. Granting twice is a no-op.
func (s *Store) GrantTool(ctx context.Context, userID, toolID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_tools (user_id, tool_id) VALUES (?, ?)`, userID, toolID)
	if err != nil {
		return fmt.Errorf("failed to grant tool: %w", err)
	}
	return nil
}

// RevokeTool removes the user's access to a tool.
func (s *Store) RevokeTool(ctx context.Context, userID, toolID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_tools WHERE user_id = ? AND tool_id = ?`, userID, toolID)
	if err != nil {
		return fmt.Errorf("failed to revoke tool: %w", err)
	}
	return nil
}
