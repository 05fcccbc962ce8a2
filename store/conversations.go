package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"parley/model"
)

// CreateConversation starts a new thread for the user.
func (s *Store) CreateConversation(ctx context.Context, userID, title string) (Conversation, error) {
	now := s.now().UTC()
	conv := Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return Conversation{}, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// GetConversation fetches a conversation the user owns. Another user's
// conversation is indistinguishable from a missing one.
func (s *Store) GetConversation(ctx context.Context, userID, id string) (Conversation, error) {
	var conv Conversation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM conversations WHERE id = ? AND user_id = ?`,
		id, userID).
		Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return Conversation{}, &model.NotFoundError{Resource: "Conversation"}
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("failed to load conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the user's conversations, most recently
// updated first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM conversations
		 WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var conv Conversation
		err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// RenameConversation sets a new title.
func (s *Store) RenameConversation(ctx context.Context, userID, id, title string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		title, s.now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}
	return requireRow(result, "Conversation")
}

// DeleteConversation removes the conversation and all of its messages.
// This is a hard delete; only individual messages get the soft-delete
// treatment.
func (s *Store) DeleteConversation(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return requireRow(result, "Conversation")
}

// touchConversation bumps updated_at so listing order tracks activity.
func (s *Store) touchConversation(ctx context.Context, id string) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, s.now().UTC(), id)
	if err != nil {
		s.logger.Warn("failed to touch conversation", "conversation", id, "error", err.Error())
	}
}

func requireRow(result sql.Result, resource string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return &model.NotFoundError{Resource: resource}
	}
	return nil
}
