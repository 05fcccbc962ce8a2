package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"parley/model"
)

// AppendUserMessage records a user turn.
func (s *Store) AppendUserMessage(ctx context.Context, conversationID, content string, images []model.Image) (StoredMessage, error) {
	now := s.now().UTC()
	msg := StoredMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           "user",
		Content:        content,
		Images:         images,
		CreatedAt:      now,
	}

	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return StoredMessage{}, fmt.Errorf("failed to encode images: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, images, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, conversationID, msg.Role, content, string(imagesJSON), now)
	if err != nil {
		return StoredMessage{}, fmt.Errorf("failed to append user message: %w", err)
	}
	s.touchConversation(ctx, conversationID)
	return msg, nil
}

// AppendAssistantMessage records an assistant turn with its first response
// variation.
func (s *Store) AppendAssistantMessage(ctx context.Context, conversationID string, v Variation) (StoredMessage, error) {
	now := s.now().UTC()
	msgID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return StoredMessage{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, created_at) VALUES (?, ?, 'assistant', ?)`,
		msgID, conversationID, now)
	if err != nil {
		return StoredMessage{}, fmt.Errorf("failed to append assistant message: %w", err)
	}
	if err := insertVariation(ctx, tx, msgID, &v, now); err != nil {
		return StoredMessage{}, err
	}
	if err := tx.Commit(); err != nil {
		return StoredMessage{}, fmt.Errorf("failed to commit assistant message: %w", err)
	}

	s.touchConversation(ctx, conversationID)
	return StoredMessage{
		ID:             msgID,
		ConversationID: conversationID,
		Role:           "assistant",
		Content:        v.Content,
		Provider:       v.Provider,
		Model:          v.Model,
		ToolsUsed:      v.ToolsUsed,
		CreatedAt:      now,
	}, nil
}

// AddVariation appends a regenerated response to an existing assistant
// message. The new variation becomes the message's current content.
func (s *Store) AddVariation(ctx context.Context, messageID string, v Variation) (Variation, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `SELECT role FROM messages WHERE id = ?`, messageID).Scan(&role)
	if err == sql.ErrNoRows {
		return Variation{}, &model.NotFoundError{Resource: "Message"}
	}
	if err != nil {
		return Variation{}, fmt.Errorf("failed to load message: %w", err)
	}
	if role != "assistant" {
		return Variation{}, &model.ClientInputError{Reason: "Only assistant messages have response variations"}
	}

	now := s.now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Variation{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertVariation(ctx, tx, messageID, &v, now); err != nil {
		return Variation{}, err
	}
	if err := tx.Commit(); err != nil {
		return Variation{}, fmt.Errorf("failed to commit variation: %w", err)
	}
	return v, nil
}

func insertVariation(ctx context.Context, tx *sql.Tx, messageID string, v *Variation, now time.Time) error {
	v.ID = uuid.NewString()
	v.CreatedAt = now

	toolsJSON, err := json.Marshal(v.ToolsUsed)
	if err != nil {
		return fmt.Errorf("failed to encode tool results: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO variations (id, message_id, content, provider, model, tools_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, messageID, v.Content, v.Provider, v.Model, string(toolsJSON), now)
	if err != nil {
		return fmt.Errorf("failed to insert variation: %w", err)
	}
	return nil
}

// Messages returns the conversation's turns in order, soft-deleted ones
// included and flagged. Assistant content is the latest variation.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.role, m.content, m.images, m.is_deleted, m.deleted_at, m.created_at,
		       COALESCE(v.content, ''), COALESCE(v.provider, ''), COALESCE(v.model, ''),
		       COALESCE(v.tools_used, 'null')
		FROM messages m
		LEFT JOIN variations v ON v.id = (
			SELECT id FROM variations
			WHERE message_id = m.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
		WHERE m.conversation_id = ?
		ORDER BY m.created_at ASC, m.id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var messages []StoredMessage
	for rows.Next() {
		var (
			msg        StoredMessage
			imagesJSON string
			deletedAt  sql.NullTime
			vContent   string
			toolsJSON  string
		)
		err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &imagesJSON, &msg.IsDeleted,
			&deletedAt, &msg.CreatedAt, &vContent, &msg.Provider, &msg.Model, &toolsJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.ConversationID = conversationID
		if deletedAt.Valid {
			t := deletedAt.Time
			msg.DeletedAt = &t
		}
		if msg.Role == "assistant" {
			msg.Content = vContent
		}
		if err := json.Unmarshal([]byte(imagesJSON), &msg.Images); err != nil {
			msg.Images = nil
		}
		if err := json.Unmarshal([]byte(toolsJSON), &msg.ToolsUsed); err != nil {
			msg.ToolsUsed = nil
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// DisplayMessages returns the user-facing view of a conversation:
// ownership checked, soft-deleted content replaced by a redaction notice.
// Tool results on redacted messages are withheld too.
func (s *Store) DisplayMessages(ctx context.Context, userID, conversationID string) ([]StoredMessage, error) {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	messages, err := s.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	for i := range messages {
		if !messages[i].IsDeleted {
			continue
		}
		messages[i].Content = s.redactionNotice(messages[i].DeletedAt)
		messages[i].Images = nil
		messages[i].ToolsUsed = nil
	}
	return messages, nil
}

// Variations returns every stored response for an assistant message,
// oldest first.
func (s *Store) Variations(ctx context.Context, messageID string) ([]Variation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, provider, model, tools_used, created_at
		FROM variations WHERE message_id = ?
		ORDER BY created_at ASC, id ASC`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load variations: %w", err)
	}
	defer rows.Close()

	var variations []Variation
	for rows.Next() {
		var v Variation
		var toolsJSON string
		if err := rows.Scan(&v.ID, &v.Content, &v.Provider, &v.Model, &toolsJSON, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan variation: %w", err)
		}
		if err := json.Unmarshal([]byte(toolsJSON), &v.ToolsUsed); err != nil {
			v.ToolsUsed = nil
		}
		variations = append(variations, v)
	}
	return variations, rows.Err()
}

// SoftDeleteMessage hides a message and starts its recovery clock.
// Deleting an already-deleted message is a no-op.
func (s *Store) SoftDeleteMessage(ctx context.Context, userID, conversationID, messageID string) error {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE messages SET is_deleted = 1, deleted_at = ?
		 WHERE id = ? AND conversation_id = ? AND is_deleted = 0`,
		s.now().UTC(), messageID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		// Either unknown or already deleted; distinguish for the caller.
		if exists, err := s.messageExists(ctx, conversationID, messageID); err != nil {
			return err
		} else if !exists {
			return &model.NotFoundError{Resource: "Message"}
		}
	}
	return nil
}

// RecoverMessage undoes a soft delete while the recovery window is open.
func (s *Store) RecoverMessage(ctx context.Context, userID, conversationID, messageID string) error {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return err
	}

	var deletedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT deleted_at FROM messages WHERE id = ? AND conversation_id = ? AND is_deleted = 1`,
		messageID, conversationID).Scan(&deletedAt)
	if err == sql.ErrNoRows {
		return &model.NotFoundError{Resource: "Message"}
	}
	if err != nil {
		return fmt.Errorf("failed to load message: %w", err)
	}

	if !deletedAt.Valid || s.now().Sub(deletedAt.Time) > s.recoveryWindow {
		return &model.ClientInputError{Reason: "Message is no longer recoverable"}
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE messages SET is_deleted = 0, deleted_at = NULL WHERE id = ? AND conversation_id = ?`,
		messageID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to recover message: %w", err)
	}
	return nil
}

// PurgeExpired permanently removes the content of messages whose recovery
// window has lapsed. The row survives so the conversation still shows a
// permanent redaction notice; content, images, and variations go.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.recoveryWindow)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM variations WHERE message_id IN (
			SELECT id FROM messages WHERE is_deleted = 1 AND deleted_at <= ?
		)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge variations: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE messages SET content = '', images = '[]'
		 WHERE is_deleted = 1 AND deleted_at <= ? AND content != ''`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge messages: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit purge: %w", err)
	}
	return n, nil
}

func (s *Store) messageExists(ctx context.Context, conversationID, messageID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM messages WHERE id = ? AND conversation_id = ?`,
		messageID, conversationID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up message: %w", err)
	}
	return true, nil
}

// redactionNotice is the placeholder shown in place of deleted content.
// Remaining time is reported in whole elapsed hours, so the final partial
// hour renders as "0 more hours".
func (s *Store) redactionNotice(deletedAt *time.Time) string {
	if deletedAt == nil {
		return "*This message was deleted and is no longer recoverable.*"
	}
	remaining := s.recoveryWindow - s.now().Sub(*deletedAt)
	if remaining <= 0 {
		return "*This message was deleted and is no longer recoverable.*"
	}

	hours := int(remaining.Hours())
	plural := "s"
	if hours == 1 {
		plural = ""
	}
	return fmt.Sprintf("*This message was deleted on %s and will be recoverable for %d more hour%s.*",
		deletedAt.UTC().Format(time.RFC3339), hours, plural)
}
