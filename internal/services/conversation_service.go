package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"taskchat/internal/database"
	"taskchat/internal/models"
)

// ErrConversationNotFound covers both missing and cross-owner
// conversations.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationService persists conversations and their append-only
// messages. It is the sole carrier of state between chat requests; the
// pipeline itself holds nothing in memory across turns.
type ConversationService struct {
	db *database.DB
}

// NewConversationService creates a new conversation service.
func NewConversationService(db *database.DB) *ConversationService {
	return &ConversationService{db: db}
}

// GetOrCreate loads the owner's conversation, or creates a fresh one
// when the ID is empty or does not resolve. The step is explicit and
// idempotent: a supplied ID that matches an active thread always
// returns that thread.
func (s *ConversationService) GetOrCreate(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	if conversationID != "" {
		conv, err := s.get(ctx, userID, conversationID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, ErrConversationNotFound) {
			return nil, err
		}
		slog.Warn("conversation not found, creating new",
			"user_id", userID, "conversation_id", conversationID)
	}

	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		conv.ID, conv.UserID, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

func (s *ConversationService) get(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at FROM conversations
		 WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		conversationID, userID)

	var conv models.Conversation
	err := row.Scan(&conv.ID, &conv.UserID, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return &conv, nil
}

// History returns the most recent messages of the conversation in
// creation order, for use as classifier context.
func (s *ConversationService) History(ctx context.Context, userID, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 10
	}

	// Fetch the newest rows, then reverse into creation order.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, user_id, role, content, created_at FROM messages
		 WHERE conversation_id = ? AND user_id = ? AND deleted_at IS NULL
		 ORDER BY id DESC LIMIT ?`,
		conversationID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// AppendTurn persists one user message and one assistant message and
// bumps the conversation's last-activity time. Every terminal pipeline
// state except the rate-limit rejection ends here, so failure replies
// land in the audit trail too.
func (s *ConversationService) AppendTurn(ctx context.Context, conv *models.Conversation, userContent, assistantContent string) error {
	userContent = truncateContent(userContent)
	assistantContent = truncateContent(assistantContent)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, user_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		conv.ID, conv.UserID, string(models.RoleUser), userContent, now)
	if err != nil {
		return fmt.Errorf("failed to save user message: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, user_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		conv.ID, conv.UserID, string(models.RoleAssistant), assistantContent, now)
	if err != nil {
		return fmt.Errorf("failed to save assistant message: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, conv.ID)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	return tx.Commit()
}

// List returns the owner's active conversations, most recent first,
// with message counts.
func (s *ConversationService) List(ctx context.Context, userID string, limit int) ([]models.ConversationSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id AND m.deleted_at IS NULL)
		 FROM conversations c
		 WHERE c.user_id = ? AND c.deleted_at IS NULL
		 ORDER BY c.updated_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	summaries := []models.ConversationSummary{}
	for rows.Next() {
		var s models.ConversationSummary
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt, &s.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Messages returns all active messages of an owner's conversation in
// creation order.
func (s *ConversationService) Messages(ctx context.Context, userID, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	// Ownership check first so a cross-owner ID reads as not-found.
	if _, err := s.get(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, user_id, role, content, created_at FROM messages
		 WHERE conversation_id = ? AND deleted_at IS NULL
		 ORDER BY created_at ASC, id ASC LIMIT ?`,
		conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// SoftDelete marks the conversation and all of its messages deleted in
// lockstep. Rows are never physically removed by the interactive path.
func (s *ConversationService) SoftDelete(ctx context.Context, userID, conversationID string) error {
	if _, err := s.get(ctx, userID, conversationID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET deleted_at = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		now, now, conversationID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE messages SET deleted_at = ? WHERE conversation_id = ? AND deleted_at IS NULL`,
		now, conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	return tx.Commit()
}

func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = models.MessageRole(role)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func truncateContent(content string) string {
	if len(content) > models.MaxMessageContentLength {
		return content[:models.MaxMessageContentLength]
	}
	return content
}
