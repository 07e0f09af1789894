package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/murafiq/murafiq-api/internal/models"
)

// MessageRepository persists conversations and messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// FindConversation loads a conversation by id.
func (r *MessageRepository) FindConversation(ctx context.Context, id string) (*models.Conversation, error) {
	const query = `SELECT id, participant_a, participant_b, last_message_at, created_at FROM conversations WHERE id = $1`
	var conv models.Conversation
	if err := r.db.GetContext(ctx, &conv, query, id); err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindConversationBetween returns the conversation linking two users in
// either participant order.
func (r *MessageRepository) FindConversationBetween(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	const query = `SELECT id, participant_a, participant_b, last_message_at, created_at FROM conversations WHERE (participant_a = $1 AND participant_b = $2) OR (participant_a = $2 AND participant_b = $1) LIMIT 1`
	var conv models.Conversation
	if err := r.db.GetContext(ctx, &conv, query, userA, userB); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find conversation between users: %w", err)
	}
	return &conv, nil
}

// CreateConversation stores a new conversation.
func (r *MessageRepository) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO conversations (id, participant_a, participant_b, last_message_at, created_at) VALUES (:id, :participant_a, :participant_b, :last_message_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, conv); err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

// ListConversations returns a user's conversations, most recent first.
func (r *MessageRepository) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	const query = `SELECT id, participant_a, participant_b, last_message_at, created_at FROM conversations WHERE participant_a = $1 OR participant_b = $1 ORDER BY last_message_at DESC NULLS LAST`
	var convs []models.Conversation
	if err := r.db.SelectContext(ctx, &convs, query, userID); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// CreateMessage appends a message and bumps the conversation timestamp.
func (r *MessageRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create message: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insert = `INSERT INTO messages (id, conversation_id, sender_id, body, read_at, created_at) VALUES (:id, :conversation_id, :sender_id, :body, :read_at, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insert, msg); err != nil {
		err = fmt.Errorf("create message: %w", err)
		return err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE conversations SET last_message_at = $2 WHERE id = $1`, msg.ConversationID, msg.CreatedAt); err != nil {
		err = fmt.Errorf("touch conversation: %w", err)
		return err
	}
	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit message: %w", err)
		return err
	}
	return nil
}

// ListMessages returns a conversation's messages oldest first.
func (r *MessageRepository) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	const query = `SELECT id, conversation_id, sender_id, body, read_at, created_at FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, conversationID); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// MarkRead marks every unread message addressed to the reader.
func (r *MessageRepository) MarkRead(ctx context.Context, conversationID, readerID string, ts time.Time) error {
	const query = `UPDATE messages SET read_at = $3 WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, conversationID, readerID, ts); err != nil {
		return fmt.Errorf("mark messages read: %w", err)
	}
	return nil
}

// UnreadCount counts unread messages addressed to the user.
func (r *MessageRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM messages m JOIN conversations c ON c.id = m.conversation_id WHERE (c.participant_a = $1 OR c.participant_b = $1) AND m.sender_id <> $1 AND m.read_at IS NULL`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return count, nil
}
