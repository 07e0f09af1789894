package models

import "time"

// Conversation is a two-party message thread, typically parent to teacher
// or parent to center.
type Conversation struct {
	ID            string     `db:"id" json:"id"`
	ParticipantA  string     `db:"participant_a" json:"participant_a"`
	ParticipantB  string     `db:"participant_b" json:"participant_b"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// SendMessageRequest starts or continues a conversation with a user.
type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Body        string `json:"body" validate:"required,max=4000"`
}

// Message is a single message inside a conversation.
type Message struct {
	ID             string     `db:"id" json:"id"`
	ConversationID string     `db:"conversation_id" json:"conversation_id"`
	SenderID       string     `db:"sender_id" json:"sender_id"`
	Body           string     `db:"body" json:"body"`
	ReadAt         *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
