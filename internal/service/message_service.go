package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

type messageRepository interface {
	FindConversation(ctx context.Context, id string) (*models.Conversation, error)
	FindConversationBetween(ctx context.Context, userA, userB string) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	ListConversations(ctx context.Context, userID string) ([]models.Conversation, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID, readerID string, ts time.Time) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type messageUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// MessageService provides direct messaging between marketplace users.
type MessageService struct {
	messages  messageRepository
	users     messageUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMessageService constructs a MessageService.
func NewMessageService(messages messageRepository, users messageUserRepository, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MessageService{messages: messages, users: users, validator: validate, logger: logger}
}

// Send delivers a message, creating the conversation on first contact.
func (s *MessageService) Send(ctx context.Context, senderID string, req models.SendMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}
	if req.RecipientID == senderID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot message yourself")
	}

	recipient, err := s.users.FindByID(ctx, req.RecipientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "recipient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipient")
	}
	if !recipient.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recipient account is inactive")
	}

	conv, err := s.messages.FindConversationBetween(ctx, senderID, req.RecipientID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversation")
		}
		conv = &models.Conversation{ParticipantA: senderID, ParticipantB: req.RecipientID}
		if err := s.messages.CreateConversation(ctx, conv); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create conversation")
		}
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Body:           req.Body,
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}
	return msg, nil
}

// Conversations lists the caller's threads, most recent first.
func (s *MessageService) Conversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	convs, err := s.messages.ListConversations(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conversations")
	}
	return convs, nil
}

// Messages returns a thread's messages and marks them read for the
// caller. Participation is enforced.
func (s *MessageService) Messages(ctx context.Context, userID, conversationID string) ([]models.Message, error) {
	conv, err := s.messages.FindConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversation")
	}
	if conv.ParticipantA != userID && conv.ParticipantB != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "conversation belongs to other users")
	}

	messages, err := s.messages.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}

	if err := s.messages.MarkRead(ctx, conversationID, userID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to mark messages read", zap.Error(err))
	}
	return messages, nil
}

// UnreadCount counts unread messages addressed to the caller.
func (s *MessageService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.messages.UnreadCount(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread messages")
	}
	return count, nil
}
