package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/murafiq/murafiq-api/internal/models"
	"github.com/murafiq/murafiq-api/internal/service"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
	"github.com/murafiq/murafiq-api/pkg/response"
)

// MessageHandler exposes direct messaging endpoints.
type MessageHandler struct {
	messages *service.MessageService
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// Send godoc
// @Summary Send message
// @Description Send a direct message, creating the conversation on first contact
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body models.SendMessageRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, msg)
}

// Conversations godoc
// @Summary List conversations
// @Description List the caller's message threads, most recent first
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /conversations [get]
func (h *MessageHandler) Conversations(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	convs, err := h.messages.Conversations(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, convs, nil)
}

// Messages godoc
// @Summary List messages
// @Description List a thread's messages and mark them read
// @Tags Messages
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /conversations/{id}/messages [get]
func (h *MessageHandler) Messages(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	messages, err := h.messages.Messages(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, messages, nil)
}

// UnreadCount godoc
// @Summary Unread count
// @Description Count unread messages addressed to the caller
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /messages/unread-count [get]
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	count, err := h.messages.UnreadCount(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"unread": count}, nil)
}
