package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/murafiq/murafiq-api/internal/models"
	"github.com/murafiq/murafiq-api/internal/service"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
	"github.com/murafiq/murafiq-api/pkg/response"
)

// CommunityHandler exposes the parent forum and community event endpoints.
type CommunityHandler struct {
	community *service.CommunityService
}

// NewCommunityHandler creates a new community handler.
func NewCommunityHandler(community *service.CommunityService) *CommunityHandler {
	return &CommunityHandler{community: community}
}

// ListPosts godoc
// @Summary List forum posts
// @Description List visible forum posts; admins may include hidden ones
// @Tags Community
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param search query string false "Free text search"
// @Success 200 {object} response.Envelope
// @Router /community/posts [get]
func (h *CommunityHandler) ListPosts(c *gin.Context) {
	var filter models.ForumFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.Search = c.Query("search")
	if raw := c.Query("include_hidden"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.IncludeHidden = v
		}
	}

	posts, total, err := h.community.ListPosts(c.Request.Context(), filter, h.moderator(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, posts, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total})
}

// GetPost godoc
// @Summary Get forum post
// @Description Get a post with its visible comments
// @Tags Community
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /community/posts/{id} [get]
func (h *CommunityHandler) GetPost(c *gin.Context) {
	post, comments, err := h.community.GetPost(c.Request.Context(), c.Param("id"), h.moderator(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"post": post, "comments": comments}, nil)
}

// CreatePost godoc
// @Summary Create forum post
// @Description Publish a new forum post
// @Tags Community
// @Accept json
// @Produce json
// @Param payload body models.ForumPostRequest true "Post payload"
// @Success 201 {object} response.Envelope
// @Router /community/posts [post]
func (h *CommunityHandler) CreatePost(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ForumPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}

	post, err := h.community.CreatePost(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, post)
}

// Comment godoc
// @Summary Comment on post
// @Description Reply to a visible forum post
// @Tags Community
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body models.ForumCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /community/posts/{id}/comments [post]
func (h *CommunityHandler) Comment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ForumCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comment payload"))
		return
	}

	comment, err := h.community.Comment(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, comment)
}

// ModeratePost godoc
// @Summary Moderate post
// @Description Hide or restore a forum post
// @Tags Community
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param payload body object true "Hidden flag"
// @Success 204 {object} response.Envelope
// @Router /community/posts/{id}/moderate [post]
func (h *CommunityHandler) ModeratePost(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Hidden bool `json:"hidden"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.community.ModeratePost(c.Request.Context(), claims.UserID, c.Param("id"), payload.Hidden); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ModerateComment godoc
// @Summary Moderate comment
// @Description Hide or restore a forum comment
// @Tags Community
// @Accept json
// @Produce json
// @Param id path string true "Comment ID"
// @Param payload body object true "Hidden flag"
// @Success 204 {object} response.Envelope
// @Router /community/comments/{id}/moderate [post]
func (h *CommunityHandler) ModerateComment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Hidden bool `json:"hidden"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.community.ModerateComment(c.Request.Context(), claims.UserID, c.Param("id"), payload.Hidden); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// UpcomingEvents godoc
// @Summary Upcoming events
// @Description List non-cancelled community events with seat counts
// @Tags Community
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /community/events [get]
func (h *CommunityHandler) UpcomingEvents(c *gin.Context) {
	events, err := h.community.UpcomingEvents(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, events, nil)
}

// CreateEvent godoc
// @Summary Create event
// @Description Publish a community event
// @Tags Community
// @Accept json
// @Produce json
// @Param payload body models.CommunityEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Router /community/events [post]
func (h *CommunityHandler) CreateEvent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CommunityEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}

	event, err := h.community.CreateEvent(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, event)
}

// CancelEvent godoc
// @Summary Cancel event
// @Description Cancel an event, restricted to the organizer or an admin
// @Tags Community
// @Produce json
// @Param id path string true "Event ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /community/events/{id}/cancel [post]
func (h *CommunityHandler) CancelEvent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.community.CancelEvent(c.Request.Context(), claims.UserID, claims.Role == models.RoleAdmin, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// RegisterForEvent godoc
// @Summary Register for event
// @Description Take a seat at a community event
// @Tags Community
// @Produce json
// @Param id path string true "Event ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /community/events/{id}/register [post]
func (h *CommunityHandler) RegisterForEvent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	reg, err := h.community.Register(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, reg)
}

func (h *CommunityHandler) moderator(c *gin.Context) bool {
	claims := claimsFromContext(c)
	return claims != nil && claims.Role == models.RoleAdmin
}
