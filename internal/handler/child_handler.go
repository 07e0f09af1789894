package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/murafiq/murafiq-api/internal/models"
	"github.com/murafiq/murafiq-api/internal/service"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
	"github.com/murafiq/murafiq-api/pkg/response"
)

// ChildHandler exposes parent-owned child profile endpoints.
type ChildHandler struct {
	children *service.ChildService
}

// NewChildHandler creates a new child handler.
func NewChildHandler(children *service.ChildService) *ChildHandler {
	return &ChildHandler{children: children}
}

// List godoc
// @Summary List children
// @Description List the caller's child profiles
// @Tags Children
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /children [get]
func (h *ChildHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	children, err := h.children.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, children, nil)
}

// Get godoc
// @Summary Get child
// @Description Get one child profile, restricted to its parent
// @Tags Children
// @Produce json
// @Param id path string true "Child ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /children/{id} [get]
func (h *ChildHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	child, err := h.children.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, child, nil)
}

// Create godoc
// @Summary Create child
// @Description Add a child profile for the caller
// @Tags Children
// @Accept json
// @Produce json
// @Param payload body models.ChildRequest true "Child payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /children [post]
func (h *ChildHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid child payload"))
		return
	}

	child, err := h.children.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, child)
}

// Update godoc
// @Summary Update child
// @Description Update one of the caller's child profiles
// @Tags Children
// @Accept json
// @Produce json
// @Param id path string true "Child ID"
// @Param payload body models.ChildRequest true "Child payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /children/{id} [put]
func (h *ChildHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid child payload"))
		return
	}

	child, err := h.children.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, child, nil)
}

// Remove godoc
// @Summary Remove child
// @Description Soft delete one of the caller's child profiles
// @Tags Children
// @Produce json
// @Param id path string true "Child ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /children/{id} [delete]
func (h *ChildHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.children.Remove(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
