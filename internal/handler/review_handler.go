package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/murafiq/murafiq-api/internal/models"
	"github.com/murafiq/murafiq-api/internal/service"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
	"github.com/murafiq/murafiq-api/pkg/response"
)

// ReviewHandler exposes review endpoints.
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Create godoc
// @Summary Review a booking
// @Description Rate a completed booking, once per booking
// @Tags Reviews
// @Accept json
// @Produce json
// @Param payload body models.CreateReviewRequest true "Review payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	review, err := h.reviews.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, review)
}

// ForTeacher godoc
// @Summary Teacher reviews
// @Description List reviews of a teacher
// @Tags Reviews
// @Produce json
// @Param id path string true "Teacher profile ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/reviews [get]
func (h *ReviewHandler) ForTeacher(c *gin.Context) {
	reviews, err := h.reviews.ForTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reviews, nil)
}

// ForCenter godoc
// @Summary Center reviews
// @Description List reviews of a center
// @Tags Reviews
// @Produce json
// @Param id path string true "Center ID"
// @Success 200 {object} response.Envelope
// @Router /centers/{id}/reviews [get]
func (h *ReviewHandler) ForCenter(c *gin.Context) {
	reviews, err := h.reviews.ForCenter(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reviews, nil)
}
