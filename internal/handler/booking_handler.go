package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/murafiq/murafiq-api/internal/models"
	"github.com/murafiq/murafiq-api/internal/service"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
	"github.com/murafiq/murafiq-api/pkg/response"
)

// BookingHandler exposes the booking ledger endpoints.
type BookingHandler struct {
	bookings *service.BookingService
	actors   actorResolver
}

// NewBookingHandler creates a new booking handler.
func NewBookingHandler(bookings *service.BookingService, teachers *service.TeacherService, centers *service.CenterService) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		actors:   actorResolver{teachers: teachers, centers: centers},
	}
}

// Create godoc
// @Summary Create booking
// @Description Book a teacher directly, or book a center service by sending a service_id
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body models.CreateDirectBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	// The payload shape decides the booking kind: a service_id means a
	// center service booking, otherwise a direct teacher booking.
	var probe struct {
		ServiceID string `json:"service_id"`
	}
	if err := c.ShouldBindBodyWith(&probe, binding.JSON); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}

	var (
		booking *models.Booking
		err     error
	)
	if probe.ServiceID != "" {
		var req models.CreateServiceBookingRequest
		if bindErr := c.ShouldBindBodyWith(&req, binding.JSON); bindErr != nil {
			response.Error(c, appErrors.Wrap(bindErr, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
			return
		}
		booking, err = h.bookings.CreateForService(c.Request.Context(), claims.UserID, req)
	} else {
		var req models.CreateDirectBookingRequest
		if bindErr := c.ShouldBindBodyWith(&req, binding.JSON); bindErr != nil {
			response.Error(c, appErrors.Wrap(bindErr, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
			return
		}
		booking, err = h.bookings.CreateDirect(c.Request.Context(), claims.UserID, req)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, booking)
}

// Get godoc
// @Summary Get booking
// @Description Get one booking, restricted to its participants
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	actor, err := h.actors.resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	booking, err := h.bookings.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, booking, nil)
}

// List godoc
// @Summary List bookings
// @Description List bookings scoped to the caller's ledger
// @Tags Bookings
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param status query string false "Status filter"
// @Param date_from query string false "From date (YYYY-MM-DD)"
// @Param date_to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	actor, err := h.actors.resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var filter models.BookingFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	if status := c.Query("status"); status != "" {
		s := models.BookingStatus(status)
		filter.Status = &s
	}
	if raw := c.Query("date_from"); raw != "" {
		if d, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateFrom = &d
		}
	}
	if raw := c.Query("date_to"); raw != "" {
		if d, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DateTo = &d
		}
	}
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	// Non-admin callers only ever see their own ledger.
	switch actor.Role {
	case models.RoleParent:
		filter.ParentID = actor.UserID
	case models.RoleTeacher:
		filter.TeacherProfileID = actor.TeacherProfileID
	case models.RoleCenter:
		filter.CenterID = actor.CenterID
	}

	bookings, total, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, bookings, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total})
}

// Confirm godoc
// @Summary Confirm booking
// @Description Move a pending booking to confirmed
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/confirm [post]
func (h *BookingHandler) Confirm(c *gin.Context) {
	h.transition(c, h.bookings.Confirm)
}

// Complete godoc
// @Summary Complete booking
// @Description Mark a confirmed booking as held
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/complete [post]
func (h *BookingHandler) Complete(c *gin.Context) {
	h.transition(c, h.bookings.Complete)
}

// Cancel godoc
// @Summary Cancel booking
// @Description Cancel a booking from any non-terminal status
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	h.transition(c, h.bookings.Cancel)
}

// Candidates godoc
// @Summary List assignment candidates
// @Description Teachers eligible to take a booking awaiting assignment
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/candidates [get]
func (h *BookingHandler) Candidates(c *gin.Context) {
	actor, err := h.actors.resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	candidates, err := h.bookings.Candidates(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, candidates, nil)
}

// Assign godoc
// @Summary Assign teacher
// @Description Attach a teacher to a booking awaiting assignment
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body models.AssignTeacherRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/assign [post]
func (h *BookingHandler) Assign(c *gin.Context) {
	actor, err := h.actors.resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.AssignTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	booking, err := h.bookings.Assign(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, booking, nil)
}

func (h *BookingHandler) transition(c *gin.Context, fn func(ctx context.Context, id string, actor service.BookingActor) (*models.Booking, error)) {
	actor, err := h.actors.resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	booking, err := fn(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, booking, nil)
}
