package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/murafiq/murafiq-api/internal/models"
	"github.com/murafiq/murafiq-api/internal/service"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
	"github.com/murafiq/murafiq-api/pkg/response"
)

// TeacherHandler exposes teacher marketplace and availability endpoints.
type TeacherHandler struct {
	teachers     *service.TeacherService
	availability *service.AvailabilityService
}

// NewTeacherHandler creates a new teacher handler.
func NewTeacherHandler(teachers *service.TeacherService, availability *service.AvailabilityService) *TeacherHandler {
	return &TeacherHandler{teachers: teachers, availability: availability}
}

// Browse godoc
// @Summary Browse teachers
// @Description List verified shadow teachers with filters
// @Tags Teachers
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param city query string false "City filter"
// @Param specialization query string false "Specialization filter"
// @Param min_rate query number false "Minimum hourly rate"
// @Param max_rate query number false "Maximum hourly rate"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *TeacherHandler) Browse(c *gin.Context) {
	var filter models.TeacherFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.Search = c.Query("search")
	filter.City = c.Query("city")
	filter.Specialization = c.Query("specialization")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")
	if raw := c.Query("min_rate"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MinRate = &v
		}
	}
	if raw := c.Query("max_rate"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MaxRate = &v
		}
	}

	// Public browsing only sees verified, active profiles. Admins may
	// override through the query.
	claims := claimsFromContext(c)
	if claims == nil || claims.Role != models.RoleAdmin {
		verified, active := true, true
		filter.Verified = &verified
		filter.Active = &active
	} else {
		if raw := c.Query("verified"); raw != "" {
			if v, err := strconv.ParseBool(raw); err == nil {
				filter.Verified = &v
			}
		}
		if raw := c.Query("active"); raw != "" {
			if v, err := strconv.ParseBool(raw); err == nil {
				filter.Active = &v
			}
		}
	}

	teachers, total, err := h.teachers.Browse(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, teachers, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total})
}

// Get godoc
// @Summary Get teacher
// @Description Get teacher profile with rating summary
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher profile ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	profile, rating, err := h.teachers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"profile": profile, "rating": rating}, nil)
}

// Slots godoc
// @Summary List teacher slots
// @Description List a teacher's availability windows on a date, flagged when booked
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher profile ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teachers/{id}/slots [get]
func (h *TeacherHandler) Slots(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}

	slots, err := h.availability.TeacherSlots(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, slots, nil)
}

// MyProfile godoc
// @Summary Get own teacher profile
// @Description Returns the profile owned by the authenticated teacher
// @Tags Teachers
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /me/teacher [get]
func (h *TeacherHandler) MyProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	profile, err := h.teachers.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}

// CreateProfile godoc
// @Summary Create teacher profile
// @Description Create the marketplace profile for the authenticated teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param payload body models.TeacherProfileRequest true "Profile payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /me/teacher [post]
func (h *TeacherHandler) CreateProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.TeacherProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	profile, err := h.teachers.CreateProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, profile)
}

// UpdateProfile godoc
// @Summary Update teacher profile
// @Description Update the authenticated teacher's profile
// @Tags Teachers
// @Accept json
// @Produce json
// @Param payload body models.TeacherProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /me/teacher [put]
func (h *TeacherHandler) UpdateProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.TeacherProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	profile, err := h.teachers.UpdateProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}

// Verify godoc
// @Summary Verify teacher
// @Description Toggle the admin verification flag on a profile
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher profile ID"
// @Param payload body map[string]bool true "Verified flag"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id}/verify [post]
func (h *TeacherHandler) Verify(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Verified bool `json:"verified"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.teachers.Verify(c.Request.Context(), claims.UserID, c.Param("id"), payload.Verified); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Deactivate godoc
// @Summary Deactivate teacher
// @Description Soft delete a teacher profile
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher profile ID"
// @Success 204 {object} response.Envelope
// @Router /teachers/{id} [delete]
func (h *TeacherHandler) Deactivate(c *gin.Context) {
	if err := h.teachers.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListWindows godoc
// @Summary List availability windows
// @Description List the authenticated teacher's weekly availability windows
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/availability [get]
func (h *TeacherHandler) ListWindows(c *gin.Context) {
	profileID, err := h.ownProfileID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	windows, err := h.availability.ListWindows(c.Request.Context(), profileID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, windows, nil)
}

// AddWindow godoc
// @Summary Declare availability window
// @Description Add a weekly availability window for the authenticated teacher
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body models.AvailabilityWindowRequest true "Window payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /me/availability [post]
func (h *TeacherHandler) AddWindow(c *gin.Context) {
	profileID, err := h.ownProfileID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.AvailabilityWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	window, err := h.availability.AddWindow(c.Request.Context(), profileID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, window)
}

// UpdateWindow godoc
// @Summary Update availability window
// @Description Modify one of the authenticated teacher's windows
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Window ID"
// @Param payload body models.AvailabilityWindowRequest true "Window payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /me/availability/{id} [put]
func (h *TeacherHandler) UpdateWindow(c *gin.Context) {
	profileID, err := h.ownProfileID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.AvailabilityWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	window, err := h.availability.UpdateWindow(c.Request.Context(), profileID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, window, nil)
}

// RemoveWindow godoc
// @Summary Remove availability window
// @Description Delete one of the authenticated teacher's windows
// @Tags Availability
// @Produce json
// @Param id path string true "Window ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /me/availability/{id} [delete]
func (h *TeacherHandler) RemoveWindow(c *gin.Context) {
	profileID, err := h.ownProfileID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.availability.RemoveWindow(c.Request.Context(), profileID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

func (h *TeacherHandler) ownProfileID(c *gin.Context) (string, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	profile, err := h.teachers.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		return "", err
	}
	return profile.ID, nil
}
