package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/murafiq/murafiq-api/internal/middleware"
	"github.com/murafiq/murafiq-api/internal/models"
	"github.com/murafiq/murafiq-api/internal/service"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
	"github.com/murafiq/murafiq-api/pkg/response"
)

// CenterHandler exposes therapy center marketplace endpoints.
type CenterHandler struct {
	centers      *service.CenterService
	availability *service.AvailabilityService
	dashboard    *service.DashboardService
	exports      *service.ExportService
}

// NewCenterHandler creates a new center handler.
func NewCenterHandler(centers *service.CenterService, availability *service.AvailabilityService, dashboard *service.DashboardService, exports *service.ExportService) *CenterHandler {
	return &CenterHandler{centers: centers, availability: availability, dashboard: dashboard, exports: exports}
}

// Browse godoc
// @Summary Browse centers
// @Description List verified therapy centers
// @Tags Centers
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param city query string false "City filter"
// @Param search query string false "Free text search"
// @Success 200 {object} response.Envelope
// @Router /centers [get]
func (h *CenterHandler) Browse(c *gin.Context) {
	var filter models.CenterFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.Search = c.Query("search")
	filter.City = c.Query("city")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

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

	centers, total, err := h.centers.Browse(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, centers, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total})
}

// Get godoc
// @Summary Get center
// @Description Get one center with its rating summary
// @Tags Centers
// @Produce json
// @Param id path string true "Center ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /centers/{id} [get]
func (h *CenterHandler) Get(c *gin.Context) {
	center, rating, err := h.centers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"center": center, "rating": rating}, nil)
}

// MyCenter godoc
// @Summary Get own center
// @Description Get the center owned by the current account
// @Tags Centers
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /me/center [get]
func (h *CenterHandler) MyCenter(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	center, err := h.centers.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, center, nil)
}

// CreateProfile godoc
// @Summary Create center profile
// @Description Create the center profile for the current account
// @Tags Centers
// @Accept json
// @Produce json
// @Param payload body models.CenterRequest true "Center payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /me/center [post]
func (h *CenterHandler) CreateProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid center payload"))
		return
	}

	center, err := h.centers.CreateProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, center)
}

// UpdateProfile godoc
// @Summary Update own center
// @Description Update the center owned by the current account
// @Tags Centers
// @Accept json
// @Produce json
// @Param payload body models.CenterRequest true "Center payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /me/center [put]
func (h *CenterHandler) UpdateProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid center payload"))
		return
	}

	center, err := h.centers.UpdateProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, center, nil)
}

// Verify godoc
// @Summary Verify center
// @Description Toggle the admin verification flag on a center
// @Tags Centers
// @Accept json
// @Produce json
// @Param id path string true "Center ID"
// @Param payload body object true "Verified flag"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /centers/{id}/verify [post]
func (h *CenterHandler) Verify(c *gin.Context) {
	var payload struct {
		Verified bool `json:"verified"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.centers.Verify(c.Request.Context(), c.Param("id"), payload.Verified); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Roster godoc
// @Summary List roster
// @Description List the teachers on the caller's center roster
// @Tags Centers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/center/roster [get]
func (h *CenterHandler) Roster(c *gin.Context) {
	center, ok := h.ownCenter(c)
	if !ok {
		return
	}

	roster, err := h.centers.Roster(c.Request.Context(), center.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, roster, nil)
}

// AddToRoster godoc
// @Summary Add teacher to roster
// @Description Add a teacher to the caller's center roster
// @Tags Centers
// @Accept json
// @Produce json
// @Param payload body models.RosterTeacherRequest true "Roster payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /me/center/roster [post]
func (h *CenterHandler) AddToRoster(c *gin.Context) {
	center, ok := h.ownCenter(c)
	if !ok {
		return
	}

	var req models.RosterTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid roster payload"))
		return
	}

	link, err := h.centers.AddTeacher(c.Request.Context(), center.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, link)
}

// RemoveFromRoster godoc
// @Summary Remove teacher from roster
// @Description Deactivate a roster entry
// @Tags Centers
// @Produce json
// @Param teacherProfileId path string true "Teacher profile ID"
// @Success 204 {object} response.Envelope
// @Router /me/center/roster/{teacherProfileId} [delete]
func (h *CenterHandler) RemoveFromRoster(c *gin.Context) {
	center, ok := h.ownCenter(c)
	if !ok {
		return
	}

	if err := h.centers.RemoveTeacher(c.Request.Context(), center.ID, c.Param("teacherProfileId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListServices godoc
// @Summary List center services
// @Description List a center's service offerings
// @Tags Centers
// @Produce json
// @Param id path string true "Center ID"
// @Success 200 {object} response.Envelope
// @Router /centers/{id}/services [get]
func (h *CenterHandler) ListServices(c *gin.Context) {
	centerID := c.Param("id")

	activeOnly := true
	if claims := claimsFromContext(c); claims != nil {
		if claims.Role == models.RoleAdmin {
			activeOnly = false
		} else if claims.Role == models.RoleCenter {
			if own, err := h.centers.GetByUser(c.Request.Context(), claims.UserID); err == nil && own.ID == centerID {
				activeOnly = false
			}
		}
	}

	services, err := h.centers.ListServices(c.Request.Context(), centerID, activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, services, nil)
}

// CreateService godoc
// @Summary Create service
// @Description Add a service offering to the caller's center
// @Tags Centers
// @Accept json
// @Produce json
// @Param payload body models.CenterServiceRequest true "Service payload"
// @Success 201 {object} response.Envelope
// @Router /me/center/services [post]
func (h *CenterHandler) CreateService(c *gin.Context) {
	center, ok := h.ownCenter(c)
	if !ok {
		return
	}

	var req models.CenterServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid service payload"))
		return
	}

	svc, err := h.centers.CreateOffering(c.Request.Context(), center.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, svc)
}

// UpdateService godoc
// @Summary Update service
// @Description Update one of the caller's service offerings
// @Tags Centers
// @Accept json
// @Produce json
// @Param serviceId path string true "Service ID"
// @Param payload body models.CenterServiceRequest true "Service payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /me/center/services/{serviceId} [put]
func (h *CenterHandler) UpdateService(c *gin.Context) {
	center, ok := h.ownCenter(c)
	if !ok {
		return
	}

	var req models.CenterServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid service payload"))
		return
	}

	svc, err := h.centers.UpdateOffering(c.Request.Context(), center.ID, c.Param("serviceId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, svc, nil)
}

// DeactivateService godoc
// @Summary Deactivate service
// @Description Soft delete one of the caller's service offerings
// @Tags Centers
// @Produce json
// @Param serviceId path string true "Service ID"
// @Success 204 {object} response.Envelope
// @Router /me/center/services/{serviceId} [delete]
func (h *CenterHandler) DeactivateService(c *gin.Context) {
	center, ok := h.ownCenter(c)
	if !ok {
		return
	}

	if err := h.centers.DeactivateOffering(c.Request.Context(), center.ID, c.Param("serviceId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// AssignTeacher godoc
// @Summary Staff a service
// @Description Assign a rostered teacher to a service offering
// @Tags Centers
// @Accept json
// @Produce json
// @Param serviceId path string true "Service ID"
// @Param payload body models.RosterTeacherRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /me/center/services/{serviceId}/teachers [post]
func (h *CenterHandler) AssignTeacher(c *gin.Context) {
	center, ok := h.ownCenter(c)
	if !ok {
		return
	}

	var req models.RosterTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}

	assignment, err := h.centers.AssignTeacherToService(c.Request.Context(), center.ID, c.Param("serviceId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, assignment)
}

// UnassignTeacher godoc
// @Summary Unstaff a service
// @Description Remove a teacher from a service offering
// @Tags Centers
// @Produce json
// @Param serviceId path string true "Service ID"
// @Param teacherProfileId path string true "Teacher profile ID"
// @Success 204 {object} response.Envelope
// @Router /me/center/services/{serviceId}/teachers/{teacherProfileId} [delete]
func (h *CenterHandler) UnassignTeacher(c *gin.Context) {
	center, ok := h.ownCenter(c)
	if !ok {
		return
	}

	if err := h.centers.UnassignTeacherFromService(c.Request.Context(), center.ID, c.Param("serviceId"), c.Param("teacherProfileId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ServiceSlots godoc
// @Summary Service slots
// @Description List bookable windows for a service on a date with capacity counts
// @Tags Centers
// @Produce json
// @Param id path string true "Center ID"
// @Param serviceId path string true "Service ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /centers/{id}/services/{serviceId}/slots [get]
func (h *CenterHandler) ServiceSlots(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}

	slots, err := h.availability.ServiceSlots(c.Request.Context(), c.Param("serviceId"), date)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, slots, nil)
}

// Dashboard godoc
// @Summary Center dashboard
// @Description Aggregate booking and revenue stats for the caller's center
// @Tags Centers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/center/dashboard [get]
func (h *CenterHandler) Dashboard(c *gin.Context) {
	center, ok := h.ownCenter(c)
	if !ok {
		return
	}

	stats, cacheHit, err := h.dashboard.CenterDashboard(c.Request.Context(), center.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// ExportBookings godoc
// @Summary Export bookings
// @Description Download the caller's booking ledger as CSV or PDF
// @Tags Centers
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "Export format (csv or pdf)"
// @Param date_from query string false "From date (YYYY-MM-DD)"
// @Param date_to query string false "To date (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /me/center/bookings/export [get]
func (h *CenterHandler) ExportBookings(c *gin.Context) {
	center, ok := h.ownCenter(c)
	if !ok {
		return
	}

	var from, to *time.Time
	if raw := c.Query("date_from"); raw != "" {
		if d, err := time.Parse("2006-01-02", raw); err == nil {
			from = &d
		}
	}
	if raw := c.Query("date_to"); raw != "" {
		if d, err := time.Parse("2006-01-02", raw); err == nil {
			to = &d
		}
	}

	result, err := h.exports.CenterBookings(c.Request.Context(), center.ID, c.DefaultQuery("format", "csv"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func (h *CenterHandler) ownCenter(c *gin.Context) (*models.Center, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}

	center, err := h.centers.GetByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return center, true
}
