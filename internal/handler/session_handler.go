package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/murafiq/murafiq-api/internal/models"
	"github.com/murafiq/murafiq-api/internal/service"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
	"github.com/murafiq/murafiq-api/pkg/response"
)

// SessionHandler exposes session record and document endpoints.
type SessionHandler struct {
	sessions *service.SessionService
	actors   actorResolver
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions *service.SessionService, teachers *service.TeacherService, centers *service.CenterService) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		actors:   actorResolver{teachers: teachers, centers: centers},
	}
}

// CreateRecord godoc
// @Summary Create session record
// @Description Write session notes for a completed booking
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body models.SessionRecordRequest true "Session notes"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/session [post]
func (h *SessionHandler) CreateRecord(c *gin.Context) {
	actor, err := h.actors.resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.SessionRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session record payload"))
		return
	}

	record, err := h.sessions.CreateRecord(c.Request.Context(), actor.TeacherProfileID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, record)
}

// UpdateRecord godoc
// @Summary Update session record
// @Description Amend session notes, restricted to the authoring teacher
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session record ID"
// @Param payload body models.SessionRecordRequest true "Session notes"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *SessionHandler) UpdateRecord(c *gin.Context) {
	actor, err := h.actors.resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req models.SessionRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session record payload"))
		return
	}

	record, err := h.sessions.UpdateRecord(c.Request.Context(), actor.TeacherProfileID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// GetForBooking godoc
// @Summary Get session record
// @Description Get a booking's session notes and documents
// @Tags Sessions
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id}/session [get]
func (h *SessionHandler) GetForBooking(c *gin.Context) {
	actor, err := h.actors.resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, docs, err := h.sessions.GetForBooking(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"record": record, "documents": docs}, nil)
}

// UploadDocument godoc
// @Summary Attach document
// @Description Upload a document to a session record
// @Tags Sessions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session record ID"
// @Param file formData file true "Document file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /sessions/{id}/documents [post]
func (h *SessionHandler) UploadDocument(c *gin.Context) {
	actor, err := h.actors.resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read upload"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read upload"))
		return
	}

	doc, err := h.sessions.AttachDocument(c.Request.Context(), actor.TeacherProfileID, c.Param("id"), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, doc)
}

// SignDocument godoc
// @Summary Sign document download
// @Description Issue a time-limited download token for a document
// @Tags Sessions
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /documents/{id}/sign [post]
func (h *SessionHandler) SignDocument(c *gin.Context) {
	actor, err := h.actors.resolve(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	signed, err := h.sessions.SignDocumentURL(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, signed, nil)
}

// DownloadDocument godoc
// @Summary Download document
// @Description Stream a document using a signed download token
// @Tags Sessions
// @Produce application/octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /documents/download [get]
func (h *SessionHandler) DownloadDocument(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	doc, file, err := h.sessions.OpenSignedDocument(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	c.Header("Content-Type", doc.MimeType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		_ = c.Error(err)
	}
}
