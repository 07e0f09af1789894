package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

type sessionRecordRepository interface {
	FindByID(ctx context.Context, id string) (*models.SessionRecord, error)
	FindByBooking(ctx context.Context, bookingID string) (*models.SessionRecord, error)
	Create(ctx context.Context, record *models.SessionRecord) error
	Update(ctx context.Context, record *models.SessionRecord) error
	AddDocument(ctx context.Context, doc *models.SessionDocument) error
	ListDocuments(ctx context.Context, sessionRecordID string) ([]models.SessionDocument, error)
	FindDocument(ctx context.Context, id string) (*models.SessionDocument, error)
}

type sessionBookingRepository interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
}

type documentStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type documentSigner interface {
	Generate(fileID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (fileID, relPath string, expiresAt time.Time, err error)
}

// SignedDocumentURL is a time-limited download reference for a document.
type SignedDocumentURL struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionService manages post-session notes and their document uploads.
type SessionService struct {
	records      sessionRecordRepository
	bookings     sessionBookingRepository
	storage      documentStorage
	signer       documentSigner
	validator    *validator.Validate
	logger       *zap.Logger
	maxFileSize  int64
	allowedMIMEs map[string]bool
}

// NewSessionService constructs a SessionService.
func NewSessionService(records sessionRecordRepository, bookings sessionBookingRepository, storage documentStorage, signer documentSigner, validate *validator.Validate, logger *zap.Logger, maxFileSize int64, allowedMIMEs []string) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	mimes := make(map[string]bool, len(allowedMIMEs))
	for _, m := range allowedMIMEs {
		mimes[m] = true
	}
	return &SessionService{
		records:      records,
		bookings:     bookings,
		storage:      storage,
		signer:       signer,
		validator:    validate,
		logger:       logger,
		maxFileSize:  maxFileSize,
		allowedMIMEs: mimes,
	}
}

// CreateRecord writes the serving teacher's notes for a completed
// booking. One record per booking.
func (s *SessionService) CreateRecord(ctx context.Context, teacherProfileID, bookingID string, req models.SessionRecordRequest) (*models.SessionRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session record payload")
	}

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if booking.TeacherProfileID == nil || *booking.TeacherProfileID != teacherProfileID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking was served by another teacher")
	}
	if booking.Status != models.BookingCompleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session notes require a completed booking")
	}

	if _, err := s.records.FindByBooking(ctx, bookingID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "session record already exists for this booking")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session record")
	}

	record := &models.SessionRecord{
		BookingID:        bookingID,
		TeacherProfileID: teacherProfileID,
		Summary:          req.Summary,
		Recommendations:  req.Recommendations,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session record")
	}
	return record, nil
}

// UpdateRecord amends notes, restricted to the authoring teacher.
func (s *SessionService) UpdateRecord(ctx context.Context, teacherProfileID, recordID string, req models.SessionRecordRequest) (*models.SessionRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session record payload")
	}

	record, err := s.loadRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.TeacherProfileID != teacherProfileID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "record belongs to another teacher")
	}

	record.Summary = req.Summary
	record.Recommendations = req.Recommendations
	if err := s.records.Update(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session record")
	}
	return record, nil
}

// GetForBooking loads the record and documents for a booking, restricted
// to the booking's participants.
func (s *SessionService) GetForBooking(ctx context.Context, bookingID string, actor BookingActor) (*models.SessionRecord, []models.SessionDocument, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if !bookingParticipant(booking, actor) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "booking belongs to another user")
	}

	record, err := s.records.FindByBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "session record not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session record")
	}

	docs, err := s.records.ListDocuments(ctx, record.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return record, docs, nil
}

// AttachDocument stores an uploaded file against a session record. Size
// and MIME type are enforced before anything touches disk.
func (s *SessionService) AttachDocument(ctx context.Context, teacherProfileID, recordID, fileName, mimeType string, data []byte) (*models.SessionDocument, error) {
	record, err := s.loadRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.TeacherProfileID != teacherProfileID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "record belongs to another teacher")
	}

	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds the upload size limit")
	}
	if len(s.allowedMIMEs) > 0 && !s.allowedMIMEs[mimeType] {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %s is not allowed", mimeType))
	}

	relPath := filepath.Join("sessions", record.ID, uuid.NewString()+filepath.Ext(fileName))
	storedPath, err := s.storage.Save(relPath, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}

	doc := &models.SessionDocument{
		SessionRecordID: record.ID,
		FileName:        fileName,
		StoragePath:     storedPath,
		MimeType:        mimeType,
		SizeBytes:       int64(len(data)),
	}
	if err := s.records.AddDocument(ctx, doc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record document")
	}
	return doc, nil
}

// SignDocumentURL issues a time-limited download token for a document,
// restricted to the booking's participants.
func (s *SessionService) SignDocumentURL(ctx context.Context, documentID string, actor BookingActor) (*SignedDocumentURL, error) {
	doc, err := s.records.FindDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}

	record, err := s.loadRecord(ctx, doc.SessionRecordID)
	if err != nil {
		return nil, err
	}
	booking, err := s.bookings.FindByID(ctx, record.BookingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if !bookingParticipant(booking, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "document belongs to another user's booking")
	}

	token, expiresAt, err := s.signer.Generate(doc.ID, doc.StoragePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
	}
	return &SignedDocumentURL{Token: token, ExpiresAt: expiresAt}, nil
}

// OpenSignedDocument validates a download token and opens the file.
func (s *SessionService) OpenSignedDocument(ctx context.Context, token string) (*models.SessionDocument, *os.File, error) {
	fileID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}

	doc, err := s.records.FindDocument(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if doc.StoragePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "token does not match document")
	}

	file, err := s.storage.Open(doc.StoragePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
	}
	return doc, file, nil
}

func (s *SessionService) loadRecord(ctx context.Context, id string) (*models.SessionRecord, error) {
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session record")
	}
	return record, nil
}

func bookingParticipant(booking *models.Booking, actor BookingActor) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleParent:
		return booking.ParentID == actor.UserID
	case models.RoleTeacher:
		return booking.TeacherProfileID != nil && *booking.TeacherProfileID == actor.TeacherProfileID
	case models.RoleCenter:
		return booking.CenterID != nil && *booking.CenterID == actor.CenterID
	default:
		return false
	}
}
