package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/murafiq/murafiq-api/internal/models"
)

// SessionRepository persists session records and their documents.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// FindByID loads a session record by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.SessionRecord, error) {
	const query = `SELECT id, booking_id, teacher_profile_id, summary, recommendations, created_at, updated_at FROM session_records WHERE id = $1`
	var record models.SessionRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByBooking loads the record attached to a booking.
func (r *SessionRepository) FindByBooking(ctx context.Context, bookingID string) (*models.SessionRecord, error) {
	const query = `SELECT id, booking_id, teacher_profile_id, summary, recommendations, created_at, updated_at FROM session_records WHERE booking_id = $1`
	var record models.SessionRecord
	if err := r.db.GetContext(ctx, &record, query, bookingID); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create stores a new session record.
func (r *SessionRepository) Create(ctx context.Context, record *models.SessionRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `INSERT INTO session_records (id, booking_id, teacher_profile_id, summary, recommendations, created_at, updated_at) VALUES (:id, :booking_id, :teacher_profile_id, :summary, :recommendations, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create session record: %w", err)
	}
	return nil
}

// Update modifies the notes of a session record.
func (r *SessionRepository) Update(ctx context.Context, record *models.SessionRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE session_records SET summary = :summary, recommendations = :recommendations, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("update session record: %w", err)
	}
	return nil
}

// AddDocument stores document metadata for a session record.
func (r *SessionRepository) AddDocument(ctx context.Context, doc *models.SessionDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO session_documents (id, session_record_id, file_name, storage_path, mime_type, size_bytes, uploaded_at) VALUES (:id, :session_record_id, :file_name, :storage_path, :mime_type, :size_bytes, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("add session document: %w", err)
	}
	return nil
}

// ListDocuments returns the documents attached to a session record.
func (r *SessionRepository) ListDocuments(ctx context.Context, sessionRecordID string) ([]models.SessionDocument, error) {
	const query = `SELECT id, session_record_id, file_name, storage_path, mime_type, size_bytes, uploaded_at FROM session_documents WHERE session_record_id = $1 ORDER BY uploaded_at ASC`
	var docs []models.SessionDocument
	if err := r.db.SelectContext(ctx, &docs, query, sessionRecordID); err != nil {
		return nil, fmt.Errorf("list session documents: %w", err)
	}
	return docs, nil
}

// FindDocument loads a single document by id.
func (r *SessionRepository) FindDocument(ctx context.Context, id string) (*models.SessionDocument, error) {
	const query = `SELECT id, session_record_id, file_name, storage_path, mime_type, size_bytes, uploaded_at FROM session_documents WHERE id = $1`
	var doc models.SessionDocument
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}
