package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/murafiq/murafiq-api/internal/models"
)

// ReviewRepository persists booking reviews and rating aggregates.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new review repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `id, booking_id, parent_id, teacher_profile_id, center_id, rating, comment, created_at`

// Create stores a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reviews (id, booking_id, parent_id, teacher_profile_id, center_id, rating, comment, created_at) VALUES (:id, :booking_id, :parent_id, :teacher_profile_id, :center_id, :rating, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

// ExistsForBooking reports whether a booking is already reviewed.
func (r *ReviewRepository) ExistsForBooking(ctx context.Context, bookingID string) (bool, error) {
	const query = `SELECT 1 FROM reviews WHERE booking_id = $1 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, bookingID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check review for booking: %w", err)
	}
	return true, nil
}

// ListByTeacher returns reviews left for a teacher, newest first.
func (r *ReviewRepository) ListByTeacher(ctx context.Context, teacherProfileID string) ([]models.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE teacher_profile_id = $1 ORDER BY created_at DESC`, reviewColumns)
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, teacherProfileID); err != nil {
		return nil, fmt.Errorf("list teacher reviews: %w", err)
	}
	return reviews, nil
}

// ListByCenter returns reviews left for a center, newest first.
func (r *ReviewRepository) ListByCenter(ctx context.Context, centerID string) ([]models.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE center_id = $1 ORDER BY created_at DESC`, reviewColumns)
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, centerID); err != nil {
		return nil, fmt.Errorf("list center reviews: %w", err)
	}
	return reviews, nil
}

// TeacherRating aggregates a teacher's review scores.
func (r *ReviewRepository) TeacherRating(ctx context.Context, teacherProfileID string) (*models.RatingSummary, error) {
	const query = `SELECT COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count FROM reviews WHERE teacher_profile_id = $1`
	var summary models.RatingSummary
	if err := r.db.GetContext(ctx, &summary, query, teacherProfileID); err != nil {
		return nil, fmt.Errorf("aggregate teacher rating: %w", err)
	}
	return &summary, nil
}

// CenterRating aggregates a center's review scores.
func (r *ReviewRepository) CenterRating(ctx context.Context, centerID string) (*models.RatingSummary, error) {
	const query = `SELECT COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count FROM reviews WHERE center_id = $1`
	var summary models.RatingSummary
	if err := r.db.GetContext(ctx, &summary, query, centerID); err != nil {
		return nil, fmt.Errorf("aggregate center rating: %w", err)
	}
	return &summary, nil
}
