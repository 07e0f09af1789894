package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/murafiq/murafiq-api/internal/models"
)

// AvailabilityRepository persists recurring weekly availability windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// FindByID loads a window by id.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.TeacherAvailability, error) {
	const query = `SELECT id, teacher_profile_id, day_of_week, start_time, end_time, created_at, updated_at FROM teacher_availability WHERE id = $1`
	var window models.TeacherAvailability
	if err := r.db.GetContext(ctx, &window, query, id); err != nil {
		return nil, err
	}
	return &window, nil
}

// ListByTeacher returns all windows for a teacher ordered by day and start.
func (r *AvailabilityRepository) ListByTeacher(ctx context.Context, teacherProfileID string) ([]models.TeacherAvailability, error) {
	const query = `SELECT id, teacher_profile_id, day_of_week, start_time, end_time, created_at, updated_at FROM teacher_availability WHERE teacher_profile_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var windows []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &windows, query, teacherProfileID); err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	return windows, nil
}

// ListByTeacherAndDay returns a teacher's windows for one weekday ordered
// by start time.
func (r *AvailabilityRepository) ListByTeacherAndDay(ctx context.Context, teacherProfileID string, dayOfWeek int) ([]models.TeacherAvailability, error) {
	const query = `SELECT id, teacher_profile_id, day_of_week, start_time, end_time, created_at, updated_at FROM teacher_availability WHERE teacher_profile_id = $1 AND day_of_week = $2 ORDER BY start_time ASC`
	var windows []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &windows, query, teacherProfileID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("list availability windows for day: %w", err)
	}
	return windows, nil
}

// ListByTeachersAndDay returns windows for a set of teachers on one
// weekday, ordered by start time then teacher.
func (r *AvailabilityRepository) ListByTeachersAndDay(ctx context.Context, teacherProfileIDs []string, dayOfWeek int) ([]models.TeacherAvailability, error) {
	if len(teacherProfileIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, teacher_profile_id, day_of_week, start_time, end_time, created_at, updated_at FROM teacher_availability WHERE teacher_profile_id IN (?) AND day_of_week = ? ORDER BY start_time ASC, teacher_profile_id ASC`, teacherProfileIDs, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("build availability query: %w", err)
	}
	query = r.db.Rebind(query)
	var windows []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &windows, query, args...); err != nil {
		return nil, fmt.Errorf("list availability windows for teachers: %w", err)
	}
	return windows, nil
}

// Create stores a new availability window.
func (r *AvailabilityRepository) Create(ctx context.Context, window *models.TeacherAvailability) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if window.CreatedAt.IsZero() {
		window.CreatedAt = now
	}
	window.UpdatedAt = now

	const query = `INSERT INTO teacher_availability (id, teacher_profile_id, day_of_week, start_time, end_time, created_at, updated_at) VALUES (:id, :teacher_profile_id, :day_of_week, :start_time, :end_time, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("create availability window: %w", err)
	}
	return nil
}

// Update modifies an existing window.
func (r *AvailabilityRepository) Update(ctx context.Context, window *models.TeacherAvailability) error {
	window.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teacher_availability SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("update availability window: %w", err)
	}
	return nil
}

// Delete removes a window by id.
func (r *AvailabilityRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM teacher_availability WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete availability window: %w", err)
	}
	return nil
}
