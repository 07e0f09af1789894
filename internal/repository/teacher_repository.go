package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/murafiq/murafiq-api/internal/models"
)

// TeacherRepository provides persistence for shadow teacher profiles.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a new teacher profile repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

const teacherDetailColumns = `tp.id, tp.user_id, tp.bio, tp.specialization, tp.hourly_rate, tp.years_experience, tp.city, tp.verified, tp.active, tp.created_at, tp.updated_at, u.full_name, u.email, u.phone`

// List returns teacher profiles matching the search filter with total count.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherProfileDetail, int, error) {
	base := `FROM teacher_profiles tp JOIN users u ON u.id = tp.user_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.full_name) LIKE $%d OR LOWER(tp.bio) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.City != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(tp.city) = LOWER($%d)", len(args)+1))
		args = append(args, filter.City)
	}
	if filter.Specialization != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(tp.specialization) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Specialization)
	}
	if filter.MinRate != nil {
		conditions = append(conditions, fmt.Sprintf("tp.hourly_rate >= $%d", len(args)+1))
		args = append(args, *filter.MinRate)
	}
	if filter.MaxRate != nil {
		conditions = append(conditions, fmt.Sprintf("tp.hourly_rate <= $%d", len(args)+1))
		args = append(args, *filter.MaxRate)
	}
	if filter.Verified != nil {
		conditions = append(conditions, fmt.Sprintf("tp.verified = $%d", len(args)+1))
		args = append(args, *filter.Verified)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("tp.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"hourly_rate":      "tp.hourly_rate",
		"years_experience": "tp.years_experience",
		"created_at":       "tp.created_at",
		"full_name":        "u.full_name",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "tp.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", teacherDetailColumns, base, column, order, size, offset)
	var profiles []models.TeacherProfileDetail
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teacher profiles: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teacher profiles: %w", err)
	}

	return profiles, total, nil
}

// FindByID loads a teacher profile with account details.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.TeacherProfileDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM teacher_profiles tp JOIN users u ON u.id = tp.user_id WHERE tp.id = $1`, teacherDetailColumns)
	var profile models.TeacherProfileDetail
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByUserID loads the profile owned by a user account.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*models.TeacherProfileDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM teacher_profiles tp JOIN users u ON u.id = tp.user_id WHERE tp.user_id = $1`, teacherDetailColumns)
	var profile models.TeacherProfileDetail
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Summaries returns compact teacher info for a set of profile IDs.
func (r *TeacherRepository) Summaries(ctx context.Context, ids []string) ([]models.TeacherSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT tp.id, u.full_name, tp.hourly_rate, tp.city FROM teacher_profiles tp JOIN users u ON u.id = tp.user_id WHERE tp.id IN (?) ORDER BY u.full_name ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build teacher summaries query: %w", err)
	}
	query = r.db.Rebind(query)
	var summaries []models.TeacherSummary
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("load teacher summaries: %w", err)
	}
	return summaries, nil
}

// Create stores a new teacher profile.
func (r *TeacherRepository) Create(ctx context.Context, profile *models.TeacherProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	const query = `INSERT INTO teacher_profiles (id, user_id, bio, specialization, hourly_rate, years_experience, city, verified, active, created_at, updated_at) VALUES (:id, :user_id, :bio, :specialization, :hourly_rate, :years_experience, :city, :verified, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create teacher profile: %w", err)
	}
	return nil
}

// Update modifies mutable profile fields.
func (r *TeacherRepository) Update(ctx context.Context, profile *models.TeacherProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teacher_profiles SET bio = :bio, specialization = :specialization, hourly_rate = :hourly_rate, years_experience = :years_experience, city = :city, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("update teacher profile: %w", err)
	}
	return nil
}

// SetVerified toggles the admin verification flag.
func (r *TeacherRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	const query = `UPDATE teacher_profiles SET verified = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, verified, time.Now().UTC()); err != nil {
		return fmt.Errorf("set teacher verified: %w", err)
	}
	return nil
}

// Deactivate soft deletes a profile.
func (r *TeacherRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE teacher_profiles SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate teacher profile: %w", err)
	}
	return nil
}

// HourlyRate returns the current rate used to price direct bookings.
func (r *TeacherRepository) HourlyRate(ctx context.Context, id string) (float64, error) {
	const query = `SELECT hourly_rate FROM teacher_profiles WHERE id = $1`
	var rate float64
	if err := r.db.GetContext(ctx, &rate, query, id); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("load hourly rate: %w", err)
	}
	return rate, nil
}
