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

// CenterRepository provides persistence for therapy centers and their
// teacher roster.
type CenterRepository struct {
	db *sqlx.DB
}

// NewCenterRepository creates a new center repository.
func NewCenterRepository(db *sqlx.DB) *CenterRepository {
	return &CenterRepository{db: db}
}

const centerColumns = `id, user_id, name, description, address, city, phone, verified, active, created_at, updated_at`

// List returns centers matching the filter with total count.
func (r *CenterRepository) List(ctx context.Context, filter models.CenterFilter) ([]models.Center, int, error) {
	base := "FROM centers WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(description) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.City != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(city) = LOWER($%d)", len(args)+1))
		args = append(args, filter.City)
	}
	if filter.Verified != nil {
		conditions = append(conditions, fmt.Sprintf("verified = $%d", len(args)+1))
		args = append(args, *filter.Verified)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"city":       true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", centerColumns, base, sortBy, order, size, offset)
	var centers []models.Center
	if err := r.db.SelectContext(ctx, &centers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list centers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count centers: %w", err)
	}

	return centers, total, nil
}

// FindByID loads a center by id.
func (r *CenterRepository) FindByID(ctx context.Context, id string) (*models.Center, error) {
	query := fmt.Sprintf(`SELECT %s FROM centers WHERE id = $1`, centerColumns)
	var center models.Center
	if err := r.db.GetContext(ctx, &center, query, id); err != nil {
		return nil, err
	}
	return &center, nil
}

// FindByUserID loads the center owned by a user account.
func (r *CenterRepository) FindByUserID(ctx context.Context, userID string) (*models.Center, error) {
	query := fmt.Sprintf(`SELECT %s FROM centers WHERE user_id = $1`, centerColumns)
	var center models.Center
	if err := r.db.GetContext(ctx, &center, query, userID); err != nil {
		return nil, err
	}
	return &center, nil
}

// Create stores a new center.
func (r *CenterRepository) Create(ctx context.Context, center *models.Center) error {
	if center.ID == "" {
		center.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if center.CreatedAt.IsZero() {
		center.CreatedAt = now
	}
	center.UpdatedAt = now

	const query = `INSERT INTO centers (id, user_id, name, description, address, city, phone, verified, active, created_at, updated_at) VALUES (:id, :user_id, :name, :description, :address, :city, :phone, :verified, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, center); err != nil {
		return fmt.Errorf("create center: %w", err)
	}
	return nil
}

// Update modifies mutable center fields.
func (r *CenterRepository) Update(ctx context.Context, center *models.Center) error {
	center.UpdatedAt = time.Now().UTC()
	const query = `UPDATE centers SET name = :name, description = :description, address = :address, city = :city, phone = :phone, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, center); err != nil {
		return fmt.Errorf("update center: %w", err)
	}
	return nil
}

// SetVerified toggles the admin verification flag.
func (r *CenterRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	const query = `UPDATE centers SET verified = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, verified, time.Now().UTC()); err != nil {
		return fmt.Errorf("set center verified: %w", err)
	}
	return nil
}

// AddTeacher attaches a teacher to the center roster.
func (r *CenterRepository) AddTeacher(ctx context.Context, link *models.CenterTeacher) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO center_teachers (id, center_id, teacher_profile_id, active, created_at) VALUES (:id, :center_id, :teacher_profile_id, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		return fmt.Errorf("add center teacher: %w", err)
	}
	return nil
}

// SetTeacherActive toggles roster membership without deleting history.
func (r *CenterRepository) SetTeacherActive(ctx context.Context, centerID, teacherProfileID string, active bool) error {
	const query = `UPDATE center_teachers SET active = $3 WHERE center_id = $1 AND teacher_profile_id = $2`
	if _, err := r.db.ExecContext(ctx, query, centerID, teacherProfileID, active); err != nil {
		return fmt.Errorf("set center teacher active: %w", err)
	}
	return nil
}

// ListTeachers returns the center's roster.
func (r *CenterRepository) ListTeachers(ctx context.Context, centerID string) ([]models.CenterTeacher, error) {
	const query = `SELECT id, center_id, teacher_profile_id, active, created_at FROM center_teachers WHERE center_id = $1 ORDER BY created_at ASC`
	var roster []models.CenterTeacher
	if err := r.db.SelectContext(ctx, &roster, query, centerID); err != nil {
		return nil, fmt.Errorf("list center teachers: %w", err)
	}
	return roster, nil
}

// IsTeacherActive reports whether the teacher is an active roster member.
func (r *CenterRepository) IsTeacherActive(ctx context.Context, centerID, teacherProfileID string) (bool, error) {
	const query = `SELECT 1 FROM center_teachers WHERE center_id = $1 AND teacher_profile_id = $2 AND active = TRUE LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, centerID, teacherProfileID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check center teacher: %w", err)
	}
	return true, nil
}
