package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/murafiq/murafiq-api/internal/models"
)

// ChildRepository persists parent-managed child profiles.
type ChildRepository struct {
	db *sqlx.DB
}

// NewChildRepository creates a new child repository.
func NewChildRepository(db *sqlx.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

const childColumns = `id, parent_id, full_name, birth_date, diagnosis, notes, active, created_at, updated_at`

// FindByID loads a child profile by id.
func (r *ChildRepository) FindByID(ctx context.Context, id string) (*models.Child, error) {
	query := fmt.Sprintf(`SELECT %s FROM children WHERE id = $1`, childColumns)
	var child models.Child
	if err := r.db.GetContext(ctx, &child, query, id); err != nil {
		return nil, err
	}
	return &child, nil
}

// ListByParent returns a parent's active child profiles.
func (r *ChildRepository) ListByParent(ctx context.Context, parentID string) ([]models.Child, error) {
	query := fmt.Sprintf(`SELECT %s FROM children WHERE parent_id = $1 AND active = TRUE ORDER BY full_name ASC`, childColumns)
	var children []models.Child
	if err := r.db.SelectContext(ctx, &children, query, parentID); err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return children, nil
}

// Create stores a new child profile.
func (r *ChildRepository) Create(ctx context.Context, child *models.Child) error {
	if child.ID == "" {
		child.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if child.CreatedAt.IsZero() {
		child.CreatedAt = now
	}
	child.UpdatedAt = now

	const query = `INSERT INTO children (id, parent_id, full_name, birth_date, diagnosis, notes, active, created_at, updated_at) VALUES (:id, :parent_id, :full_name, :birth_date, :diagnosis, :notes, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, child); err != nil {
		return fmt.Errorf("create child: %w", err)
	}
	return nil
}

// Update modifies a child profile.
func (r *ChildRepository) Update(ctx context.Context, child *models.Child) error {
	child.UpdatedAt = time.Now().UTC()
	const query = `UPDATE children SET full_name = :full_name, birth_date = :birth_date, diagnosis = :diagnosis, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, child); err != nil {
		return fmt.Errorf("update child: %w", err)
	}
	return nil
}

// Deactivate soft deletes a child profile.
func (r *ChildRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE children SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate child: %w", err)
	}
	return nil
}
