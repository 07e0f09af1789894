package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/murafiq/murafiq-api/internal/models"
)

// CenterServiceRepository persists center service offerings and their
// teacher assignments.
type CenterServiceRepository struct {
	db *sqlx.DB
}

// NewCenterServiceRepository creates a new center service repository.
func NewCenterServiceRepository(db *sqlx.DB) *CenterServiceRepository {
	return &CenterServiceRepository{db: db}
}

const serviceColumns = `id, center_id, name, description, price, duration_minutes, active, created_at, updated_at`

// FindByID loads a service by id.
func (r *CenterServiceRepository) FindByID(ctx context.Context, id string) (*models.CenterService, error) {
	query := fmt.Sprintf(`SELECT %s FROM center_services WHERE id = $1`, serviceColumns)
	var svc models.CenterService
	if err := r.db.GetContext(ctx, &svc, query, id); err != nil {
		return nil, err
	}
	return &svc, nil
}

// ListByCenter returns a center's services ordered by name.
func (r *CenterServiceRepository) ListByCenter(ctx context.Context, centerID string, activeOnly bool) ([]models.CenterService, error) {
	query := fmt.Sprintf(`SELECT %s FROM center_services WHERE center_id = $1`, serviceColumns)
	if activeOnly {
		query += " AND active = TRUE"
	}
	query += " ORDER BY name ASC"
	var services []models.CenterService
	if err := r.db.SelectContext(ctx, &services, query, centerID); err != nil {
		return nil, fmt.Errorf("list center services: %w", err)
	}
	return services, nil
}

// Create stores a new service offering.
func (r *CenterServiceRepository) Create(ctx context.Context, svc *models.CenterService) error {
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = now
	}
	svc.UpdatedAt = now

	const query = `INSERT INTO center_services (id, center_id, name, description, price, duration_minutes, active, created_at, updated_at) VALUES (:id, :center_id, :name, :description, :price, :duration_minutes, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, svc); err != nil {
		return fmt.Errorf("create center service: %w", err)
	}
	return nil
}

// Update modifies a service offering.
func (r *CenterServiceRepository) Update(ctx context.Context, svc *models.CenterService) error {
	svc.UpdatedAt = time.Now().UTC()
	const query = `UPDATE center_services SET name = :name, description = :description, price = :price, duration_minutes = :duration_minutes, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, svc); err != nil {
		return fmt.Errorf("update center service: %w", err)
	}
	return nil
}

// Deactivate soft deletes a service offering.
func (r *CenterServiceRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE center_services SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate center service: %w", err)
	}
	return nil
}

// CreateAssignment attaches a teacher to a service.
func (r *CenterServiceRepository) CreateAssignment(ctx context.Context, assignment *models.TeacherServiceAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO teacher_service_assignments (id, service_id, teacher_profile_id, active, created_at) VALUES (:id, :service_id, :teacher_profile_id, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create service assignment: %w", err)
	}
	return nil
}

// DeactivateAssignment removes a teacher from a service without deleting
// the historic link.
func (r *CenterServiceRepository) DeactivateAssignment(ctx context.Context, serviceID, teacherProfileID string) error {
	const query = `UPDATE teacher_service_assignments SET active = FALSE WHERE service_id = $1 AND teacher_profile_id = $2`
	if _, err := r.db.ExecContext(ctx, query, serviceID, teacherProfileID); err != nil {
		return fmt.Errorf("deactivate service assignment: %w", err)
	}
	return nil
}

// ListActiveAssignments returns the teachers currently staffing a service.
func (r *CenterServiceRepository) ListActiveAssignments(ctx context.Context, serviceID string) ([]models.TeacherServiceAssignment, error) {
	const query = `SELECT id, service_id, teacher_profile_id, active, created_at FROM teacher_service_assignments WHERE service_id = $1 AND active = TRUE ORDER BY created_at ASC`
	var assignments []models.TeacherServiceAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, serviceID); err != nil {
		return nil, fmt.Errorf("list service assignments: %w", err)
	}
	return assignments, nil
}
