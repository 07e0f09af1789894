package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

type childRepository interface {
	FindByID(ctx context.Context, id string) (*models.Child, error)
	ListByParent(ctx context.Context, parentID string) ([]models.Child, error)
	Create(ctx context.Context, child *models.Child) error
	Update(ctx context.Context, child *models.Child) error
	Deactivate(ctx context.Context, id string) error
}

// ChildService manages parent-owned child profiles.
type ChildService struct {
	repo      childRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChildService constructs a ChildService.
func NewChildService(repo childRepository, validate *validator.Validate, logger *zap.Logger) *ChildService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ChildService{repo: repo, validator: validate, logger: logger}
}

// List returns the caller's child profiles.
func (s *ChildService) List(ctx context.Context, parentID string) ([]models.Child, error) {
	children, err := s.repo.ListByParent(ctx, parentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list children")
	}
	return children, nil
}

// Get loads a child profile, restricted to its parent.
func (s *ChildService) Get(ctx context.Context, parentID, id string) (*models.Child, error) {
	child, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if child.ParentID != parentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "child belongs to another parent")
	}
	return child, nil
}

// Create adds a child profile for the caller.
func (s *ChildService) Create(ctx context.Context, parentID string, req models.ChildRequest) (*models.Child, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid child payload")
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid birth date")
	}

	child := &models.Child{
		ParentID:  parentID,
		FullName:  req.FullName,
		BirthDate: birthDate,
		Diagnosis: req.Diagnosis,
		Notes:     req.Notes,
		Active:    true,
	}
	if err := s.repo.Create(ctx, child); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create child")
	}
	return child, nil
}

// Update modifies a child profile after an ownership check.
func (s *ChildService) Update(ctx context.Context, parentID, id string, req models.ChildRequest) (*models.Child, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid child payload")
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid birth date")
	}

	child, err := s.Get(ctx, parentID, id)
	if err != nil {
		return nil, err
	}

	child.FullName = req.FullName
	child.BirthDate = birthDate
	child.Diagnosis = req.Diagnosis
	child.Notes = req.Notes
	if err := s.repo.Update(ctx, child); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update child")
	}
	return child, nil
}

// Remove soft deletes a child profile after an ownership check.
func (s *ChildService) Remove(ctx context.Context, parentID, id string) error {
	if _, err := s.Get(ctx, parentID, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove child")
	}
	return nil
}

func (s *ChildService) load(ctx context.Context, id string) (*models.Child, error) {
	child, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	return child, nil
}
