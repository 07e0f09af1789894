package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

type centerRepository interface {
	List(ctx context.Context, filter models.CenterFilter) ([]models.Center, int, error)
	FindByID(ctx context.Context, id string) (*models.Center, error)
	FindByUserID(ctx context.Context, userID string) (*models.Center, error)
	Create(ctx context.Context, center *models.Center) error
	Update(ctx context.Context, center *models.Center) error
	SetVerified(ctx context.Context, id string, verified bool) error
	AddTeacher(ctx context.Context, link *models.CenterTeacher) error
	SetTeacherActive(ctx context.Context, centerID, teacherProfileID string, active bool) error
	ListTeachers(ctx context.Context, centerID string) ([]models.CenterTeacher, error)
	IsTeacherActive(ctx context.Context, centerID, teacherProfileID string) (bool, error)
}

type centerOfferingRepository interface {
	FindByID(ctx context.Context, id string) (*models.CenterService, error)
	ListByCenter(ctx context.Context, centerID string, activeOnly bool) ([]models.CenterService, error)
	Create(ctx context.Context, svc *models.CenterService) error
	Update(ctx context.Context, svc *models.CenterService) error
	Deactivate(ctx context.Context, id string) error
	CreateAssignment(ctx context.Context, assignment *models.TeacherServiceAssignment) error
	DeactivateAssignment(ctx context.Context, serviceID, teacherProfileID string) error
	ListActiveAssignments(ctx context.Context, serviceID string) ([]models.TeacherServiceAssignment, error)
}

type centerRatingRepository interface {
	CenterRating(ctx context.Context, centerID string) (*models.RatingSummary, error)
}

// CenterService manages therapy center profiles, rosters and offerings.
type CenterService struct {
	centers   centerRepository
	offerings centerOfferingRepository
	ratings   centerRatingRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCenterService constructs a CenterService.
func NewCenterService(centers centerRepository, offerings centerOfferingRepository, ratings centerRatingRepository, validate *validator.Validate, logger *zap.Logger) *CenterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CenterService{centers: centers, offerings: offerings, ratings: ratings, validator: validate, logger: logger}
}

// Browse lists centers for the marketplace.
func (s *CenterService) Browse(ctx context.Context, filter models.CenterFilter) ([]models.Center, int, error) {
	centers, total, err := s.centers.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list centers")
	}
	return centers, total, nil
}

// Get loads one center with its rating summary.
func (s *CenterService) Get(ctx context.Context, id string) (*models.Center, *models.RatingSummary, error) {
	center, err := s.loadCenter(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rating, err := s.ratings.CenterRating(ctx, id)
	if err != nil {
		s.logger.Warn("failed to load center rating", zap.Error(err), zap.String("center_id", id))
		rating = &models.RatingSummary{}
	}
	return center, rating, nil
}

// GetByUser loads the center owned by a user account.
func (s *CenterService) GetByUser(ctx context.Context, userID string) (*models.Center, error) {
	center, err := s.centers.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "center profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load center profile")
	}
	return center, nil
}

// CreateProfile creates the center profile for a center account. One
// profile per user; new centers start unverified.
func (s *CenterService) CreateProfile(ctx context.Context, userID string, req models.CenterRequest) (*models.Center, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid center payload")
	}

	if _, err := s.centers.FindByUserID(ctx, userID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "center profile already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing center")
	}

	center := &models.Center{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		City:        req.City,
		Phone:       req.Phone,
		Verified:    false,
		Active:      true,
	}
	if err := s.centers.Create(ctx, center); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create center")
	}
	return center, nil
}

// UpdateProfile modifies the caller's own center.
func (s *CenterService) UpdateProfile(ctx context.Context, userID string, req models.CenterRequest) (*models.Center, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid center payload")
	}

	center, err := s.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	center.Name = req.Name
	center.Description = req.Description
	center.Address = req.Address
	center.City = req.City
	center.Phone = req.Phone
	if err := s.centers.Update(ctx, center); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update center")
	}
	return center, nil
}

// Verify toggles the admin verification flag on a center.
func (s *CenterService) Verify(ctx context.Context, id string, verified bool) error {
	if _, err := s.loadCenter(ctx, id); err != nil {
		return err
	}
	if err := s.centers.SetVerified(ctx, id, verified); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update verification")
	}
	return nil
}

// AddTeacher puts a teacher on the center's roster.
func (s *CenterService) AddTeacher(ctx context.Context, centerID string, req models.RosterTeacherRequest) (*models.CenterTeacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster payload")
	}

	active, err := s.centers.IsTeacherActive(ctx, centerID, req.TeacherProfileID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check roster")
	}
	if active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "teacher is already on the roster")
	}

	link := &models.CenterTeacher{
		CenterID:         centerID,
		TeacherProfileID: req.TeacherProfileID,
		Active:           true,
	}
	if err := s.centers.AddTeacher(ctx, link); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add teacher to roster")
	}
	return link, nil
}

// RemoveTeacher deactivates a roster entry. Historic bookings keep it.
func (s *CenterService) RemoveTeacher(ctx context.Context, centerID, teacherProfileID string) error {
	if err := s.centers.SetTeacherActive(ctx, centerID, teacherProfileID, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove teacher from roster")
	}
	return nil
}

// Roster lists a center's teacher links.
func (s *CenterService) Roster(ctx context.Context, centerID string) ([]models.CenterTeacher, error) {
	roster, err := s.centers.ListTeachers(ctx, centerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roster")
	}
	return roster, nil
}

// ListServices returns a center's offerings. Public callers see only
// active ones.
func (s *CenterService) ListServices(ctx context.Context, centerID string, activeOnly bool) ([]models.CenterService, error) {
	services, err := s.offerings.ListByCenter(ctx, centerID, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list services")
	}
	return services, nil
}

// CreateOffering adds a service offering to a center.
func (s *CenterService) CreateOffering(ctx context.Context, centerID string, req models.CenterServiceRequest) (*models.CenterService, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid service payload")
	}

	svc := &models.CenterService{
		CenterID:        centerID,
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		Active:          true,
	}
	if err := s.offerings.Create(ctx, svc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create service")
	}
	return svc, nil
}

// UpdateOffering modifies a service after an ownership check.
func (s *CenterService) UpdateOffering(ctx context.Context, centerID, serviceID string, req models.CenterServiceRequest) (*models.CenterService, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid service payload")
	}

	svc, err := s.loadOffering(ctx, centerID, serviceID)
	if err != nil {
		return nil, err
	}

	svc.Name = req.Name
	svc.Description = req.Description
	svc.Price = req.Price
	svc.DurationMinutes = req.DurationMinutes
	if err := s.offerings.Update(ctx, svc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update service")
	}
	return svc, nil
}

// DeactivateOffering soft deletes a service.
func (s *CenterService) DeactivateOffering(ctx context.Context, centerID, serviceID string) error {
	if _, err := s.loadOffering(ctx, centerID, serviceID); err != nil {
		return err
	}
	if err := s.offerings.Deactivate(ctx, serviceID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate service")
	}
	return nil
}

// AssignTeacherToService staffs a service with a rostered teacher.
func (s *CenterService) AssignTeacherToService(ctx context.Context, centerID, serviceID string, req models.RosterTeacherRequest) (*models.TeacherServiceAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	if _, err := s.loadOffering(ctx, centerID, serviceID); err != nil {
		return nil, err
	}

	rostered, err := s.centers.IsTeacherActive(ctx, centerID, req.TeacherProfileID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check roster")
	}
	if !rostered {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is not on the center roster")
	}

	existing, err := s.offerings.ListActiveAssignments(ctx, serviceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	for _, a := range existing {
		if a.TeacherProfileID == req.TeacherProfileID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "teacher is already assigned to this service")
		}
	}

	assignment := &models.TeacherServiceAssignment{
		ServiceID:        serviceID,
		TeacherProfileID: req.TeacherProfileID,
		Active:           true,
	}
	if err := s.offerings.CreateAssignment(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign teacher")
	}
	return assignment, nil
}

// UnassignTeacherFromService deactivates a staffing link.
func (s *CenterService) UnassignTeacherFromService(ctx context.Context, centerID, serviceID, teacherProfileID string) error {
	if _, err := s.loadOffering(ctx, centerID, serviceID); err != nil {
		return err
	}
	if err := s.offerings.DeactivateAssignment(ctx, serviceID, teacherProfileID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign teacher")
	}
	return nil
}

func (s *CenterService) loadCenter(ctx context.Context, id string) (*models.Center, error) {
	center, err := s.centers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "center not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load center")
	}
	return center, nil
}

func (s *CenterService) loadOffering(ctx context.Context, centerID, serviceID string) (*models.CenterService, error) {
	svc, err := s.offerings.FindByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service")
	}
	if svc.CenterID != centerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "service belongs to another center")
	}
	return svc, nil
}
