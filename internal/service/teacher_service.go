package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

type teacherProfileRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherProfileDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.TeacherProfileDetail, error)
	FindByUserID(ctx context.Context, userID string) (*models.TeacherProfileDetail, error)
	Create(ctx context.Context, profile *models.TeacherProfile) error
	Update(ctx context.Context, profile *models.TeacherProfile) error
	SetVerified(ctx context.Context, id string, verified bool) error
	Deactivate(ctx context.Context, id string) error
}

type teacherRatingRepository interface {
	TeacherRating(ctx context.Context, teacherProfileID string) (*models.RatingSummary, error)
}

type teacherAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// TeacherService manages shadow teacher marketplace profiles.
type TeacherService struct {
	profiles  teacherProfileRepository
	ratings   teacherRatingRepository
	audit     teacherAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(profiles teacherProfileRepository, ratings teacherRatingRepository, audit teacherAuditRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TeacherService{profiles: profiles, ratings: ratings, audit: audit, validator: validate, logger: logger}
}

// Browse lists teacher profiles for the marketplace. Unverified and
// inactive profiles are excluded unless the filter says otherwise.
func (s *TeacherService) Browse(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherProfileDetail, int, error) {
	profiles, total, err := s.profiles.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher profiles")
	}
	return profiles, total, nil
}

// Get loads one teacher profile with its rating summary.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.TeacherProfileDetail, *models.RatingSummary, error) {
	profile, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	rating, err := s.ratings.TeacherRating(ctx, id)
	if err != nil {
		s.logger.Warn("failed to load teacher rating", zap.Error(err), zap.String("teacher_profile_id", id))
		rating = &models.RatingSummary{}
	}
	return profile, rating, nil
}

// GetByUser loads the profile owned by a user account.
func (s *TeacherService) GetByUser(ctx context.Context, userID string) (*models.TeacherProfileDetail, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher profile")
	}
	return profile, nil
}

// CreateProfile creates the marketplace profile for a teacher account.
// One profile per user; new profiles start unverified.
func (s *TeacherService) CreateProfile(ctx context.Context, userID string, req models.TeacherProfileRequest) (*models.TeacherProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	if _, err := s.profiles.FindByUserID(ctx, userID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "profile already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing profile")
	}

	profile := &models.TeacherProfile{
		UserID:          userID,
		Bio:             req.Bio,
		Specialization:  req.Specialization,
		HourlyRate:      req.HourlyRate,
		YearsExperience: req.YearsExperience,
		City:            req.City,
		Verified:        false,
		Active:          true,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher profile")
	}
	return profile, nil
}

// UpdateProfile modifies the caller's own profile.
func (s *TeacherService) UpdateProfile(ctx context.Context, userID string, req models.TeacherProfileRequest) (*models.TeacherProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	detail, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher profile")
	}

	profile := detail.TeacherProfile
	profile.Bio = req.Bio
	profile.Specialization = req.Specialization
	profile.HourlyRate = req.HourlyRate
	profile.YearsExperience = req.YearsExperience
	profile.City = req.City
	if err := s.profiles.Update(ctx, &profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher profile")
	}
	return &profile, nil
}

// Verify toggles the admin verification flag on a profile.
func (s *TeacherService) Verify(ctx context.Context, adminID, profileID string, verified bool) error {
	if _, err := s.profiles.FindByID(ctx, profileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if err := s.profiles.SetVerified(ctx, profileID, verified); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update verification")
	}
	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &adminID,
			Action:     models.AuditActionTeacherVerify,
			Resource:   "teacher_profile",
			ResourceID: &profileID,
			NewValues:  []byte(fmt.Sprintf(`{"verified":%t}`, verified)),
		}); err != nil {
			s.logger.Warn("failed to record verification audit log", zap.Error(err))
		}
	}
	return nil
}

// Deactivate soft deletes a profile. Existing bookings are untouched.
func (s *TeacherService) Deactivate(ctx context.Context, profileID string) error {
	if err := s.profiles.Deactivate(ctx, profileID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate teacher profile")
	}
	return nil
}
