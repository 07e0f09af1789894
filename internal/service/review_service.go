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

type reviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	ExistsForBooking(ctx context.Context, bookingID string) (bool, error)
	ListByTeacher(ctx context.Context, teacherProfileID string) ([]models.Review, error)
	ListByCenter(ctx context.Context, centerID string) ([]models.Review, error)
}

type reviewBookingRepository interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
}

// ReviewService lets parents rate completed bookings.
type ReviewService struct {
	reviews   reviewRepository
	bookings  reviewBookingRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReviewService constructs a ReviewService.
func NewReviewService(reviews reviewRepository, bookings reviewBookingRepository, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReviewService{reviews: reviews, bookings: bookings, validator: validate, logger: logger}
}

// Create rates a booking. Only the booking's parent may review, only
// completed bookings qualify, and each booking takes one review.
func (s *ReviewService) Create(ctx context.Context, parentID string, req models.CreateReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	booking, err := s.bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if booking.ParentID != parentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking belongs to another parent")
	}
	if booking.Status != models.BookingCompleted {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only completed bookings can be reviewed")
	}

	exists, err := s.reviews.ExistsForBooking(ctx, req.BookingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing review")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "booking is already reviewed")
	}

	review := &models.Review{
		BookingID:        req.BookingID,
		ParentID:         parentID,
		TeacherProfileID: booking.TeacherProfileID,
		CenterID:         booking.CenterID,
		Rating:           req.Rating,
		Comment:          req.Comment,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review")
	}
	return review, nil
}

// ForTeacher lists reviews of a teacher.
func (s *ReviewService) ForTeacher(ctx context.Context, teacherProfileID string) ([]models.Review, error) {
	reviews, err := s.reviews.ListByTeacher(ctx, teacherProfileID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return reviews, nil
}

// ForCenter lists reviews of a center.
func (s *ReviewService) ForCenter(ctx context.Context, centerID string) ([]models.Review, error) {
	reviews, err := s.reviews.ListByCenter(ctx, centerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	return reviews, nil
}
