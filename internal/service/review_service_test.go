package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

type reviewRepoStub struct {
	existing map[string]bool
	created  *models.Review
	err      error
}

func (s *reviewRepoStub) Create(ctx context.Context, review *models.Review) error {
	if s.err != nil {
		return s.err
	}
	review.ID = "rv-new"
	s.created = review
	return nil
}

func (s *reviewRepoStub) ExistsForBooking(ctx context.Context, bookingID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.existing[bookingID], nil
}

func (s *reviewRepoStub) ListByTeacher(ctx context.Context, teacherProfileID string) ([]models.Review, error) {
	return nil, s.err
}

func (s *reviewRepoStub) ListByCenter(ctx context.Context, centerID string) ([]models.Review, error) {
	return nil, s.err
}

type reviewBookingStub struct {
	booking *models.Booking
	err     error
}

func (s *reviewBookingStub) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.booking == nil {
		return nil, sql.ErrNoRows
	}
	return s.booking, nil
}

func reviewRequest() models.CreateReviewRequest {
	return models.CreateReviewRequest{BookingID: "bk-1", Rating: 5}
}

func TestReviewServiceCreate(t *testing.T) {
	reviews := &reviewRepoStub{}
	booking := storedBooking(models.BookingCompleted)
	service := NewReviewService(reviews, &reviewBookingStub{booking: booking}, validator.New(), nil)

	review, err := service.Create(context.Background(), "parent-1", reviewRequest())
	require.NoError(t, err)
	assert.Equal(t, "rv-new", review.ID)
	assert.Equal(t, booking.TeacherProfileID, review.TeacherProfileID)
	assert.Equal(t, booking.CenterID, review.CenterID)
	assert.Equal(t, 5, review.Rating)
}

func TestReviewServiceCreateRequiresCompletedBooking(t *testing.T) {
	service := NewReviewService(&reviewRepoStub{}, &reviewBookingStub{booking: storedBooking(models.BookingConfirmed)}, validator.New(), nil)

	_, err := service.Create(context.Background(), "parent-1", reviewRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceCreateWrongParent(t *testing.T) {
	service := NewReviewService(&reviewRepoStub{}, &reviewBookingStub{booking: storedBooking(models.BookingCompleted)}, validator.New(), nil)

	_, err := service.Create(context.Background(), "parent-2", reviewRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceCreateOncePerBooking(t *testing.T) {
	reviews := &reviewRepoStub{existing: map[string]bool{"bk-1": true}}
	service := NewReviewService(reviews, &reviewBookingStub{booking: storedBooking(models.BookingCompleted)}, validator.New(), nil)

	_, err := service.Create(context.Background(), "parent-1", reviewRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestReviewServiceCreateRatingBounds(t *testing.T) {
	service := NewReviewService(&reviewRepoStub{}, &reviewBookingStub{booking: storedBooking(models.BookingCompleted)}, validator.New(), nil)

	req := reviewRequest()
	req.Rating = 6
	_, err := service.Create(context.Background(), "parent-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
