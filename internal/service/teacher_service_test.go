package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

type teacherProfileRepoStub struct {
	profiles map[string]*models.TeacherProfileDetail
	byUser   map[string]*models.TeacherProfileDetail
	verified map[string]bool
	created  *models.TeacherProfile
	err      error
}

func newTeacherProfileRepoStub() *teacherProfileRepoStub {
	return &teacherProfileRepoStub{
		profiles: make(map[string]*models.TeacherProfileDetail),
		byUser:   make(map[string]*models.TeacherProfileDetail),
		verified: make(map[string]bool),
	}
}

func (s *teacherProfileRepoStub) add(detail *models.TeacherProfileDetail) {
	s.profiles[detail.ID] = detail
	s.byUser[detail.UserID] = detail
}

func (s *teacherProfileRepoStub) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherProfileDetail, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	var out []models.TeacherProfileDetail
	for _, p := range s.profiles {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (s *teacherProfileRepoStub) FindByID(ctx context.Context, id string) (*models.TeacherProfileDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.profiles[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (s *teacherProfileRepoStub) FindByUserID(ctx context.Context, userID string) (*models.TeacherProfileDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.byUser[userID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (s *teacherProfileRepoStub) Create(ctx context.Context, profile *models.TeacherProfile) error {
	if s.err != nil {
		return s.err
	}
	profile.ID = "tp-new"
	s.created = profile
	return nil
}

func (s *teacherProfileRepoStub) Update(ctx context.Context, profile *models.TeacherProfile) error {
	return s.err
}

func (s *teacherProfileRepoStub) SetVerified(ctx context.Context, id string, verified bool) error {
	if s.err != nil {
		return s.err
	}
	s.verified[id] = verified
	return nil
}

func (s *teacherProfileRepoStub) Deactivate(ctx context.Context, id string) error {
	return s.err
}

type teacherRatingRepoStub struct {
	summary *models.RatingSummary
	err     error
}

func (s *teacherRatingRepoStub) TeacherRating(ctx context.Context, teacherProfileID string) (*models.RatingSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

func teacherDetail() *models.TeacherProfileDetail {
	return &models.TeacherProfileDetail{
		TeacherProfile: models.TeacherProfile{
			ID:         "tp-1",
			UserID:     "u-1",
			HourlyRate: 200,
			City:       "Cairo",
			Verified:   true,
			Active:     true,
		},
		FullName: "Sara Fawzy",
		Email:    "sara@example.com",
	}
}

func profileRequest() models.TeacherProfileRequest {
	return models.TeacherProfileRequest{HourlyRate: 200, YearsExperience: 4, City: "Cairo"}
}

func TestTeacherServiceGetWithRating(t *testing.T) {
	repo := newTeacherProfileRepoStub()
	repo.add(teacherDetail())
	ratings := &teacherRatingRepoStub{summary: &models.RatingSummary{Average: 4.5, Count: 12}}
	service := NewTeacherService(repo, ratings, &auditLoggerStub{}, validator.New(), nil)

	profile, rating, err := service.Get(context.Background(), "tp-1")
	require.NoError(t, err)
	assert.Equal(t, "Sara Fawzy", profile.FullName)
	assert.InDelta(t, 4.5, rating.Average, 0.001)
	assert.Equal(t, 12, rating.Count)
}

func TestTeacherServiceGetDegradesOnRatingError(t *testing.T) {
	repo := newTeacherProfileRepoStub()
	repo.add(teacherDetail())
	ratings := &teacherRatingRepoStub{err: errors.New("db down")}
	service := NewTeacherService(repo, ratings, &auditLoggerStub{}, validator.New(), nil)

	_, rating, err := service.Get(context.Background(), "tp-1")
	require.NoError(t, err)
	assert.Equal(t, 0, rating.Count)
}

func TestTeacherServiceGetNotFound(t *testing.T) {
	service := NewTeacherService(newTeacherProfileRepoStub(), &teacherRatingRepoStub{}, &auditLoggerStub{}, validator.New(), nil)

	_, _, err := service.Get(context.Background(), "tp-9")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceCreateProfile(t *testing.T) {
	repo := newTeacherProfileRepoStub()
	service := NewTeacherService(repo, &teacherRatingRepoStub{}, &auditLoggerStub{}, validator.New(), nil)

	profile, err := service.CreateProfile(context.Background(), "u-2", profileRequest())
	require.NoError(t, err)
	assert.Equal(t, "tp-new", profile.ID)
	assert.False(t, profile.Verified, "new profiles start unverified")
	assert.True(t, profile.Active)
}

func TestTeacherServiceCreateProfileOncePerUser(t *testing.T) {
	repo := newTeacherProfileRepoStub()
	repo.add(teacherDetail())
	service := NewTeacherService(repo, &teacherRatingRepoStub{}, &auditLoggerStub{}, validator.New(), nil)

	_, err := service.CreateProfile(context.Background(), "u-1", profileRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceCreateProfileRejectsZeroRate(t *testing.T) {
	service := NewTeacherService(newTeacherProfileRepoStub(), &teacherRatingRepoStub{}, &auditLoggerStub{}, validator.New(), nil)

	req := profileRequest()
	req.HourlyRate = 0
	_, err := service.CreateProfile(context.Background(), "u-2", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceVerifyRecordsAudit(t *testing.T) {
	repo := newTeacherProfileRepoStub()
	repo.add(teacherDetail())
	audit := &auditLoggerStub{}
	service := NewTeacherService(repo, &teacherRatingRepoStub{}, audit, validator.New(), nil)

	require.NoError(t, service.Verify(context.Background(), "admin-1", "tp-1", true))
	assert.True(t, repo.verified["tp-1"])
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionTeacherVerify, audit.logs[0].Action)
}
