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

type userAccountRepoStub struct {
	users       map[string]*models.User
	deactivated []string
	revoked     []string
	logs        []*models.AuditLog
	err         error
}

func newUserAccountRepoStub() *userAccountRepoStub {
	return &userAccountRepoStub{users: make(map[string]*models.User)}
}

func (s *userAccountRepoStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	var out []models.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (s *userAccountRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userAccountRepoStub) Update(ctx context.Context, user *models.User) error {
	if s.err != nil {
		return s.err
	}
	s.users[user.ID] = user
	return nil
}

func (s *userAccountRepoStub) Deactivate(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	s.deactivated = append(s.deactivated, id)
	return nil
}

func (s *userAccountRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	s.revoked = append(s.revoked, userID)
	return nil
}

func (s *userAccountRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func TestUserServiceListScrubsPasswordHash(t *testing.T) {
	repo := newUserAccountRepoStub()
	repo.users["u-1"] = &models.User{ID: "u-1", Email: "a@example.com", PasswordHash: "hash", Role: models.RoleParent}
	service := NewUserService(repo, validator.New(), nil)

	users, total, err := service.List(context.Background(), models.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Empty(t, users[0].PasswordHash)
}

func TestUserServiceGetNotFound(t *testing.T) {
	service := NewUserService(newUserAccountRepoStub(), validator.New(), nil)

	_, err := service.Get(context.Background(), "u-9")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceUpdate(t *testing.T) {
	repo := newUserAccountRepoStub()
	repo.users["u-1"] = &models.User{ID: "u-1", FullName: "Old Name", Role: models.RoleParent}
	service := NewUserService(repo, validator.New(), nil)

	updated, err := service.Update(context.Background(), "admin-1", "u-1", UpdateUserRequest{FullName: "New Name"})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.FullName)
	require.Len(t, repo.logs, 1)
	assert.Equal(t, models.AuditActionUserUpdate, repo.logs[0].Action)
}

func TestUserServiceDeactivateRevokesSessions(t *testing.T) {
	repo := newUserAccountRepoStub()
	repo.users["u-1"] = &models.User{ID: "u-1", Active: true, Role: models.RoleTeacher}
	service := NewUserService(repo, validator.New(), nil)

	require.NoError(t, service.Deactivate(context.Background(), "admin-1", "u-1"))
	assert.Contains(t, repo.deactivated, "u-1")
	assert.Contains(t, repo.revoked, "u-1")
	require.Len(t, repo.logs, 1)
	assert.Equal(t, models.AuditActionUserDeactivate, repo.logs[0].Action)
}
