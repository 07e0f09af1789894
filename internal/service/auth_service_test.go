package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

type authRepoStub struct {
	users         map[string]*models.User
	usersByEmail  map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	logs          []*models.AuditLog
	revokedAll    []string
	err           error
}

func newAuthRepoStub() *authRepoStub {
	return &authRepoStub{
		users:         make(map[string]*models.User),
		usersByEmail:  make(map[string]*models.User),
		refreshTokens: make(map[string]*models.RefreshToken),
	}
}

func (s *authRepoStub) add(user *models.User) {
	s.users[user.ID] = user
	s.usersByEmail[user.Email] = user
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.usersByEmail[email]
	return ok, nil
}

func (s *authRepoStub) Create(ctx context.Context, user *models.User) error {
	if s.err != nil {
		return s.err
	}
	user.ID = "u-new"
	s.add(user)
	return nil
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return s.err
}

func (s *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if s.err != nil {
		return s.err
	}
	if u, ok := s.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (s *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	s.revokedAll = append(s.revokedAll, userID)
	return s.err
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if s.err != nil {
		return s.err
	}
	s.refreshTokens[token.Token] = token
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if s.err != nil {
		return nil, s.err
	}
	if t, ok := s.refreshTokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	return s.err
}

func (s *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "murafiq-test",
	}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func activeParent(t *testing.T) *models.User {
	return &models.User{
		ID:           "u-1",
		Email:        "parent@example.com",
		PasswordHash: hashPassword(t, "secret123"),
		FullName:     "Mona Hassan",
		Role:         models.RoleParent,
		Active:       true,
	}
}

func TestAuthServiceRegister(t *testing.T) {
	repo := newAuthRepoStub()
	service := NewAuthService(repo, validator.New(), nil, testAuthConfig())

	resp, err := service.Register(context.Background(), models.RegisterRequest{
		Email:    "new@example.com",
		Password: "secret123",
		FullName: "Omar Adel",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleTeacher, resp.User.Role)

	created := repo.usersByEmail["new@example.com"]
	require.NotNil(t, created)
	assert.True(t, created.Active)
	assert.NotEqual(t, "secret123", created.PasswordHash)
	require.Len(t, repo.logs, 1)
	assert.Equal(t, models.AuditActionRegister, repo.logs[0].Action)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := newAuthRepoStub()
	repo.add(activeParent(t))
	service := NewAuthService(repo, validator.New(), nil, testAuthConfig())

	_, err := service.Register(context.Background(), models.RegisterRequest{
		Email:    "parent@example.com",
		Password: "secret123",
		FullName: "Mona Hassan",
		Role:     models.RoleParent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRegisterRejectsAdminRole(t *testing.T) {
	service := NewAuthService(newAuthRepoStub(), validator.New(), nil, testAuthConfig())

	_, err := service.Register(context.Background(), models.RegisterRequest{
		Email:    "root@example.com",
		Password: "secret123",
		FullName: "Root",
		Role:     models.RoleAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newAuthRepoStub()
	repo.add(activeParent(t))
	service := NewAuthService(repo, validator.New(), nil, testAuthConfig())

	resp, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "parent@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "u-1", resp.User.ID)

	claims, err := service.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleParent, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newAuthRepoStub()
	repo.add(activeParent(t))
	service := NewAuthService(repo, validator.New(), nil, testAuthConfig())

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "parent@example.com",
		Password: "wrong-pass",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := newAuthRepoStub()
	user := activeParent(t)
	user.Active = false
	repo.add(user)
	service := NewAuthService(repo, validator.New(), nil, testAuthConfig())

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "parent@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRevokedToken(t *testing.T) {
	repo := newAuthRepoStub()
	repo.add(activeParent(t))
	repo.refreshTokens["rt-1"] = &models.RefreshToken{
		ID:        "tok-1",
		UserID:    "u-1",
		Token:     "rt-1",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
		Revoked:   true,
	}
	service := NewAuthService(repo, validator.New(), nil, testAuthConfig())

	_, err := service.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "rt-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	repo := newAuthRepoStub()
	repo.add(activeParent(t))
	repo.refreshTokens["rt-1"] = &models.RefreshToken{
		ID:        "tok-1",
		UserID:    "u-1",
		Token:     "rt-1",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	service := NewAuthService(repo, validator.New(), nil, testAuthConfig())

	resp, err := service.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "rt-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, "rt-1", resp.RefreshToken)
}

func TestAuthServiceChangePasswordWrongOld(t *testing.T) {
	repo := newAuthRepoStub()
	repo.add(activeParent(t))
	service := NewAuthService(repo, validator.New(), nil, testAuthConfig())

	err := service.ChangePassword(context.Background(), "u-1", models.ChangePasswordRequest{
		OldPassword: "wrong-pass",
		NewPassword: "another123",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceChangePasswordRevokesSessions(t *testing.T) {
	repo := newAuthRepoStub()
	repo.add(activeParent(t))
	service := NewAuthService(repo, validator.New(), nil, testAuthConfig())

	err := service.ChangePassword(context.Background(), "u-1", models.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "another123",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.revokedAll, "u-1")
}
