package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/uniwatch/uniwatch-api/internal/models"
	"github.com/uniwatch/uniwatch-api/pkg/config"
	appErrors "github.com/uniwatch/uniwatch-api/pkg/errors"
)

type mockAuthRepo struct {
	byEmail map[string]models.User
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[strings.ToLower(email)]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func jwtTestConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "uniwatch-test"}
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLoginIssuesValidToken(t *testing.T) {
	repo := &mockAuthRepo{byEmail: map[string]models.User{
		"teacher@example.edu": {ID: "user-1", Email: "teacher@example.edu", PasswordHash: hashFor(t, "hunter2"), Role: models.RoleTeacher, Active: true},
	}}
	svc := NewAuthService(repo, jwtTestConfig(), nil, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.edu", Password: "hunter2"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockAuthRepo{byEmail: map[string]models.User{
		"teacher@example.edu": {ID: "user-1", Email: "teacher@example.edu", PasswordHash: hashFor(t, "hunter2"), Active: true},
	}}
	svc := NewAuthService(repo, jwtTestConfig(), nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.edu", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUnknownEmailSameError(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, jwtTestConfig(), nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.edu", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := &mockAuthRepo{byEmail: map[string]models.User{
		"old@example.edu": {ID: "user-2", Email: "old@example.edu", PasswordHash: hashFor(t, "hunter2"), Active: false},
	}}
	svc := NewAuthService(repo, jwtTestConfig(), nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "old@example.edu", Password: "hunter2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{}, jwtTestConfig(), nil, nil)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsWrongSecret(t *testing.T) {
	repo := &mockAuthRepo{byEmail: map[string]models.User{
		"teacher@example.edu": {ID: "user-1", Email: "teacher@example.edu", PasswordHash: hashFor(t, "hunter2"), Active: true},
	}}
	issuer := NewAuthService(repo, jwtTestConfig(), nil, nil)
	resp, err := issuer.Login(context.Background(), models.LoginRequest{Email: "teacher@example.edu", Password: "hunter2"})
	require.NoError(t, err)

	other := NewAuthService(repo, config.JWTConfig{Secret: "different", Expiration: time.Hour}, nil, nil)
	_, err = other.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}
