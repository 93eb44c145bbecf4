package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ze-Austin/ze-school/internal/models"
	appErrors "github.com/Ze-Austin/ze-school/pkg/errors"
)

type mockAuthUsers struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
}

func (m *mockAuthUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

type mockRevocationStore struct {
	revoked map[string]bool
}

func (m *mockRevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if m.revoked == nil {
		m.revoked = make(map[string]bool)
	}
	m.revoked[jti] = true
	return nil
}

func (m *mockRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return m.revoked[jti], nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthUsers, *mockRevocationStore) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		ID:           "u1",
		Email:        "ada@example.com",
		PasswordHash: string(hash),
		FirstName:    "Ada",
		LastName:     "Obi",
		Role:         models.RoleStudent,
	}
	users := &mockAuthUsers{
		byEmail: map[string]*models.User{user.Email: user},
		byID:    map[string]*models.User{user.ID: user},
	}
	revocation := &mockRevocationStore{}

	svc := NewAuthService(users, revocation, nil, nil, AuthConfig{
		Secret:             "test-secret",
		Issuer:             "ze-school-test",
		AccessTokenExpiry:  time.Minute,
		RefreshTokenExpiry: time.Hour,
	})
	return svc, users, revocation
}

func TestAuthServiceLogin(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.NotEqual(t, res.AccessToken, res.RefreshToken)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, models.RoleStudent, res.User.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.TokenTypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)
}

func TestAuthServiceValidateRejectsRefreshToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), res.RefreshToken)
	require.Error(t, err)
}

func TestAuthServiceValidateRefreshesRole(t *testing.T) {
	svc, users, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	users.byID["u1"].Role = models.RoleAdmin

	claims, err := svc.ValidateToken(context.Background(), res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceRefresh(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: res.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.ValidateToken(context.Background(), refreshed.AccessToken)
	require.NoError(t, err)
}

func TestAuthServiceRefreshRejectsAccessToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: res.AccessToken})
	require.Error(t, err)
}

func TestAuthServiceRevoke(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), res.AccessToken))

	_, err = svc.ValidateToken(context.Background(), res.AccessToken)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTokenRevoked.Code, appErr.Code)

	// second revocation is a no-op
	require.NoError(t, svc.Revoke(context.Background(), res.AccessToken))
}

func TestAuthServiceRevokeRefreshToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), res.RefreshToken))

	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: res.RefreshToken})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTokenRevoked.Code, appErr.Code)
}

func TestAuthServiceRevokeDoesNotAffectOtherTokens(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	first, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), first.AccessToken))

	_, err = svc.ValidateToken(context.Background(), second.AccessToken)
	require.NoError(t, err)
}

func TestAuthServiceRejectsTamperedToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	tampered := res.AccessToken[:len(res.AccessToken)-2] + "xx"
	_, err = svc.ValidateToken(context.Background(), tampered)
	require.Error(t, err)
}
