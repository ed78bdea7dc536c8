package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/admin-db/dbadmin-api/internal/models"
	appErrors "github.com/admin-db/dbadmin-api/pkg/errors"
)

type authRepoStub struct {
	users      map[string]*models.User
	audits     []*models.AuditLog
	lastLogins map[string]time.Time
}

func newAuthRepoStub(users ...*models.User) *authRepoStub {
	stub := &authRepoStub{
		users:      make(map[string]*models.User),
		lastLogins: make(map[string]time.Time),
	}
	for _, user := range users {
		stub.users[user.ID] = user
	}
	return stub
}

func (r *authRepoStub) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (r *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	r.lastLogins[id] = ts
	return nil
}

func (r *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.audits = append(r.audits, log)
	return nil
}

func testUser(t *testing.T, password string, active bool) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "u-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Active:       active,
	}
}

func newAuthFixture(t *testing.T, users ...*models.User) (*AuthService, *authRepoStub) {
	repo := newAuthRepoStub(users...)
	svc := NewAuthService(repo, nil, nil, AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "dbadmin-api",
	})
	return svc, repo
}

func TestAuthServiceLogin(t *testing.T) {
	svc, repo := newAuthFixture(t, testUser(t, "s3cret", true))

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Username:  "alice",
		Password:  "s3cret",
		IP:        "10.0.0.1",
		UserAgent: "go-test",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, int64(3600), resp.ExpiresIn)
	require.Equal(t, "alice", resp.User.Username)
	require.Equal(t, models.RoleAdmin, resp.User.Role)

	require.Contains(t, repo.lastLogins, "u-1")
	require.Len(t, repo.audits, 1)
	require.Equal(t, models.AuditActionLogin, repo.audits[0].Action)
	require.Equal(t, "10.0.0.1", repo.audits[0].IPAddress)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, repo := newAuthFixture(t, testUser(t, "s3cret", true))

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "wrong"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	require.Empty(t, repo.audits)
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "whatever"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code,
		"unknown user and wrong password are indistinguishable")
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	svc, _ := newAuthFixture(t, testUser(t, "s3cret", false))

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "s3cret"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceLoginMissingFields(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "alice"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAuthServiceValidateTokenRoundTrip(t *testing.T) {
	svc, _ := newAuthFixture(t, testUser(t, "s3cret", true))

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, models.RoleAdmin, claims.Role)
	require.Equal(t, "dbadmin-api", claims.Issuer)
}

func TestAuthServiceValidateTokenWrongSecret(t *testing.T) {
	svc, _ := newAuthFixture(t, testUser(t, "s3cret", true))
	other := NewAuthService(newAuthRepoStub(), nil, nil, AuthConfig{
		Secret:     "different-secret",
		Expiration: time.Hour,
		Issuer:     "dbadmin-api",
	})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)

	_, err = other.ValidateToken(resp.AccessToken)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceValidateTokenGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.ValidateToken("not.a.token")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceProfile(t *testing.T) {
	svc, _ := newAuthFixture(t, testUser(t, "s3cret", true))

	info, err := svc.Profile(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, "alice", info.Username)
	require.Equal(t, "alice@example.com", info.Email)

	_, err = svc.Profile(context.Background(), "u-404")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
