package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	identityapp "github.com/taic/backend/internal/application/identity"
	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/infrastructure/auth"
	"github.com/taic/backend/internal/infrastructure/config"
	"github.com/taic/backend/internal/infrastructure/persistence"
)

func newAuthService(t *testing.T, tdb *TestDB) *identityapp.AuthService {
	t.Helper()

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "integration-test-secret-not-for-production",
		RefreshSecret:          "integration-test-refresh-secret",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "taic-test",
	})
	userRepo := persistence.NewGormUserRepository(tdb.DB)
	blacklist := auth.NewInMemoryTokenBlacklist()

	cfg := identityapp.DefaultAuthServiceConfig()
	cfg.MaxLoginAttempts = 3
	cfg.LockDuration = time.Minute

	return identityapp.NewAuthService(userRepo, jwtService, blacklist, cfg, zap.NewNop())
}

func domainErrorCode(t *testing.T, err error) string {
	t.Helper()

	var derr *shared.DomainError
	require.True(t, errors.As(err, &derr), "expected a domain error, got %v", err)
	return derr.Code
}

func TestAuthRegisterAndLogin(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	svc := newAuthService(t, tdb)
	ctx := context.Background()

	result, err := svc.Register(ctx, identityapp.RegisterInput{
		Email:       "shopper@example.com",
		Password:    "Sup3rSecret!",
		DisplayName: "Shopper",
		IP:          "127.0.0.1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "shopper@example.com", result.User.Email)
	assert.Equal(t, "shopper", result.User.Role)

	// Login with the registered credentials
	login, err := svc.Login(ctx, identityapp.LoginInput{
		Email:    "shopper@example.com",
		Password: "Sup3rSecret!",
		IP:       "127.0.0.1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)
	assert.Equal(t, result.User.ID, login.User.ID)
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	svc := newAuthService(t, tdb)
	ctx := context.Background()

	_, err := svc.Register(ctx, identityapp.RegisterInput{
		Email:    "dup@example.com",
		Password: "Sup3rSecret!",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, identityapp.RegisterInput{
		Email:    "dup@example.com",
		Password: "An0therSecret!",
	})
	require.Error(t, err)
	assert.Equal(t, "EMAIL_ALREADY_REGISTERED", domainErrorCode(t, err))
}

func TestAuthLoginWrongPassword(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	svc := newAuthService(t, tdb)
	ctx := context.Background()

	_, err := svc.Register(ctx, identityapp.RegisterInput{
		Email:    "wrongpw@example.com",
		Password: "Sup3rSecret!",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, identityapp.LoginInput{
		Email:    "wrongpw@example.com",
		Password: "not-the-password",
	})
	require.Error(t, err)
	assert.Equal(t, "INVALID_CREDENTIALS", domainErrorCode(t, err))
}

func TestAuthLoginLockout(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	svc := newAuthService(t, tdb)
	ctx := context.Background()

	_, err := svc.Register(ctx, identityapp.RegisterInput{
		Email:    "lockout@example.com",
		Password: "Sup3rSecret!",
	})
	require.NoError(t, err)

	// Exhaust the failed attempt budget
	for i := 0; i < 2; i++ {
		_, err = svc.Login(ctx, identityapp.LoginInput{
			Email:    "lockout@example.com",
			Password: "wrong",
		})
		require.Error(t, err)
		assert.Equal(t, "INVALID_CREDENTIALS", domainErrorCode(t, err))
	}

	// Third failure trips the lock
	_, err = svc.Login(ctx, identityapp.LoginInput{
		Email:    "lockout@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, "ACCOUNT_LOCKED", domainErrorCode(t, err))

	// Even the correct password is rejected while locked
	_, err = svc.Login(ctx, identityapp.LoginInput{
		Email:    "lockout@example.com",
		Password: "Sup3rSecret!",
	})
	require.Error(t, err)
	assert.Equal(t, "ACCOUNT_LOCKED", domainErrorCode(t, err))
}

func TestAuthRefreshToken(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	svc := newAuthService(t, tdb)
	ctx := context.Background()

	result, err := svc.Register(ctx, identityapp.RegisterInput{
		Email:    "refresh@example.com",
		Password: "Sup3rSecret!",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, identityapp.RefreshTokenInput{
		RefreshToken: result.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEmpty(t, refreshed.RefreshToken)
}
