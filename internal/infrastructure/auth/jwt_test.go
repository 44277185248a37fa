package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taic/backend/internal/infrastructure/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
		MaxRefreshCount:        10,
	}
}

func merchantTokenInput() GenerateTokenInput {
	merchantID := uuid.New()
	return GenerateTokenInput{
		UserID:     uuid.New(),
		Email:      "seller@example.test",
		Role:       "merchant",
		MerchantID: &merchantID,
	}
}

func TestNewJWTServiceRefreshSecretFallback(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "only-secret"})
	assert.Equal(t, []byte("only-secret"), svc.refreshSecret)

	svc = NewJWTService(testJWTConfig())
	assert.Equal(t, []byte("test-refresh-secret-key-32-chars"), svc.refreshSecret)
}

func TestGenerateTokenPairRoundTrip(t *testing.T) {
	svc := NewJWTService(testJWTConfig())
	input := merchantTokenInput()

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.True(t, pair.AccessTokenExpiresAt.After(time.Now()))
	assert.True(t, pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt))

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, input.UserID.String(), claims.UserID)
	assert.Equal(t, input.Email, claims.Email)
	assert.Equal(t, input.Role, claims.Role)
	assert.Equal(t, input.MerchantID.String(), claims.MerchantID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.False(t, claims.GetIssuedAtTime().IsZero())

	refreshClaims, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, input.UserID.String(), refreshClaims.UserID)
	assert.Equal(t, TokenTypeRefresh, refreshClaims.TokenType)
	assert.Equal(t, 0, refreshClaims.RefreshCount)
	assert.Empty(t, refreshClaims.Email, "refresh tokens carry minimal claims")
}

func TestGenerateTokenPairWithoutMerchant(t *testing.T) {
	svc := NewJWTService(testJWTConfig())

	pair, err := svc.GenerateTokenPair(GenerateTokenInput{
		UserID: uuid.New(),
		Email:  "shopper@example.test",
		Role:   "shopper",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Empty(t, claims.MerchantID)
}

func TestValidateAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	cfg.AccessTokenExpiration = -time.Hour
	svc := NewJWTService(cfg)

	pair, err := svc.GenerateTokenPair(merchantTokenInput())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateAccessTokenGarbage(t *testing.T) {
	svc := NewJWTService(testJWTConfig())

	_, err := svc.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessTokenWrongSecret(t *testing.T) {
	svc := NewJWTService(testJWTConfig())
	pair, err := svc.GenerateTokenPair(merchantTokenInput())
	require.NoError(t, err)

	cfg := testJWTConfig()
	cfg.Secret = "a-completely-different-32-char-key"
	other := NewJWTService(cfg)

	_, err = other.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenTypeMismatchRejected(t *testing.T) {
	// Shared secret so the signature verifies and only the type check trips.
	cfg := testJWTConfig()
	cfg.RefreshSecret = cfg.Secret
	svc := NewJWTService(cfg)

	pair, err := svc.GenerateTokenPair(merchantTokenInput())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	_, err = svc.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	_, err = svc.RefreshTokenPair(pair.AccessToken, RefreshTokenInput{})
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestRefreshTokenPairAppliesNewIdentityFacts(t *testing.T) {
	svc := NewJWTService(testJWTConfig())
	input := merchantTokenInput()

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	// A shopper promoted to merchant gets the new role on refresh.
	newMerchantID := uuid.New()
	newPair, err := svc.RefreshTokenPair(pair.RefreshToken, RefreshTokenInput{
		Email:      input.Email,
		Role:       "merchant",
		MerchantID: &newMerchantID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, newPair.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)

	claims, err := svc.ValidateAccessToken(newPair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "merchant", claims.Role)
	assert.Equal(t, newMerchantID.String(), claims.MerchantID)
}

func TestRefreshTokenPairIncrementsCount(t *testing.T) {
	svc := NewJWTService(testJWTConfig())
	input := merchantTokenInput()
	refreshInput := RefreshTokenInput{Email: input.Email, Role: input.Role}

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	for want := 1; want <= 3; want++ {
		pair, err = svc.RefreshTokenPair(pair.RefreshToken, refreshInput)
		require.NoError(t, err)

		claims, err := svc.ValidateRefreshToken(pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, want, claims.RefreshCount)
	}
}

func TestRefreshTokenPairMaxCount(t *testing.T) {
	cfg := testJWTConfig()
	cfg.MaxRefreshCount = 2
	svc := NewJWTService(cfg)
	input := merchantTokenInput()
	refreshInput := RefreshTokenInput{Email: input.Email, Role: input.Role}

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	pair, err = svc.RefreshTokenPair(pair.RefreshToken, refreshInput)
	require.NoError(t, err)
	pair, err = svc.RefreshTokenPair(pair.RefreshToken, refreshInput)
	require.NoError(t, err)

	_, err = svc.RefreshTokenPair(pair.RefreshToken, refreshInput)
	assert.ErrorIs(t, err, ErrMaxRefreshExceeded)
}

func TestRefreshTokenPairInvalidToken(t *testing.T) {
	svc := NewJWTService(testJWTConfig())

	_, err := svc.RefreshTokenPair("garbage", RefreshTokenInput{})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenTTL(t *testing.T) {
	svc := NewJWTService(testJWTConfig())
	assert.Equal(t, 7*24*time.Hour, svc.RefreshTokenTTL())
}
