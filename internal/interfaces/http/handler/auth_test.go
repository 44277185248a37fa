package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	appidentity "github.com/taic/backend/internal/application/identity"
	"github.com/taic/backend/internal/domain/identity"
	"github.com/taic/backend/internal/infrastructure/auth"
	"github.com/taic/backend/internal/infrastructure/config"
	"github.com/taic/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// testJWTConfig returns a default JWT config for tests
func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-key-32-characters-long",
		RefreshSecret:          "test-refresh-secret-32-chars-long",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
		MaxRefreshCount:        10,
	}
}

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func setupAuthRouter(handler *AuthHandler, jwtService *auth.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	authGroup := r.Group("/api/v1/auth")
	{
		authGroup.POST("/register", handler.Register)
		authGroup.POST("/login", handler.Login)
		authGroup.POST("/refresh", handler.RefreshToken)
	}

	protectedGroup := r.Group("/api/v1/auth")
	protectedGroup.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{JWTService: jwtService}))
	{
		protectedGroup.POST("/logout", handler.Logout)
		protectedGroup.GET("/me", handler.GetCurrentUser)
		protectedGroup.PUT("/password", handler.ChangePassword)
	}

	return r
}

func createTestShopper(t *testing.T) *identity.User {
	t.Helper()
	user, err := identity.NewActiveUser("shopper@example.test", "Password123", identity.RoleShopper)
	require.NoError(t, err)
	require.NoError(t, user.SetDisplayName("Test Shopper"))
	return user
}

func createAuthServiceForHandler(userRepo *MockUserRepository, jwtService *auth.JWTService) *appidentity.AuthService {
	return appidentity.NewAuthService(
		userRepo,
		jwtService,
		auth.NewInMemoryTokenBlacklist(),
		appidentity.DefaultAuthServiceConfig(),
		zap.NewNop(),
	)
}

func loginTestShopper(t *testing.T, router *gin.Engine) string {
	t.Helper()

	body, _ := json.Marshal(LoginRequest{
		Email:    "shopper@example.test",
		Password: "Password123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	token := data["token"].(map[string]interface{})
	return token["access_token"].(string)
}

func TestAuthHandler_Register_Success(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("ExistsByEmail", mock.Anything, "newbie@example.test").Return(false, nil)
	userRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	userRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	jwtService := auth.NewJWTService(testJWTConfig())
	handler := NewAuthHandler(createAuthServiceForHandler(userRepo, jwtService))
	router := setupAuthRouter(handler, jwtService)

	body, _ := json.Marshal(RegisterRequest{
		Email:       "newbie@example.test",
		Password:    "Password123",
		DisplayName: "Newbie",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response["success"].(bool))

	data := response["data"].(map[string]interface{})
	token := data["token"].(map[string]interface{})
	assert.NotEmpty(t, token["access_token"])
	assert.NotEmpty(t, token["refresh_token"])
	assert.Equal(t, "Bearer", token["token_type"])

	userData := data["user"].(map[string]interface{})
	assert.Equal(t, "newbie@example.test", userData["email"])
	assert.Equal(t, "shopper", userData["role"])
}

func TestAuthHandler_Register_EmailTaken(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("ExistsByEmail", mock.Anything, "taken@example.test").Return(true, nil)

	jwtService := auth.NewJWTService(testJWTConfig())
	handler := NewAuthHandler(createAuthServiceForHandler(userRepo, jwtService))
	router := setupAuthRouter(handler, jwtService)

	body, _ := json.Marshal(RegisterRequest{
		Email:       "taken@example.test",
		Password:    "Password123",
		DisplayName: "Someone",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "EMAIL_ALREADY_REGISTERED")
}

func TestAuthHandler_Login_Success(t *testing.T) {
	user := createTestShopper(t)

	userRepo := new(MockUserRepository)
	userRepo.On("FindByEmail", mock.Anything, "shopper@example.test").Return(user, nil)
	userRepo.On("Update", mock.Anything, user).Return(nil)

	jwtService := auth.NewJWTService(testJWTConfig())
	handler := NewAuthHandler(createAuthServiceForHandler(userRepo, jwtService))
	router := setupAuthRouter(handler, jwtService)

	body, _ := json.Marshal(LoginRequest{
		Email:    "shopper@example.test",
		Password: "Password123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response["success"].(bool))

	data := response["data"].(map[string]interface{})
	token := data["token"].(map[string]interface{})
	assert.NotEmpty(t, token["access_token"])
	assert.NotEmpty(t, token["refresh_token"])
	assert.Equal(t, "Bearer", token["token_type"])

	userData := data["user"].(map[string]interface{})
	assert.Equal(t, "shopper@example.test", userData["email"])
	assert.Equal(t, "Test Shopper", userData["display_name"])
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	user := createTestShopper(t)

	userRepo := new(MockUserRepository)
	userRepo.On("FindByEmail", mock.Anything, "shopper@example.test").Return(user, nil)
	userRepo.On("Update", mock.Anything, user).Return(nil)

	jwtService := auth.NewJWTService(testJWTConfig())
	handler := NewAuthHandler(createAuthServiceForHandler(userRepo, jwtService))
	router := setupAuthRouter(handler, jwtService)

	body, _ := json.Marshal(LoginRequest{
		Email:    "shopper@example.test",
		Password: "WrongPassword1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
}

func TestAuthHandler_Login_InvalidRequestBody(t *testing.T) {
	jwtService := auth.NewJWTService(testJWTConfig())
	handler := NewAuthHandler(createAuthServiceForHandler(new(MockUserRepository), jwtService))
	router := setupAuthRouter(handler, jwtService)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_RefreshToken_Success(t *testing.T) {
	user := createTestShopper(t)

	userRepo := new(MockUserRepository)
	userRepo.On("FindByEmail", mock.Anything, "shopper@example.test").Return(user, nil)
	userRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	userRepo.On("Update", mock.Anything, user).Return(nil)

	jwtService := auth.NewJWTService(testJWTConfig())
	handler := NewAuthHandler(createAuthServiceForHandler(userRepo, jwtService))
	router := setupAuthRouter(handler, jwtService)

	// First login to obtain a refresh token
	loginBody, _ := json.Marshal(LoginRequest{
		Email:    "shopper@example.test",
		Password: "Password123",
	})
	loginReq := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(loginBody))
	loginReq.Header.Set("Content-Type", "application/json")
	loginW := httptest.NewRecorder()
	router.ServeHTTP(loginW, loginReq)
	require.Equal(t, http.StatusOK, loginW.Code)

	var loginResponse map[string]interface{}
	require.NoError(t, json.Unmarshal(loginW.Body.Bytes(), &loginResponse))
	loginToken := loginResponse["data"].(map[string]interface{})["token"].(map[string]interface{})
	refreshToken := loginToken["refresh_token"].(string)

	body, _ := json.Marshal(RefreshTokenRequest{RefreshToken: refreshToken})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response["success"].(bool))

	token := response["data"].(map[string]interface{})["token"].(map[string]interface{})
	assert.NotEmpty(t, token["access_token"])
	assert.NotEmpty(t, token["refresh_token"])
}

func TestAuthHandler_Logout_Success(t *testing.T) {
	user := createTestShopper(t)

	userRepo := new(MockUserRepository)
	userRepo.On("FindByEmail", mock.Anything, "shopper@example.test").Return(user, nil)
	userRepo.On("Update", mock.Anything, user).Return(nil)

	jwtService := auth.NewJWTService(testJWTConfig())
	handler := NewAuthHandler(createAuthServiceForHandler(userRepo, jwtService))
	router := setupAuthRouter(handler, jwtService)

	accessToken := loginTestShopper(t, router)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response["success"].(bool))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "Logged out successfully", data["message"])
}

func TestAuthHandler_Logout_Unauthorized(t *testing.T) {
	jwtService := auth.NewJWTService(testJWTConfig())
	handler := NewAuthHandler(createAuthServiceForHandler(new(MockUserRepository), jwtService))
	router := setupAuthRouter(handler, jwtService)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_GetCurrentUser_Success(t *testing.T) {
	user := createTestShopper(t)

	userRepo := new(MockUserRepository)
	userRepo.On("FindByEmail", mock.Anything, "shopper@example.test").Return(user, nil)
	userRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	userRepo.On("Update", mock.Anything, user).Return(nil)

	jwtService := auth.NewJWTService(testJWTConfig())
	handler := NewAuthHandler(createAuthServiceForHandler(userRepo, jwtService))
	router := setupAuthRouter(handler, jwtService)

	accessToken := loginTestShopper(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response["success"].(bool))

	userData := response["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "shopper@example.test", userData["email"])
	assert.Equal(t, "shopper", userData["role"])
}

func TestAuthHandler_ChangePassword_Success(t *testing.T) {
	user := createTestShopper(t)

	userRepo := new(MockUserRepository)
	userRepo.On("FindByEmail", mock.Anything, "shopper@example.test").Return(user, nil)
	userRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	userRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	jwtService := auth.NewJWTService(testJWTConfig())
	handler := NewAuthHandler(createAuthServiceForHandler(userRepo, jwtService))
	router := setupAuthRouter(handler, jwtService)

	accessToken := loginTestShopper(t, router)

	body, _ := json.Marshal(ChangePasswordRequest{
		OldPassword: "Password123",
		NewPassword: "NewPassword456",
	})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/auth/password", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response["success"].(bool))
}
