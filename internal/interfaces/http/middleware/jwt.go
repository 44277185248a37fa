package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taic/backend/internal/infrastructure/auth"
	"github.com/taic/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Context keys under which the authenticated user's claims are stored.
// Other middleware (rate limiting, tracing, metrics) reads the scalar
// keys directly off the gin context.
const (
	JWTClaimsKey     = "jwt_claims"
	JWTUserIDKey     = "jwt_user_id"
	JWTEmailKey      = "jwt_email"
	JWTMerchantIDKey = "jwt_merchant_id"
)

const bearerPrefix = "Bearer "

// JWTMiddlewareConfig configures the authentication middleware.
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// TokenBlacklist is optional. When nil, revocation checks are skipped.
	TokenBlacklist auth.TokenBlacklist
	// SkipPaths and SkipPathPrefixes name public routes that bypass
	// authentication entirely.
	SkipPaths        []string
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

func (cfg JWTMiddlewareConfig) skips(path string) bool {
	for _, p := range cfg.SkipPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range cfg.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// checkRevocation consults the blacklist for the token's JTI and for a
// user-wide revocation cutoff. Store errors fail open: a Redis outage
// must not lock every user out, so the error is logged and the token
// accepted.
func (cfg JWTMiddlewareConfig) checkRevocation(ctx context.Context, claims *auth.Claims) error {
	if cfg.TokenBlacklist == nil {
		return nil
	}

	if claims.ID != "" {
		revoked, err := cfg.TokenBlacklist.IsBlacklisted(ctx, claims.ID)
		switch {
		case err != nil:
			if cfg.Logger != nil {
				cfg.Logger.Error("Failed to check token blacklist",
					zap.String("jti", claims.ID),
					zap.Error(err))
			}
		case revoked:
			return auth.ErrTokenBlacklisted
		}
	}

	if claims.UserID != "" {
		invalidated, err := cfg.TokenBlacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.GetIssuedAtTime())
		switch {
		case err != nil:
			if cfg.Logger != nil {
				cfg.Logger.Error("Failed to check user token invalidation",
					zap.String("user_id", claims.UserID),
					zap.Error(err))
			}
		case invalidated:
			return auth.ErrTokenBlacklisted
		}
	}

	return nil
}

// JWTAuthMiddlewareWithConfig authenticates requests with a bearer access
// token and stores the claims on the gin context for downstream handlers.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.skips(c.Request.URL.Path) {
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			rejectAuth(c, cfg.Logger, auth.ErrInvalidToken)
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(token)
		if err != nil {
			rejectAuth(c, cfg.Logger, err)
			return
		}

		if err := cfg.checkRevocation(c.Request.Context(), claims); err != nil {
			rejectAuth(c, cfg.Logger, err)
			return
		}

		setClaimsInContext(c, claims)

		// Propagate identity into the request context so log lines and
		// spans created below this middleware carry user and merchant IDs.
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		ctx, log = logger.WithUserID(ctx, log, claims.UserID)
		if claims.MerchantID != "" {
			ctx, _ = logger.WithMerchantID(ctx, log, claims.MerchantID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// bearerToken extracts the token from the Authorization header. It
// returns "" for a missing header, a non-Bearer scheme, or an empty
// token.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimPrefix(header, bearerPrefix)
}

func setClaimsInContext(c *gin.Context, claims *auth.Claims) {
	c.Set(JWTClaimsKey, claims)
	c.Set(JWTUserIDKey, claims.UserID)
	c.Set(JWTEmailKey, claims.Email)
	c.Set(JWTMerchantIDKey, claims.MerchantID)
}

// authFailureCode maps a validation error to the stable code and message
// returned to clients. Unrecognized errors collapse into a generic
// UNAUTHORIZED so internals never leak.
func authFailureCode(err error) (code, message string) {
	switch err {
	case auth.ErrExpiredToken:
		return "TOKEN_EXPIRED", "Token has expired"
	case auth.ErrInvalidToken:
		return "INVALID_TOKEN", "Invalid token"
	case auth.ErrInvalidTokenType:
		return "INVALID_TOKEN_TYPE", "Invalid token type"
	case auth.ErrTokenNotYetValid:
		return "TOKEN_NOT_VALID", "Token is not yet valid"
	case auth.ErrTokenBlacklisted:
		return "TOKEN_REVOKED", "Token has been revoked"
	default:
		return "UNAUTHORIZED", "Authentication required"
	}
}

func rejectAuth(c *gin.Context, log *zap.Logger, err error) {
	if log != nil {
		log.Warn("JWT authentication failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
	}
	code, message := authFailureCode(err)
	abortWithError(c, http.StatusUnauthorized, code, message)
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// GetJWTClaims returns the authenticated user's claims, or nil when the
// request did not pass JWT authentication.
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTUserID returns the authenticated user's ID, or "".
func GetJWTUserID(c *gin.Context) string {
	if userID, exists := c.Get(JWTUserIDKey); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}

// GetJWTEmail returns the authenticated user's email, or "".
func GetJWTEmail(c *gin.Context) string {
	if email, exists := c.Get(JWTEmailKey); exists {
		if e, ok := email.(string); ok {
			return e
		}
	}
	return ""
}

// GetJWTMerchantID returns the merchant ID from the claims. It returns
// uuid.Nil and false when the user has no linked merchant account.
func GetJWTMerchantID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(JWTMerchantIDKey)
	if !exists {
		return uuid.Nil, false
	}
	idStr, ok := value.(string)
	if !ok || idStr == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// RequireRole rejects requests whose JWT role is not one of the allowed
// roles. It must run after JWT authentication.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Insufficient role for this operation")
			return
		}
		c.Next()
	}
}

// RequireMerchant only admits users with the merchant role and a linked
// merchant account. Handlers behind it can rely on GetJWTMerchantID.
func RequireMerchant() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		if _, ok := GetJWTMerchantID(c); !ok || claims.Role != "merchant" {
			abortWithError(c, http.StatusForbidden, "MERCHANT_REQUIRED", "A linked merchant account is required")
			return
		}
		c.Next()
	}
}
