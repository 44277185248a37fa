package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"TAIC_APP_NAME":                            os.Getenv("TAIC_APP_NAME"),
		"TAIC_APP_ENV":                             os.Getenv("TAIC_APP_ENV"),
		"TAIC_APP_PORT":                            os.Getenv("TAIC_APP_PORT"),
		"TAIC_DATABASE_HOST":                       os.Getenv("TAIC_DATABASE_HOST"),
		"TAIC_DATABASE_PORT":                       os.Getenv("TAIC_DATABASE_PORT"),
		"TAIC_DATABASE_USER":                       os.Getenv("TAIC_DATABASE_USER"),
		"TAIC_DATABASE_PASSWORD":                   os.Getenv("TAIC_DATABASE_PASSWORD"),
		"TAIC_DATABASE_DBNAME":                     os.Getenv("TAIC_DATABASE_DBNAME"),
		"TAIC_DATABASE_SSLMODE":                    os.Getenv("TAIC_DATABASE_SSLMODE"),
		"TAIC_DATABASE_MAX_OPEN_CONNS":             os.Getenv("TAIC_DATABASE_MAX_OPEN_CONNS"),
		"TAIC_DATABASE_MAX_IDLE_CONNS":             os.Getenv("TAIC_DATABASE_MAX_IDLE_CONNS"),
		"TAIC_JWT_SECRET":                          os.Getenv("TAIC_JWT_SECRET"),
		"TAIC_MARKETPLACE_CURRENCY":                os.Getenv("TAIC_MARKETPLACE_CURRENCY"),
		"TAIC_MARKETPLACE_DEFAULT_COMMISSION_RATE": os.Getenv("TAIC_MARKETPLACE_DEFAULT_COMMISSION_RATE"),
		"TAIC_MARKETPLACE_SHIPPING_FEE":            os.Getenv("TAIC_MARKETPLACE_SHIPPING_FEE"),
		"APP_ENV":                                  os.Getenv("APP_ENV"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "taic-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "postgres", cfg.Database.User)
		assert.Equal(t, "", cfg.Database.Password)
		assert.Equal(t, "taic", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	})

	t.Run("loads marketplace defaults", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "USD", cfg.Marketplace.Currency)
		assert.True(t, cfg.Marketplace.DefaultCommissionRate.Equal(decimal.NewFromInt(10)))
		assert.True(t, cfg.Marketplace.ShippingFee.Equal(decimal.RequireFromString("5.00")))
		assert.Equal(t, 30*time.Minute, cfg.Marketplace.ReservationTTL)
	})

	t.Run("loads scheduler defaults", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, time.Minute, cfg.Scheduler.PayoutSweepInterval)
		assert.Equal(t, 50, cfg.Scheduler.PayoutBatchSize)
		assert.Equal(t, time.Minute, cfg.Scheduler.ReservationExpiryInterval)
		assert.Equal(t, 100, cfg.Scheduler.ReservationExpiryBatch)
		assert.Equal(t, time.Hour, cfg.Scheduler.WebhookCleanupInterval)
		assert.Equal(t, 30*24*time.Hour, cfg.Scheduler.WebhookRetention)
	})

	t.Run("loads values from environment variables with TAIC prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("TAIC_APP_NAME", "test-app")
		os.Setenv("TAIC_APP_ENV", "testing")
		os.Setenv("TAIC_APP_PORT", "9000")
		os.Setenv("TAIC_DATABASE_HOST", "testdb.local")
		os.Setenv("TAIC_DATABASE_PORT", "5433")
		os.Setenv("TAIC_DATABASE_USER", "testuser")
		os.Setenv("TAIC_DATABASE_PASSWORD", "testpass")
		os.Setenv("TAIC_DATABASE_DBNAME", "testdb")
		os.Setenv("TAIC_DATABASE_SSLMODE", "require")
		os.Setenv("TAIC_DATABASE_MAX_OPEN_CONNS", "50")
		os.Setenv("TAIC_DATABASE_MAX_IDLE_CONNS", "10")
		os.Setenv("TAIC_MARKETPLACE_CURRENCY", "EUR")
		os.Setenv("TAIC_MARKETPLACE_DEFAULT_COMMISSION_RATE", "12.5")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, "EUR", cfg.Marketplace.Currency)
		assert.True(t, cfg.Marketplace.DefaultCommissionRate.Equal(decimal.RequireFromString("12.5")))
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("TAIC_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("TAIC_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		clearEnv()
		os.Setenv("TAIC_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		// 0 is treated as "not set", so default (25) is used
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("TAIC_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("rejects malformed commission rate", func(t *testing.T) {
		clearEnv()
		os.Setenv("TAIC_MARKETPLACE_DEFAULT_COMMISSION_RATE", "ten percent")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "default_commission_rate")
	})

	t.Run("rejects commission rate above 100", func(t *testing.T) {
		clearEnv()
		os.Setenv("TAIC_MARKETPLACE_DEFAULT_COMMISSION_RATE", "101")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be between 0 and 100")
	})

	t.Run("rejects negative shipping fee", func(t *testing.T) {
		clearEnv()
		os.Setenv("TAIC_MARKETPLACE_SHIPPING_FEE", "-1.00")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shipping_fee cannot be negative")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"TAIC_APP_ENV":               os.Getenv("TAIC_APP_ENV"),
		"TAIC_JWT_SECRET":            os.Getenv("TAIC_JWT_SECRET"),
		"TAIC_DATABASE_PASSWORD":     os.Getenv("TAIC_DATABASE_PASSWORD"),
		"TAIC_DATABASE_SSLMODE":      os.Getenv("TAIC_DATABASE_SSLMODE"),
		"TAIC_COOKIE_SECURE":         os.Getenv("TAIC_COOKIE_SECURE"),
		"TAIC_STRIPE_SECRET_KEY":     os.Getenv("TAIC_STRIPE_SECRET_KEY"),
		"TAIC_STRIPE_WEBHOOK_SECRET": os.Getenv("TAIC_STRIPE_WEBHOOK_SECRET"),
		"TAIC_TREASURY_BASE_URL":     os.Getenv("TAIC_TREASURY_BASE_URL"),
		"TAIC_TREASURY_API_KEY":      os.Getenv("TAIC_TREASURY_API_KEY"),
		"TAIC_SWAGGER_ENABLED":       os.Getenv("TAIC_SWAGGER_ENABLED"),
		"TAIC_SWAGGER_REQUIRE_AUTH":  os.Getenv("TAIC_SWAGGER_REQUIRE_AUTH"),
		"TAIC_SWAGGER_ALLOWED_IPS":   os.Getenv("TAIC_SWAGGER_ALLOWED_IPS"),
		"APP_ENV":                    os.Getenv("APP_ENV"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	// Helper to set valid production base config
	setValidProductionBase := func() {
		os.Setenv("TAIC_APP_ENV", "production")
		os.Setenv("TAIC_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		os.Setenv("TAIC_DATABASE_PASSWORD", "secure-password")
		os.Setenv("TAIC_DATABASE_SSLMODE", "require")
		os.Setenv("TAIC_COOKIE_SECURE", "true")
		os.Setenv("TAIC_STRIPE_SECRET_KEY", "sk_live_example")
		os.Setenv("TAIC_STRIPE_WEBHOOK_SECRET", "whsec_example")
		os.Setenv("TAIC_TREASURY_BASE_URL", "https://treasury.internal.example.com")
		os.Setenv("TAIC_TREASURY_API_KEY", "treasury-api-key")
		os.Setenv("TAIC_SWAGGER_ENABLED", "false") // Disabled by default for security
	}

	t.Run("requires jwt.secret in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("TAIC_JWT_SECRET")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret is required in production")
	})

	t.Run("requires jwt.secret at least 32 characters in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("TAIC_JWT_SECRET", "short-secret")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret must be at least 32 characters")
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("TAIC_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("TAIC_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("requires stripe credentials in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("TAIC_STRIPE_SECRET_KEY")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stripe.secret_key is required in production")
	})

	t.Run("requires stripe webhook secret in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("TAIC_STRIPE_WEBHOOK_SECRET")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stripe.webhook_secret is required in production")
	})

	t.Run("requires treasury service in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("TAIC_TREASURY_BASE_URL")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "treasury.base_url is required in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("fails if swagger enabled without protection in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("TAIC_SWAGGER_ENABLED", "true")
		os.Setenv("TAIC_SWAGGER_REQUIRE_AUTH", "false")
		// No IP whitelist set

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "swagger endpoint must be disabled, require authentication, or have IP restriction")
	})

	t.Run("passes with swagger enabled and require_auth in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("TAIC_SWAGGER_ENABLED", "true")
		os.Setenv("TAIC_SWAGGER_REQUIRE_AUTH", "true")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Swagger.Enabled)
		assert.True(t, cfg.Swagger.RequireAuth)
	})

	t.Run("passes with swagger disabled in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("TAIC_SWAGGER_ENABLED", "false")

		cfg, err := Load()
		require.NoError(t, err)
		assert.False(t, cfg.Swagger.Enabled)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		// URL-encoded password should be in the DSN
		assert.Contains(t, dsn, "pass%40word%23123")
	})

	t.Run("handles empty password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.NotEmpty(t, dsn)
	})
}
