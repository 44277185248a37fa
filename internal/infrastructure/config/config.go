package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Cookie      CookieConfig
	Log         LogConfig
	Event       EventConfig
	HTTP        HTTPConfig
	Scheduler   SchedulerConfig
	Marketplace MarketplaceConfig
	Stripe      StripeConfig
	Treasury    TreasuryConfig
	Gemini      GeminiConfig
	Storage     StorageConfig
	Swagger     SwaggerConfig
	Telemetry   TelemetryConfig
	Profiling   ProfilingConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	RefreshSecret          string
	MaxRefreshCount        int
}

// CookieConfig holds cookie settings for refresh token
type CookieConfig struct {
	Domain   string // Domain for cookies (empty = current domain)
	Path     string // Path for cookies
	Secure   bool   // Secure flag (should be true in production for HTTPS)
	SameSite string // SameSite policy: "strict", "lax", or "none"
}

// EventConfig holds outbox event processing configuration
type EventConfig struct {
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	MaxHeaderBytes        int
	MaxBodySize           int64
	RateLimitEnabled      bool
	RateLimitRequests     int
	RateLimitWindow       time.Duration
	AuthRateLimitEnabled  bool          // Enable stricter rate limiting for auth endpoints
	AuthRateLimitRequests int           // Max auth attempts (default: 5)
	AuthRateLimitWindow   time.Duration // Auth rate limit window (default: 1 minute)
	CORSAllowOrigins      []string
	CORSAllowMethods      []string
	CORSAllowHeaders      []string
	TrustedProxies        []string
}

// SchedulerConfig holds background job configuration: the payout sweep,
// stock reservation expiry, and webhook event cleanup loops.
type SchedulerConfig struct {
	Enabled                   bool
	MaxConcurrentJobs         int
	JobTimeout                time.Duration
	PayoutSweepInterval       time.Duration // How often due payouts are picked up
	PayoutBatchSize           int           // Max payouts processed per sweep
	ReservationExpiryInterval time.Duration // How often expired reservations are released
	ReservationExpiryBatch    int           // Max inventory items touched per run
	WebhookCleanupInterval    time.Duration // How often handled webhook events are purged
	WebhookRetention          time.Duration // How long handled webhook events are kept
}

// MarketplaceConfig holds marketplace business settings. The platform
// operates in a single fiat currency; per-merchant rates override the
// default commission at onboarding time.
type MarketplaceConfig struct {
	Currency              string          // ISO 4217 code, e.g. "USD"
	DefaultCommissionRate decimal.Decimal // Percent, 0-100
	ShippingFee           decimal.Decimal // Flat shipping fee per order
	ReservationTTL        time.Duration   // How long checkout holds stock
}

// StripeConfig holds Stripe API credentials and webhook settings
type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
}

// TreasuryConfig holds the external crypto treasury service settings
type TreasuryConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// GeminiConfig holds Gemini API settings for the AI surfaces.
// An empty APIKey disables AI features rather than failing startup.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// StorageConfig holds S3-compatible object storage settings for
// product images.
type StorageConfig struct {
	Bucket            string
	AccessKey         string
	SecretKey         string
	Endpoint          string // Empty = AWS S3; set for MinIO or other S3-compatible stores
	UseSSL            bool
	Region            string
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled     bool     // Whether to enable Swagger endpoint
	RequireAuth bool     // Require authentication to access Swagger
	AllowedIPs  []string // IP whitelist (empty = allow all)
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only, disable in prod for security)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
}

// ProfilingConfig holds Pyroscope continuous profiling configuration
type ProfilingConfig struct {
	Enabled         bool   // Whether to enable continuous profiling
	ServerAddress   string // Pyroscope server address (e.g., "http://pyroscope:4040")
	ApplicationName string // Application name for profiles
}

// Load reads config.toml, overlays TAIC_-prefixed environment variables
// on top of it, and fills in built-in defaults for anything still unset.
// A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("TAIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	commissionRate, err := decimalOrDefault(v.GetString("marketplace.default_commission_rate"), "10")
	if err != nil {
		return nil, fmt.Errorf("invalid marketplace.default_commission_rate: %w", err)
	}
	shippingFee, err := decimalOrDefault(v.GetString("marketplace.shipping_fee"), "5.00")
	if err != nil {
		return nil, fmt.Errorf("invalid marketplace.shipping_fee: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Cookie: CookieConfig{
			Domain:   v.GetString("cookie.domain"),
			Path:     v.GetString("cookie.path"),
			Secure:   v.GetBool("cookie.secure"),
			SameSite: v.GetString("cookie.same_site"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Event: EventConfig{
			ProcessorEnabled: v.GetBool("event.processor_enabled"),
			BatchSize:        v.GetInt("event.batch_size"),
			PollInterval:     v.GetDuration("event.poll_interval"),
			MaxRetries:       v.GetInt("event.max_retries"),
			CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
			CleanupRetention: v.GetDuration("event.cleanup_retention"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:           v.GetDuration("http.read_timeout"),
			WriteTimeout:          v.GetDuration("http.write_timeout"),
			IdleTimeout:           v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:        v.GetInt("http.max_header_bytes"),
			MaxBodySize:           v.GetInt64("http.max_body_size"),
			RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:     v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:       v.GetDuration("http.rate_limit_window"),
			AuthRateLimitEnabled:  v.GetBool("http.auth_rate_limit_enabled"),
			AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
			CORSAllowOrigins:      v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:      v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:      v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:        v.GetStringSlice("http.trusted_proxies"),
		},
		Scheduler: SchedulerConfig{
			Enabled:                   v.GetBool("scheduler.enabled"),
			MaxConcurrentJobs:         v.GetInt("scheduler.max_concurrent_jobs"),
			JobTimeout:                v.GetDuration("scheduler.job_timeout"),
			PayoutSweepInterval:       v.GetDuration("scheduler.payout_sweep_interval"),
			PayoutBatchSize:           v.GetInt("scheduler.payout_batch_size"),
			ReservationExpiryInterval: v.GetDuration("scheduler.reservation_expiry_interval"),
			ReservationExpiryBatch:    v.GetInt("scheduler.reservation_expiry_batch"),
			WebhookCleanupInterval:    v.GetDuration("scheduler.webhook_cleanup_interval"),
			WebhookRetention:          v.GetDuration("scheduler.webhook_retention"),
		},
		Marketplace: MarketplaceConfig{
			Currency:              v.GetString("marketplace.currency"),
			DefaultCommissionRate: commissionRate,
			ShippingFee:           shippingFee,
			ReservationTTL:        v.GetDuration("marketplace.reservation_ttl"),
		},
		Stripe: StripeConfig{
			SecretKey:      v.GetString("stripe.secret_key"),
			PublishableKey: v.GetString("stripe.publishable_key"),
			WebhookSecret:  v.GetString("stripe.webhook_secret"),
		},
		Treasury: TreasuryConfig{
			BaseURL: v.GetString("treasury.base_url"),
			APIKey:  v.GetString("treasury.api_key"),
			Timeout: v.GetDuration("treasury.timeout"),
		},
		Gemini: GeminiConfig{
			APIKey:          v.GetString("gemini.api_key"),
			Model:           v.GetString("gemini.model"),
			Temperature:     v.GetFloat64("gemini.temperature"),
			MaxOutputTokens: v.GetInt("gemini.max_output_tokens"),
		},
		Storage: StorageConfig{
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			Endpoint:          v.GetString("storage.endpoint"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			Region:            v.GetString("storage.region"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Profiling: ProfilingConfig{
			Enabled:         v.GetBool("profiling.enabled"),
			ServerAddress:   v.GetString("profiling.server_address"),
			ApplicationName: v.GetString("profiling.application_name"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// decimalOrDefault parses a decimal config value, falling back to the
// default when the value is unset.
func decimalOrDefault(value, fallback string) (decimal.Decimal, error) {
	if value == "" {
		value = fallback
	}
	return decimal.NewFromString(value)
}

// fallback sets *p to def when it holds the type's zero value. A config
// value of 0 or "" therefore means "not set", never an explicit zero.
func fallback[T comparable](p *T, def T) {
	var zero T
	if *p == zero {
		*p = def
	}
}

// applyDefaults fills in defaults for every unset config field
func applyDefaults(cfg *Config) {
	fallback(&cfg.App.Name, "taic-backend")
	fallback(&cfg.App.Env, "development")
	fallback(&cfg.App.Port, "8080")

	fallback(&cfg.Database.Host, "localhost")
	fallback(&cfg.Database.Port, 5432)
	fallback(&cfg.Database.User, "postgres")
	fallback(&cfg.Database.DBName, "taic")
	fallback(&cfg.Database.SSLMode, "disable")
	fallback(&cfg.Database.MaxOpenConns, 25)
	fallback(&cfg.Database.MaxIdleConns, 5)
	fallback(&cfg.Database.ConnMaxLifetime, 60)
	fallback(&cfg.Database.ConnMaxIdleTime, 30)

	fallback(&cfg.Redis.Host, "localhost")
	fallback(&cfg.Redis.Port, 6379)

	fallback(&cfg.JWT.AccessTokenExpiration, 15*time.Minute)
	fallback(&cfg.JWT.RefreshTokenExpiration, 168*time.Hour)
	fallback(&cfg.JWT.Issuer, "taic-backend")
	fallback(&cfg.JWT.MaxRefreshCount, 10)

	fallback(&cfg.Cookie.Path, "/")
	fallback(&cfg.Cookie.SameSite, "lax")

	fallback(&cfg.Log.Level, "info")
	fallback(&cfg.Log.Format, "console")
	fallback(&cfg.Log.Output, "stdout")

	fallback(&cfg.Event.BatchSize, 100)
	fallback(&cfg.Event.PollInterval, 5*time.Second)
	fallback(&cfg.Event.MaxRetries, 5)
	fallback(&cfg.Event.CleanupRetention, 168*time.Hour)

	fallback(&cfg.HTTP.ReadTimeout, 15*time.Second)
	fallback(&cfg.HTTP.WriteTimeout, 15*time.Second)
	fallback(&cfg.HTTP.IdleTimeout, 60*time.Second)
	fallback(&cfg.HTTP.MaxHeaderBytes, 1<<20)
	fallback(&cfg.HTTP.MaxBodySize, 10<<20)
	fallback(&cfg.HTTP.RateLimitRequests, 100)
	fallback(&cfg.HTTP.RateLimitWindow, time.Minute)
	fallback(&cfg.HTTP.AuthRateLimitRequests, 5)
	fallback(&cfg.HTTP.AuthRateLimitWindow, time.Minute)
	// CORS origins deliberately have no fallback: an empty list allows no
	// cross-origin requests until origins are configured explicitly.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"}
	}

	fallback(&cfg.Scheduler.MaxConcurrentJobs, 3)
	fallback(&cfg.Scheduler.JobTimeout, 5*time.Minute)
	fallback(&cfg.Scheduler.PayoutSweepInterval, time.Minute)
	fallback(&cfg.Scheduler.PayoutBatchSize, 50)
	fallback(&cfg.Scheduler.ReservationExpiryInterval, time.Minute)
	fallback(&cfg.Scheduler.ReservationExpiryBatch, 100)
	fallback(&cfg.Scheduler.WebhookCleanupInterval, time.Hour)
	fallback(&cfg.Scheduler.WebhookRetention, 30*24*time.Hour)

	fallback(&cfg.Marketplace.Currency, "USD")
	fallback(&cfg.Marketplace.ReservationTTL, 30*time.Minute)

	fallback(&cfg.Treasury.Timeout, 30*time.Second)

	fallback(&cfg.Gemini.Model, "gemini-2.0-flash")
	fallback(&cfg.Gemini.MaxOutputTokens, 2048)

	fallback(&cfg.Storage.Region, "us-east-1")
	fallback(&cfg.Storage.PresignExpiration, 15*time.Minute)

	fallback(&cfg.Telemetry.CollectorEndpoint, "localhost:4317")
	fallback(&cfg.Telemetry.SamplingRatio, 1.0)
	fallback(&cfg.Telemetry.ServiceName, "taic-backend")
	fallback(&cfg.Telemetry.DBSlowQueryThresh, 200*time.Millisecond)

	fallback(&cfg.Profiling.ApplicationName, "taic-backend")
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	// Marketplace sanity (all environments)
	if c.Marketplace.DefaultCommissionRate.IsNegative() ||
		c.Marketplace.DefaultCommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("marketplace.default_commission_rate must be between 0 and 100, got %s",
			c.Marketplace.DefaultCommissionRate)
	}
	if c.Marketplace.ShippingFee.IsNegative() {
		return fmt.Errorf("marketplace.shipping_fee cannot be negative")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		// Cookie security for refresh token
		if !c.Cookie.Secure {
			return fmt.Errorf("cookie.secure must be true in production (HTTPS required for secure cookies)")
		}
		// SameSite=None requires Secure flag
		if c.Cookie.SameSite == "none" && !c.Cookie.Secure {
			return fmt.Errorf("cookie.same_site=none requires cookie.secure=true")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		// Payments cannot run without Stripe credentials
		if c.Stripe.SecretKey == "" {
			return fmt.Errorf("stripe.secret_key is required in production")
		}
		if c.Stripe.WebhookSecret == "" {
			return fmt.Errorf("stripe.webhook_secret is required in production")
		}
		// Payouts cannot run without the treasury service
		if c.Treasury.BaseURL == "" {
			return fmt.Errorf("treasury.base_url is required in production")
		}
		if c.Treasury.APIKey == "" {
			return fmt.Errorf("treasury.api_key is required in production")
		}
		// Swagger must be disabled OR protected in production
		if c.Swagger.Enabled {
			if !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
				return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
			}
		}
		// Database tracing: full SQL logging is a security risk in production
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
