package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	aiapp "github.com/taic/backend/internal/application/ai"
	catalogapp "github.com/taic/backend/internal/application/catalog"
	identityapp "github.com/taic/backend/internal/application/identity"
	inventoryapp "github.com/taic/backend/internal/application/inventory"
	merchantapp "github.com/taic/backend/internal/application/merchant"
	orderapp "github.com/taic/backend/internal/application/order"
	paymentapp "github.com/taic/backend/internal/application/payment"
	payoutapp "github.com/taic/backend/internal/application/payout"
	"github.com/taic/backend/internal/domain/shared"
	gemini "github.com/taic/backend/internal/infrastructure/ai"
	"github.com/taic/backend/internal/infrastructure/auth"
	"github.com/taic/backend/internal/infrastructure/cache"
	"github.com/taic/backend/internal/infrastructure/config"
	"github.com/taic/backend/internal/infrastructure/event"
	"github.com/taic/backend/internal/infrastructure/invoice"
	"github.com/taic/backend/internal/infrastructure/logger"
	"github.com/taic/backend/internal/infrastructure/persistence"
	"github.com/taic/backend/internal/infrastructure/scheduler"
	"github.com/taic/backend/internal/infrastructure/storage"
	infraStripe "github.com/taic/backend/internal/infrastructure/stripe"
	"github.com/taic/backend/internal/infrastructure/telemetry"
	"github.com/taic/backend/internal/infrastructure/treasury"
	"github.com/taic/backend/internal/interfaces/http/handler"
	"github.com/taic/backend/internal/interfaces/http/middleware"
	"github.com/taic/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/taic/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			TAIC Marketplace API
//	@version		1.0
//	@description	Multi-vendor marketplace backend: merchants, catalog, checkout, Stripe payments, crypto payouts, AI surfaces

//	@contact.name	API Support
//	@contact.url	https://github.com/taic/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting TAIC Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Telemetry providers (no-ops when disabled)
	telemetryCtx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(telemetryCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(telemetryCtx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()
	meter := meterProvider.Meter("taic-backend")

	logsProvider, err := telemetry.NewLoggerProvider(telemetryCtx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		if err := logsProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	// Ship application logs to the collector alongside stdout.
	log = telemetry.AttachOTELCore(log, logsProvider, cfg.Telemetry.ServiceName, zapcore.InfoLevel)

	// Continuous profiling (no-op when disabled)
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Profiling.Enabled,
		ServerAddress:       cfg.Profiling.ServerAddress,
		ApplicationName:     cfg.Profiling.ApplicationName,
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Error("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Database observability plugins
	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing plugin", zap.Error(err))
		}
	}
	var businessMetrics *telemetry.BusinessMetrics
	if cfg.Telemetry.Enabled {
		dbMetrics, err := telemetry.RegisterDBMetrics(context.Background(), db.DB, meter, telemetry.DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err != nil {
			log.Warn("Failed to register database metrics", zap.Error(err))
		} else if dbMetrics != nil {
			defer dbMetrics.Stop()
		}

		businessMetrics, err = telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:             meter,
			Logger:            log,
			InventoryProvider: telemetry.NewGormInventoryMetricsProvider(db.DB),
		})
		if err != nil {
			log.Warn("Failed to initialize business metrics", zap.Error(err))
			businessMetrics = nil
		} else {
			businessMetrics.StartPeriodicCollection(context.Background(), telemetry.NewGormMerchantProvider(db.DB), 5*time.Minute)
			defer businessMetrics.Stop()
		}
	}

	// Initialize repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	merchantRepo := persistence.NewGormMerchantRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	inventoryItemRepo := persistence.NewGormInventoryItemRepository(db.DB)
	stockReservationRepo := persistence.NewGormStockReservationRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	webhookEventRepo := persistence.NewGormWebhookEventRepository(db.DB)
	ledgerEntryRepo := persistence.NewGormLedgerEntryRepository(db.DB)
	payoutRepo := persistence.NewGormPayoutRepository(db.DB)
	conversationRepo := persistence.NewGormConversationRepository(db.DB)
	checkoutScope := persistence.NewGormCheckoutScope(db.DB)
	ledgerScope := persistence.NewGormLedgerScope(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Event serializer with schema-version upgrades, so outbox payloads
	// written by older builds still deserialize after event shape changes
	eventSerializer := event.NewVersionedSerializer(log)
	if err := event.RegisterAllEvents(eventSerializer); err != nil {
		log.Fatal("Failed to register event types", zap.Error(err))
	}

	// Create outbox publisher for transactional event saving
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)

	// Inject outbox publisher into repositories that persist events
	// in the same transaction as the aggregate
	orderRepo.SetOutboxEventSaver(outboxPublisher)
	checkoutScope.SetOutboxEventSaver(outboxPublisher)

	// Idempotency store (Redis, in-memory fallback outside production)
	idempotencyFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	idempotencyStore, err := idempotencyFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Token blacklist for logout and password changes
	var tokenBlacklist auth.TokenBlacklist
	redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		if cfg.App.Env == "production" {
			log.Fatal("Failed to connect to Redis token blacklist", zap.Error(err))
		}
		log.Warn("Redis unavailable, using in-memory token blacklist", zap.Error(err))
		tokenBlacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		tokenBlacklist = redisBlacklist
		defer func() {
			if err := redisBlacklist.Close(); err != nil {
				log.Error("Failed to close token blacklist", zap.Error(err))
			}
		}()
	}

	// Stripe payment gateway
	stripeConfig := &infraStripe.StripeConfig{
		SecretKey:      cfg.Stripe.SecretKey,
		PublishableKey: cfg.Stripe.PublishableKey,
		WebhookSecret:  cfg.Stripe.WebhookSecret,
		IsTestMode:     cfg.App.Env != "production",
		Currency:       strings.ToLower(cfg.Marketplace.Currency),
	}
	stripeAdapter, err := infraStripe.NewStripeAdapter(stripeConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize Stripe adapter", zap.Error(err))
	}

	// Treasury client for crypto payouts
	treasuryClient, err := treasury.NewClient(&treasury.Config{
		BaseURL: cfg.Treasury.BaseURL,
		APIKey:  cfg.Treasury.APIKey,
		Timeout: cfg.Treasury.Timeout,
	})
	if err != nil {
		log.Fatal("Failed to initialize treasury client", zap.Error(err))
	}

	// Gemini client for AI surfaces. A missing API key keeps the server
	// up; the AI endpoints answer 503 until a key is configured.
	var geminiGateway aiapp.GeminiGateway
	if cfg.Gemini.APIKey != "" {
		temperature := float32(cfg.Gemini.Temperature)
		geminiClient, err := gemini.NewGeminiClient(context.Background(), gemini.Config{
			APIKey:          cfg.Gemini.APIKey,
			Model:           cfg.Gemini.Model,
			Temperature:     &temperature,
			MaxOutputTokens: int32(cfg.Gemini.MaxOutputTokens),
		})
		if err != nil {
			log.Fatal("Failed to initialize Gemini client", zap.Error(err))
		}
		geminiGateway = geminiClient
	} else {
		log.Warn("Gemini API key not configured, AI endpoints will report the provider unavailable")
		geminiGateway = unavailableGeminiGateway{}
	}

	// Object storage for product images (stub without a bucket, for local development)
	var objectStorage catalogapp.ObjectStorageService
	if cfg.Storage.Bucket != "" {
		s3Storage, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		bucketCtx, cancelBucket := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s3Storage.EnsureBucket(bucketCtx); err != nil {
			log.Fatal("Failed to provision storage bucket", zap.Error(err))
		}
		cancelBucket()
		objectStorage = s3Storage
	} else {
		log.Warn("Storage bucket not configured, using stub object storage")
		objectStorage = storage.NewStubObjectStorage()
	}

	// Invoice PDF generation
	invoiceTemplate, err := invoice.NewTemplate()
	if err != nil {
		log.Fatal("Failed to parse invoice template", zap.Error(err))
	}
	invoiceRenderer, err := invoice.NewChromedpRenderer(nil)
	if err != nil {
		log.Fatal("Failed to initialize invoice renderer", zap.Error(err))
	}
	defer func() {
		if err := invoiceRenderer.Close(); err != nil {
			log.Error("Error closing invoice renderer", zap.Error(err))
		}
	}()
	invoiceGenerator := invoice.NewGenerator(invoiceTemplate, invoiceRenderer, "TAIC", cfg.Marketplace.Currency, log)

	// Identity services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, tokenBlacklist, identityapp.DefaultAuthServiceConfig(), log)

	// Merchant onboarding and settings
	merchantService := merchantapp.NewMerchantService(merchantRepo, userRepo, orderRepo, ledgerEntryRepo, payoutRepo,
		merchantapp.MerchantServiceConfig{DefaultCommissionRate: cfg.Marketplace.DefaultCommissionRate}, log)

	// Catalog services
	categoryService := catalogapp.NewCategoryService(categoryRepo, log)
	productService := catalogapp.NewProductService(productRepo, categoryRepo, merchantRepo, objectStorage,
		catalogapp.DefaultProductServiceConfig(), log)
	imageService := catalogapp.NewImageService(productRepo, objectStorage, catalogapp.DefaultImageServiceConfig(), log)

	// Inventory services
	inventoryService := inventoryapp.NewInventoryService(inventoryItemRepo, productRepo, log)
	reservationExpiryService := inventoryapp.NewReservationExpiryService(inventoryItemRepo, stockReservationRepo, log)
	if cfg.Scheduler.ReservationExpiryBatch > 0 {
		reservationExpiryService.SetBatchSize(cfg.Scheduler.ReservationExpiryBatch)
	}

	// Payout ledger and payment services
	ledgerService := payoutapp.NewLedgerService(ledgerScope, log)
	paymentService := paymentapp.NewPaymentService(paymentRepo, orderRepo, stripeAdapter, ledgerService, log)

	// Order services
	checkoutService := orderapp.NewCheckoutService(checkoutScope, productRepo, merchantRepo, inventoryItemRepo, paymentService,
		orderapp.CheckoutServiceConfig{
			ShippingFee:    cfg.Marketplace.ShippingFee,
			ReservationTTL: cfg.Marketplace.ReservationTTL,
		}, log)
	if businessMetrics != nil {
		checkoutService.SetBusinessMetrics(businessMetrics)
	}
	orderService := orderapp.NewOrderService(orderRepo, log)
	invoiceService := orderapp.NewInvoiceService(orderRepo, merchantRepo, invoiceGenerator, log)

	// Payout services
	payoutService := payoutapp.NewPayoutService(ledgerScope, merchantRepo, payoutRepo, ledgerEntryRepo, log)
	payoutProcessorConfig := payoutapp.DefaultProcessorConfig()
	if cfg.Scheduler.PayoutBatchSize > 0 {
		payoutProcessorConfig.BatchSize = cfg.Scheduler.PayoutBatchSize
	}
	payoutProcessor := payoutapp.NewPayoutProcessor(ledgerScope, payoutRepo, treasuryClient, payoutProcessorConfig, log)
	if businessMetrics != nil {
		payoutProcessor.SetBusinessMetrics(businessMetrics)
	}

	// AI services
	ideaService := aiapp.NewProductIdeaService(productRepo, geminiGateway, log)
	assistantService := aiapp.NewShoppingAssistantService(conversationRepo, productRepo, geminiGateway,
		aiapp.DefaultAssistantConfig(), log)
	avatarService := aiapp.NewAvatarChatService(conversationRepo, geminiGateway, aiapp.DefaultAvatarConfig(), log)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Stripe webhook ingestion
	webhookService := paymentapp.NewStripeWebhookService(paymentapp.StripeWebhookServiceConfig{
		Config:           stripeConfig,
		PaymentRepo:      paymentRepo,
		OrderRepo:        orderRepo,
		WebhookEventRepo: webhookEventRepo,
		IdempotencyStore: idempotencyStore,
		Payments:         paymentService,
		Ledger:           ledgerService,
		EventPublisher:   eventBus,
		Metrics:          businessMetrics,
		Logger:           log,
	})

	// Cross-context event handlers

	orderPaidHandler := orderapp.NewOrderPaidHandler(inventoryItemRepo, log)
	orderPaidHandler.SetEventPublisher(eventBus)
	orderCancelledHandler := orderapp.NewOrderCancelledHandler(inventoryItemRepo, paymentService, log)
	orderCancelledHandler.SetEventPublisher(eventBus)
	orderCompletedHandler := orderapp.NewOrderCompletedHandler(ledgerService, log)
	orderDeliveredHandler := orderapp.NewOrderDeliveredHandler(orderRepo, log)
	orderDeliveredHandler.SetEventPublisher(eventBus)
	stockLowHandler := inventoryapp.NewStockLowHandler(log)

	// Events reach handlers twice: synchronously from the publishing
	// service and again from the outbox processor. The idempotency
	// wrapper collapses the duplicate delivery.
	idempotentHandlers := event.WrapHandlersWithIdempotency([]shared.EventHandler{
		orderPaidHandler,
		orderCancelledHandler,
		orderCompletedHandler,
		orderDeliveredHandler,
		stockLowHandler,
	}, idempotencyStore, log)
	for _, h := range idempotentHandlers {
		eventBus.Subscribe(h)
	}

	log.Info("Event handlers registered",
		zap.Strings("order_paid_events", orderPaidHandler.EventTypes()),
		zap.Strings("order_cancelled_events", orderCancelledHandler.EventTypes()),
		zap.Strings("order_completed_events", orderCompletedHandler.EventTypes()),
		zap.Strings("order_delivered_events", orderDeliveredHandler.EventTypes()),
		zap.Strings("stock_low_events", stockLowHandler.EventTypes()),
	)

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Outbox processor re-delivers events whose synchronous dispatch
	// was lost (crash between commit and publish)
	if cfg.Event.ProcessorEnabled {
		outboxProcessorConfig := event.DefaultOutboxProcessorConfig()
		if cfg.Event.BatchSize > 0 {
			outboxProcessorConfig.BatchSize = cfg.Event.BatchSize
		}
		if cfg.Event.PollInterval > 0 {
			outboxProcessorConfig.PollInterval = cfg.Event.PollInterval
		}
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, outboxProcessorConfig, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", outboxProcessorConfig.BatchSize),
			zap.Duration("poll_interval", outboxProcessorConfig.PollInterval),
		)
	}

	// Inject event bus into services that publish events
	authService.SetEventPublisher(eventBus)
	merchantService.SetEventPublisher(eventBus)
	categoryService.SetEventPublisher(eventBus)
	productService.SetEventPublisher(eventBus)
	imageService.SetEventPublisher(eventBus)
	inventoryService.SetEventPublisher(eventBus)
	reservationExpiryService.SetEventPublisher(eventBus)
	checkoutService.SetEventPublisher(eventBus)
	orderService.SetEventPublisher(eventBus)
	paymentService.SetEventPublisher(eventBus)
	payoutService.SetEventPublisher(eventBus)
	payoutProcessor.SetEventPublisher(eventBus)

	// Background jobs: payout sweeps, reservation expiry, webhook cleanup
	var jobScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		executor := scheduler.NewMaintenanceExecutor(log)
		executor.Register(scheduler.JobTypePayoutSweep, scheduler.JobRunnerFunc(func(ctx context.Context) (string, error) {
			stats, err := payoutProcessor.ProcessDue(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("due=%d sent=%d retried=%d failed=%d", stats.Due, stats.Sent, stats.Retried, stats.Failed), nil
		}))
		executor.Register(scheduler.JobTypeReservationExpiry, scheduler.JobRunnerFunc(func(ctx context.Context) (string, error) {
			stats, err := reservationExpiryService.ReleaseExpired(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("items=%d released=%d failed=%d", stats.ItemsProcessed, stats.ReservationsReleased, stats.FailedItems), nil
		}))
		executor.Register(scheduler.JobTypeWebhookCleanup, scheduler.JobRunnerFunc(func(ctx context.Context) (string, error) {
			cutoff := time.Now().Add(-cfg.Scheduler.WebhookRetention)
			deleted, err := webhookEventRepo.DeleteHandledBefore(ctx, cutoff)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("deleted=%d", deleted), nil
		}))

		schedConfig := scheduler.DefaultSchedulerConfig()
		schedConfig.MaxConcurrentJobs = cfg.Scheduler.MaxConcurrentJobs
		schedConfig.JobTimeout = cfg.Scheduler.JobTimeout

		var err error
		jobScheduler, err = scheduler.NewScheduler(schedConfig, executor, log)
		if err != nil {
			log.Fatal("Failed to create scheduler", zap.Error(err))
		}
		if err := jobScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			if err := jobScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()

		trigger := scheduler.NewIntervalTrigger(jobScheduler, log)
		if err := trigger.Schedule(scheduler.JobTypePayoutSweep, cfg.Scheduler.PayoutSweepInterval); err != nil {
			log.Fatal("Failed to schedule payout sweep", zap.Error(err))
		}
		if err := trigger.Schedule(scheduler.JobTypeReservationExpiry, cfg.Scheduler.ReservationExpiryInterval); err != nil {
			log.Fatal("Failed to schedule reservation expiry", zap.Error(err))
		}
		if err := trigger.Schedule(scheduler.JobTypeWebhookCleanup, cfg.Scheduler.WebhookCleanupInterval); err != nil {
			log.Fatal("Failed to schedule webhook cleanup", zap.Error(err))
		}
		if err := trigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start interval trigger", zap.Error(err))
		}
		defer func() {
			if err := trigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping interval trigger", zap.Error(err))
			}
		}()
		log.Info("Scheduler started",
			zap.Int("max_concurrent_jobs", cfg.Scheduler.MaxConcurrentJobs),
			zap.Duration("payout_sweep_interval", cfg.Scheduler.PayoutSweepInterval),
			zap.Duration("reservation_expiry_interval", cfg.Scheduler.ReservationExpiryInterval),
			zap.Duration("webhook_cleanup_interval", cfg.Scheduler.WebhookCleanupInterval),
		)
	}

	// Initialize HTTP handlers
	authHandler := handler.NewAuthHandler(authService)
	merchantHandler := handler.NewMerchantHandler(merchantService)
	merchantAdminHandler := handler.NewMerchantAdminHandler(merchantService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	productHandler := handler.NewProductHandler(productService)
	productImageHandler := handler.NewProductImageHandler(imageService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService)
	orderHandler := handler.NewOrderHandler(orderService, invoiceService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	payoutHandler := handler.NewPayoutHandler(payoutService)
	aiHandler := handler.NewAIHandler(ideaService, assistantService, avatarService)
	webhookHandler := handler.NewStripeWebhookHandler(webhookService)
	outboxAdminHandler := handler.NewOutboxAdminHandler(outboxRepo)
	systemHandler := handler.NewSystemHandler(jobScheduler)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing/Metrics - OTEL instrumentation
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetricsWithMeter(meter, cfg.Telemetry.Enabled))
	if cfg.Profiling.Enabled {
		engine.Use(middleware.Profiling())
	}
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Swagger documentation endpoint
	if cfg.Swagger.Enabled {
		swaggerJWT := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService: jwtService,
			Logger:     log,
		})
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(middleware.SwaggerConfig{
				Enabled:     cfg.Swagger.Enabled,
				RequireAuth: cfg.Swagger.RequireAuth,
				AllowedIPs:  cfg.Swagger.AllowedIPs,
			}, swaggerJWT),
			ginSwagger.WrapHandler(swaggerFiles.Handler),
		)
	}

	// Stripe webhook endpoint (no authentication; signature-verified)
	webhookGroup := engine.Group("/api/v1/webhooks")
	webhookGroup.POST("/stripe", webhookHandler.HandleStripeWebhook)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	// Configure skip paths for public endpoints
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/api/v1/auth/register",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		SkipPathPrefixes: []string{
			"/api/v1/categories",
			"/api/v1/products",
			"/api/v1/sellers",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Identity domain - public auth routes plus account management
	authRoutes := router.NewDomainGroup("/auth")
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		authRoutes.Use(middleware.AuthRateLimit(authLimiter))
		log.Info("Auth rate limiting enabled",
			zap.Int("requests", cfg.HTTP.AuthRateLimitRequests),
			zap.Duration("window", cfg.HTTP.AuthRateLimitWindow),
		)
	}
	authRoutes.POST("/register", authHandler.Register)
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/refresh", authHandler.RefreshToken)
	authRoutes.POST("/logout", authHandler.Logout)
	authRoutes.GET("/me", authHandler.GetCurrentUser)
	authRoutes.PUT("/password", authHandler.ChangePassword)

	// Public storefront catalog
	categoryRoutes := router.NewDomainGroup("/categories")
	categoryRoutes.GET("", categoryHandler.List)
	categoryRoutes.GET("/tree", categoryHandler.GetTree)
	categoryRoutes.GET("/slug/:slug", categoryHandler.GetBySlug)
	categoryRoutes.GET("/:id", categoryHandler.GetByID)
	categoryRoutes.GET("/:id/children", categoryHandler.GetChildren)

	storefrontRoutes := router.NewDomainGroup("/products")
	storefrontRoutes.GET("", productHandler.ListPublic)
	storefrontRoutes.GET("/:id", productHandler.GetPublic)

	sellerRoutes := router.NewDomainGroup("/sellers")
	sellerRoutes.GET("/:id", merchantHandler.GetPublic)

	// Merchant onboarding and self-service profile
	merchantRoutes := router.NewDomainGroup("/merchants")
	merchantRoutes.POST("/apply", merchantHandler.Apply)
	merchantRoutes.GET("/me", merchantHandler.GetProfile)
	merchantRoutes.PUT("/me", merchantHandler.UpdateProfile)
	merchantRoutes.PUT("/me/payout-settings", merchantHandler.UpdatePayoutSettings)
	merchantRoutes.GET("/me/dashboard", merchantHandler.Dashboard)

	// Buyer checkout and orders
	checkoutRoutes := router.NewDomainGroup("/checkout")
	checkoutRoutes.POST("/quote", checkoutHandler.Quote)
	checkoutRoutes.POST("", checkoutHandler.PlaceOrder)

	orderRoutes := router.NewDomainGroup("/orders")
	orderRoutes.GET("", orderHandler.ListForBuyer)
	orderRoutes.GET("/:id", orderHandler.GetForBuyer)
	orderRoutes.POST("/:id/cancel", orderHandler.CancelForBuyer)
	orderRoutes.GET("/:id/invoice", orderHandler.DownloadInvoice)
	orderRoutes.GET("/:id/payment", paymentHandler.GetForBuyer)

	// Shopper AI surfaces
	aiRoutes := router.NewDomainGroup("/ai")
	aiRoutes.POST("/assistant/ask", aiHandler.Ask)
	aiRoutes.POST("/avatar/sessions", aiHandler.StartSession)
	aiRoutes.GET("/avatar/sessions", aiHandler.ListSessions)
	aiRoutes.GET("/avatar/sessions/:id", aiHandler.GetSession)
	aiRoutes.POST("/avatar/sessions/:id/messages", aiHandler.SendMessage)

	// Merchant console (requires an approved merchant account)
	merchantConsole := router.NewDomainGroup("/merchant")
	merchantConsole.Use(middleware.RequireMerchant())

	merchantConsole.POST("/products", productHandler.Create)
	merchantConsole.GET("/products", productHandler.List)
	merchantConsole.GET("/products/:id", productHandler.Get)
	merchantConsole.PUT("/products/:id", productHandler.Update)
	merchantConsole.DELETE("/products/:id", productHandler.Delete)
	merchantConsole.POST("/products/:id/activate", productHandler.Activate)
	merchantConsole.POST("/products/:id/unpublish", productHandler.Unpublish)
	merchantConsole.POST("/products/:id/archive", productHandler.Archive)
	merchantConsole.POST("/products/:id/images", productImageHandler.RequestUpload)
	merchantConsole.POST("/products/:id/images/:imageId/confirm", productImageHandler.ConfirmUpload)
	merchantConsole.GET("/products/:id/images/:imageId/url", productImageHandler.GetDownloadURL)
	merchantConsole.DELETE("/products/:id/images/:imageId", productImageHandler.Delete)

	merchantConsole.GET("/inventory", inventoryHandler.List)
	merchantConsole.GET("/inventory/low-stock", inventoryHandler.ListLowStock)
	merchantConsole.GET("/inventory/:id", inventoryHandler.Get)
	merchantConsole.POST("/inventory/:id/receive", inventoryHandler.Receive)
	merchantConsole.POST("/inventory/:id/adjust", inventoryHandler.Adjust)
	merchantConsole.PUT("/inventory/:id/low-stock-threshold", inventoryHandler.SetLowStockThreshold)

	merchantConsole.GET("/orders", orderHandler.ListForMerchant)
	merchantConsole.GET("/orders/:id", orderHandler.GetForMerchant)
	merchantConsole.POST("/orders/:id/processing", orderHandler.StartProcessing)
	merchantConsole.POST("/orders/:id/ship", orderHandler.Ship)
	merchantConsole.POST("/orders/:id/deliver", orderHandler.Deliver)
	merchantConsole.POST("/orders/:id/cancel", orderHandler.CancelForMerchant)
	merchantConsole.POST("/orders/:id/refund", paymentHandler.RefundForMerchant)
	merchantConsole.GET("/orders/:id/invoice", orderHandler.DownloadInvoiceForMerchant)
	merchantConsole.GET("/orders/:id/payment", paymentHandler.GetForMerchant)

	merchantConsole.GET("/balance", payoutHandler.GetBalance)
	merchantConsole.GET("/ledger", payoutHandler.ListLedger)
	merchantConsole.POST("/payouts", payoutHandler.RequestPayout)
	merchantConsole.GET("/payouts", payoutHandler.ListForMerchant)
	merchantConsole.GET("/payouts/:id", payoutHandler.GetForMerchant)

	merchantConsole.POST("/ai/product-ideas", aiHandler.GenerateIdeas)
	merchantConsole.POST("/ai/product-ideas/accept", aiHandler.AcceptIdea)

	// Marketplace operator console
	adminRoutes := router.NewDomainGroup("/admin")
	adminRoutes.Use(middleware.RequireRole("admin"))

	adminRoutes.GET("/merchants", merchantAdminHandler.List)
	adminRoutes.GET("/merchants/:id", merchantAdminHandler.Get)
	adminRoutes.POST("/merchants/:id/approve", merchantAdminHandler.Approve)
	adminRoutes.POST("/merchants/:id/reject", merchantAdminHandler.Reject)
	adminRoutes.POST("/merchants/:id/suspend", merchantAdminHandler.Suspend)
	adminRoutes.POST("/merchants/:id/reinstate", merchantAdminHandler.Reinstate)
	adminRoutes.PUT("/merchants/:id/commission-rate", merchantAdminHandler.SetCommissionRate)

	adminRoutes.POST("/categories", categoryHandler.Create)
	adminRoutes.PUT("/categories/:id", categoryHandler.Update)
	adminRoutes.DELETE("/categories/:id", categoryHandler.Delete)
	adminRoutes.POST("/categories/:id/activate", categoryHandler.Activate)
	adminRoutes.POST("/categories/:id/deactivate", categoryHandler.Deactivate)

	adminRoutes.GET("/orders", orderHandler.List)
	adminRoutes.GET("/orders/:id", orderHandler.Get)
	adminRoutes.POST("/orders/:id/cancel", orderHandler.Cancel)
	adminRoutes.POST("/orders/:id/complete", orderHandler.Complete)
	adminRoutes.POST("/orders/:id/refund", paymentHandler.Refund)
	adminRoutes.GET("/orders/:id/payment", paymentHandler.Get)

	adminRoutes.GET("/payouts", payoutHandler.ListAll)

	adminRoutes.GET("/outbox/stats", outboxAdminHandler.Stats)
	adminRoutes.GET("/outbox/dead", outboxAdminHandler.ListDead)
	adminRoutes.POST("/outbox/dead/:id/requeue", outboxAdminHandler.RequeueDead)

	adminRoutes.GET("/system/jobs", systemHandler.ListMaintenanceJobs)

	// System routes
	systemRoutes := router.NewDomainGroup("/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Register all domain groups
	r.Register(authRoutes).
		Register(categoryRoutes).
		Register(storefrontRoutes).
		Register(sellerRoutes).
		Register(merchantRoutes).
		Register(checkoutRoutes).
		Register(orderRoutes).
		Register(aiRoutes).
		Register(merchantConsole).
		Register(adminRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// unavailableGeminiGateway stands in when no Gemini API key is
// configured; every call reports the provider unavailable
type unavailableGeminiGateway struct{}

func (unavailableGeminiGateway) GenerateText(context.Context, gemini.TextRequest) (string, error) {
	return "", gemini.ErrProviderUnavailable
}

func (unavailableGeminiGateway) GenerateJSON(context.Context, gemini.JSONRequest) ([]byte, error) {
	return nil, gemini.ErrProviderUnavailable
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
