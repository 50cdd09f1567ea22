package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fieldline/backend/internal/application/integration"
	appmetering "github.com/fieldline/backend/internal/application/metering"
	"github.com/fieldline/backend/internal/infrastructure/auth"
	"github.com/fieldline/backend/internal/infrastructure/cache"
	"github.com/fieldline/backend/internal/infrastructure/config"
	"github.com/fieldline/backend/internal/infrastructure/logger"
	"github.com/fieldline/backend/internal/infrastructure/persistence"
	"github.com/fieldline/backend/internal/infrastructure/telemetry"
	"github.com/fieldline/backend/internal/interfaces/http/handler"
	"github.com/fieldline/backend/internal/interfaces/http/middleware"
	"github.com/fieldline/backend/internal/interfaces/http/router"
)

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
		_ = logger.Sync(log)
	}()

	log.Info("Starting Fieldline Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.DBTraceEnabled {
		if err := db.EnableTracing(); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}

	// Quota snapshot cache: Redis, falling back to process-local memory.
	// Only dashboard reads go through it, so the fallback is safe.
	cacheFactory := cache.NewQuotaStatusCacheFactory(cfg.Redis, cache.WithLogger(log))
	quotaStatusCache, err := cacheFactory.CreateCache()
	if err != nil {
		log.Fatal("Failed to create quota snapshot cache", zap.Error(err))
	}

	// Metering metrics instruments
	meteringMetrics, err := telemetry.NewMeteringMetrics()
	if err != nil {
		log.Fatal("Failed to create metering metrics", zap.Error(err))
	}

	// Initialize repositories
	usageEventRepo := persistence.NewUsageEventRepository(db.DB)
	quotaLimitRepo := persistence.NewQuotaLimitRepository(db.DB)
	subscriptionRepo := persistence.NewSubscriptionRepository(db.DB)

	// Metering pipeline: tier resolution -> quota evaluation -> usage recording
	tierResolver := appmetering.NewTierResolver(subscriptionRepo, log)
	quotaService := appmetering.NewQuotaService(quotaLimitRepo, usageEventRepo, log, appmetering.QuotaServiceConfig{
		FailOpen: cfg.Metering.FailOpen,
	})
	usageRecorder := appmetering.NewUsageRecorder(usageEventRepo, log)
	governor := appmetering.NewGovernor(tierResolver, quotaService, usageRecorder, log,
		appmetering.WithMetrics(meteringMetrics),
	)
	usageQueries := appmetering.NewUsageQueryService(
		tierResolver, quotaLimitRepo, usageEventRepo,
		quotaStatusCache, cfg.Metering.QuotaCacheTTL, log,
	)

	log.Info("Usage governor initialized",
		zap.Bool("fail_open", cfg.Metering.FailOpen),
		zap.Duration("quota_cache_ttl", cfg.Metering.QuotaCacheTTL),
	)

	// Integration adapters over the governor. Provider clients are the
	// local stand-ins until real provider wrappers are configured.
	clients := newLocalProviderClients()
	chatService := integration.NewChatService(clients.chat, governor, log)
	visionService := integration.NewVisionService(clients.vision, governor, log)
	smsService := integration.NewSMSService(clients.sms, governor, log)
	voiceService := integration.NewVoiceService(clients.voice, governor, log)
	emailService := integration.NewEmailService(clients.email, governor, log)

	// JWT service for tenant identity
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize HTTP handlers
	systemHandler := handler.NewSystemHandler(db.DB)
	meteringHandler := handler.NewMeteringHandler(usageQueries, log)
	aiHandler := handler.NewAIHandler(chatService, visionService, log)
	messagingHandler := handler.NewMessagingHandler(smsService, voiceService, emailService, log)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack, in order: request ID, panic recovery, request
	// logging, security headers, CORS, tracing, authentication, span
	// enrichment, rate limiting.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))

	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/ready",
			"/ping",
			"/api/v1/system/info",
			"/api/v1/system/ping",
		},
		Logger: log,
	}
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())

	// Inbound HTTP rate limiting, independent of monthly usage quotas
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Probes live outside API versioning
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)
	engine.GET("/ping", systemHandler.Ping)

	// API routes
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(systemHandler).
		Register(meteringHandler).
		Register(aiHandler).
		Register(messagingHandler).
		Setup()

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
