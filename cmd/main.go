package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/tesseract-hub/translation-gateway/internal/cache"
	"github.com/tesseract-hub/translation-gateway/internal/config"
	"github.com/tesseract-hub/translation-gateway/internal/handlers"
	"github.com/tesseract-hub/translation-gateway/internal/metrics"
	"github.com/tesseract-hub/translation-gateway/internal/middleware"
	"github.com/tesseract-hub/translation-gateway/internal/models"
	"github.com/tesseract-hub/translation-gateway/internal/orchestrator"
	"github.com/tesseract-hub/translation-gateway/internal/providers"
	"github.com/tesseract-hub/translation-gateway/internal/registry"
	"github.com/tesseract-hub/translation-gateway/internal/repository"

	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/Tesseract-Nexus/go-shared/tracing"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	log := logger.WithField("service", "translation-gateway")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	// Set log level
	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Set Gin mode
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize OpenTelemetry tracing
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.App.Environment == "production" {
		tp, err := tracing.InitTracer(tracing.ProductionConfig("translation-gateway"))
		if err != nil {
			log.WithError(err).Warn("Failed to initialize production tracer")
		} else {
			tracerProvider = tp
		}
	} else {
		tp, err := tracing.InitTracer(tracing.DefaultConfig("translation-gateway"))
		if err != nil {
			log.WithError(err).Warn("Failed to initialize tracer")
		} else {
			tracerProvider = tp
		}
	}

	// Initialize database
	db, err := initDatabase(&cfg.Database, cfg.App.Environment)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	// Initialize repository
	repo := repository.NewTranslationRepository(db)

	// Seed languages
	if err := repo.SeedLanguages(context.Background()); err != nil {
		log.WithError(err).Warn("Failed to seed languages")
	}

	// Initialize the persistent cache tier
	var redisStore *cache.RedisStore
	if cfg.Translation.CacheEnabled {
		redisStore, err = cache.NewRedisStore(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			log.WithField("component", "redis_cache"),
		)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis cache, continuing with memory tier only")
		}
	}

	var persistent cache.Store
	if redisStore != nil {
		persistent = redisStore
	}
	cacheManager := cache.NewManager(persistent, cache.Options{
		Version:    cfg.Translation.CacheVersion,
		TTL:        cfg.Translation.CacheTTL,
		MaxEntries: cfg.Translation.CacheMaxEntries,
	}, log.WithField("component", "cache"))

	// In-process request metrics
	collector := metrics.NewCollector(cfg.Translation.MetricsCapacity, metrics.DefaultThresholds())

	// Initialize translation providers
	libreTranslate := providers.NewLibreTranslateProvider(providers.LibreTranslateConfig{
		BaseURL: cfg.Translation.LibreTranslateURL,
		APIKey:  cfg.Translation.LibreTranslateKey,
		Weight:  cfg.Translation.LibreTranslateWeight,
		Timeout: cfg.Translation.LibreTranslateTimeout,
	}, log.WithField("component", "libretranslate"))

	// Check LibreTranslate health
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := libreTranslate.HealthCheck(ctx); err != nil {
		log.WithError(err).Warn("LibreTranslate health check failed - service may not be available")
	} else {
		log.Info("LibreTranslate connection verified")
	}
	cancel()

	modelRegistry := registry.Load()
	inference := providers.NewInferenceProvider(providers.InferenceConfig{
		BaseURL: cfg.Translation.HuggingFaceURL,
		APIKey:  cfg.Translation.HuggingFaceKey,
		Weight:  cfg.Translation.HuggingFaceWeight,
		Timeout: cfg.Translation.HuggingFaceTimeout,
	}, modelRegistry, log.WithField("component", "inference"))

	// Durable archive backs the cache tiers so entries survive a flush
	archive := handlers.NewArchive(repo, log.WithField("component", "archive"))

	// Create the orchestrator over the provider pool
	orch := orchestrator.New(
		[]providers.Provider{libreTranslate, inference},
		cacheManager,
		collector,
		archive,
		orchestrator.Config{
			QualityThreshold: cfg.Translation.QualityThreshold,
			BatchGroupSize:   cfg.Translation.BatchGroupSize,
			BatchConcurrency: cfg.Translation.BatchConcurrency,
		},
		log.WithField("component", "orchestrator"),
	)

	// Initialize handler
	handler := handlers.NewTranslationHandler(
		repo,
		cacheManager,
		orch,
		collector,
		libreTranslate, // language detection goes through LibreTranslate
		&cfg.Translation,
		log,
	)

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter(
		cfg.Translation.RateLimit,
		cfg.Translation.RateLimitWindow,
	)

	// Initialize Prometheus metrics
	promMetrics := gosharedmw.InitGlobalMetrics("tesseract", "translation_gateway")

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(promMetrics.Middleware())

	// Initialize Istio auth middleware for Keycloak JWT validation
	istioAuthLogger := logrus.NewEntry(logger).WithField("component", "istio_auth")
	istioAuth := gosharedmw.IstioAuth(gosharedmw.IstioAuthConfig{
		RequireAuth:        false, // Translation is mostly public, auth is optional
		AllowLegacyHeaders: true,
		Logger:             istioAuthLogger,
	})

	// Authentication middleware
	if cfg.App.Environment == "development" {
		router.Use(middleware.TenantID())
	} else {
		router.Use(istioAuth)
		router.Use(tracing.GinMiddleware("translation-gateway"))
	}

	// Health endpoints (no auth required)
	router.GET("/health", handler.Health)
	router.GET("/livez", handler.Livez)
	router.GET("/readyz", handler.Readyz)

	// Prometheus metrics endpoint
	router.GET("/metrics", gosharedmw.Handler())

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public endpoints (rate limited)
		v1.POST("/translate", rateLimiter.Middleware(), handler.Translate)
		v1.POST("/translate/batch", rateLimiter.Middleware(), handler.TranslateBatch)
		v1.POST("/detect", rateLimiter.Middleware(), handler.DetectLanguage)
		v1.GET("/languages", handler.GetLanguages)
		v1.GET("/metrics", handler.GetMetrics)

		// Tenant-specific endpoints
		v1.GET("/stats", middleware.RequireTenantID(), handler.GetStats)
		v1.DELETE("/tenant/translations", middleware.RequireTenantID(), handler.PurgeTenant)

		// Operational endpoints
		v1.DELETE("/cache/:source/:target", handler.InvalidateCache)
	}

	// Start background cleanup task
	go startCleanupTask(repo, log)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.WithField("addr", addr).Info("Starting translation gateway")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Shutdown with timeout
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	// Close Redis connection
	if redisStore != nil {
		if err := redisStore.Close(); err != nil {
			log.WithError(err).Warn("Failed to close Redis connection")
		}
	}

	// Shutdown tracer
	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Failed to shutdown tracer")
		}
	}

	log.Info("Server exited")
}

func initDatabase(cfg *config.DatabaseConfig, env string) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	logLevel := gormLogger.Silent
	if env != "production" {
		logLevel = gormLogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

func runMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Language{},
		&models.TranslationArchive{},
		&models.TranslationStats{},
	)
}

func startCleanupTask(repo repository.TranslationRepository, log *logrus.Entry) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		deleted, err := repo.DeleteExpiredTranslations(ctx)
		cancel()

		if err != nil {
			log.WithError(err).Warn("Failed to clean up expired translations")
		} else if deleted > 0 {
			log.WithField("deleted", deleted).Info("Cleaned up expired translations")
		}
	}
}
