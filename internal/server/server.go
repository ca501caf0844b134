// Package server provides HTTP server setup and configuration.
package server

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/sebasr/greetcard-service/internal/config"
	"github.com/sebasr/greetcard-service/internal/docs"
	"github.com/sebasr/greetcard-service/internal/events"
	"github.com/sebasr/greetcard-service/internal/handlers"
	"github.com/sebasr/greetcard-service/internal/metrics"
	"github.com/sebasr/greetcard-service/internal/middleware"
	"github.com/sebasr/greetcard-service/internal/repository"
	"github.com/sebasr/greetcard-service/internal/web"
)

const (
	healthPath  = "/api/health"
	metricsPath = "/metrics"
)

// Dependencies holds all dependencies needed to create a server
type Dependencies struct {
	Config        *config.Config
	Repo          repository.GreetingRepository
	HealthChecker repository.HealthChecker // Optional: nil reports healthy
	Publisher     events.Publisher         // Optional: nil disables events
	Logger        *zap.Logger              // Optional: nil discards logs
	IDGenerator   handlers.IDGenerator     // Optional: nil uses crypto/rand identifiers
}

// New creates a new Gin router with all routes configured
func New(deps *Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	// gin.New() instead of gin.Default(): request logging goes through zap
	router := gin.New()

	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	metrics.MustRegister()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger, healthPath, metricsPath))
	router.Use(middleware.Metrics())

	// Add CORS middleware for web client support
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Encoding", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.NewRateLimitMiddleware(cfg.RateLimit.PerMinute))
	router.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithDecompressFn(gzip.DefaultDecompressHandle),
		gzip.WithExcludedPaths([]string{metricsPath}),
	))

	greetingHandler := handlers.NewGreetingHandler(deps.Repo, logger).
		WithPublisher(deps.Publisher).
		WithIDGenerator(deps.IDGenerator).
		WithPublicBaseURL(cfg.Server.PublicBaseURL)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecker)
	pageHandler := handlers.NewPageHandler(deps.Repo, greetingHandler, logger)

	createLimiter := middleware.NewRateLimitMiddleware(cfg.RateLimit.CreatePerMinute)

	api := router.Group("/api")
	{
		api.GET("/health", healthHandler.Check)
		api.POST("/create", createLimiter, greetingHandler.Create)
		api.GET("/get", greetingHandler.Get)
	}

	router.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	docs.SwaggerInfo.BasePath = "/"
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/", pageHandler.Index)
	router.StaticFS("/static", web.Static())

	return router, nil
}
