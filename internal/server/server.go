// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moments/internal/cache"
	"moments/internal/config"
	"moments/internal/database"
	"moments/internal/featureflags"
	"moments/internal/middleware"
	"moments/internal/models"
	"moments/internal/notifications"
	"moments/internal/observability"
	"moments/internal/service"
	"moments/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Dependencies are the already-initialized resources a Server runs on. Only
// Store is required.
type Dependencies struct {
	Store *store.Store
	DB    *gorm.DB
	Redis *redis.Client
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          *store.Store
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	auth           *middleware.SessionAuth
	featureFlags   *featureflags.Manager
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	userService    *service.UserService
	momentService  *service.MomentService
	feedService    *service.FeedService
	searchService  *service.SearchService
}

// NewServer creates a new server instance with all dependencies: it connects
// the database and Redis when configured, loads the seed dataset and builds
// the store.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	switch {
	case err == nil:
	case errors.Is(err, database.ErrNoDriver):
		db = nil
	default:
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.InitRedis(ctx, cfg.RedisURL)
		if err != nil {
			// Cache, rate limiting and cross-instance fan-out degrade to local behavior.
			observability.GlobalLogger.WarnContext(ctx, "redis unavailable, continuing without it",
				slog.String("error", err.Error()))
			redisClient = nil
		}
	}

	st, err := OpenStore(ctx, cfg, db)
	if err != nil {
		if db != nil {
			_ = database.Close(db)
		}
		return nil, err
	}

	return NewServerWithDeps(cfg, Dependencies{Store: st, DB: db, Redis: redisClient}), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes the store itself.
func NewServerWithDeps(cfg *config.Config, deps Dependencies) *Server {
	s := &Server{
		config:         cfg,
		store:          deps.Store,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("moments-api"),
		auth:           middleware.NewSessionAuth(cfg.JWTSecret, time.Duration(cfg.SessionTTLMinutes)*time.Minute),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		notifier:       notifications.NewNotifier(deps.Redis),
	}

	svcDeps := service.Deps{
		Source:    deps.Store,
		Writer:    deps.Store,
		Publisher: s.notifier,
		Gate:      s.featureFlags,
		Status:    service.StatusResolver{Mode: service.StatusMode(cfg.StatusMode)},
		CacheTTL:  time.Duration(cfg.CacheTTLSeconds) * time.Second,
	}
	if deps.Redis != nil {
		svcDeps.Cache = cache.NewJSONCache(deps.Redis, "aggregates")
	}

	s.userService = service.NewUserService(svcDeps)
	s.momentService = service.NewMomentService(svcDeps)
	s.feedService = service.NewFeedService(svcDeps)
	s.searchService = service.NewSearchService(svcDeps)
	s.hub = notifications.NewHub(s.userService)

	return s
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Spans first so the context middleware can pick up the trace ID
	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. rate limiting)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8081,http://localhost:19006"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		MaxAge:       86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Every API route sees the session when a valid token is present.
	api := app.Group("/api", s.auth.OptionalSession,
		middleware.RateLimit(s.redis, s.config.RateLimitPerMinute, time.Minute, "api"))

	api.Get("/feature-flags", s.GetFeatureFlags)

	// User routes. Specific /:id/:resource routes before the generic /:id route.
	users := api.Group("/users")
	users.Get("/by-username/:username", s.GetUserByUsername)
	users.Get("/:id/moments", s.GetUserMoments)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id/following", s.GetFollowing)
	users.Get("/:id/follow-counts", s.GetFollowCounts)
	users.Get("/:id/is-following/:targetId", s.IsFollowing)
	users.Post("/:id/follow", s.auth.AuthRequired, s.writeLimit(30, "follow"), s.Follow)
	users.Get("/:id", s.GetUser)

	api.Get("/profiles/:username", s.GetProfile)

	// Moment routes
	moments := api.Group("/moments")
	moments.Post("/", s.auth.AuthRequired, s.writeLimit(10, "create_moment"), s.CreateMoment)
	moments.Get("/:id/detail", s.GetMomentDetail)
	moments.Get("/:id/rsvps", s.GetMomentRSVPs)
	moments.Get("/:id/rsvp-count", s.GetRSVPCount)
	moments.Post("/:id/rsvp", s.auth.AuthRequired, s.writeLimit(30, "rsvp"), s.RSVP)
	moments.Get("/:id", s.GetMoment)

	// Feed routes
	feed := api.Group("/feed")
	feed.Get("/items", s.GetFeedItems)
	feed.Get("/cards", s.GetFeedCards)
	feed.Get("/following", s.GetFollowingFeed)

	api.Get("/search", middleware.RateLimit(s.redis, 60, time.Minute, "search"), s.Search)

	// Websocket endpoint; browsers cannot set headers on upgrade requests.
	app.Get("/api/ws/feed", s.auth.WebSocketAuthRequired, s.WebSocketFeedHandler())
}

// LivenessCheck handles liveness probe requests
// writeLimit rate limits a write route per minute under the configured
// failure policy.
func (s *Server) writeLimit(limit int, name string) fiber.Handler {
	policy := middleware.FailOpen
	if s.config.RateLimitWritesFailClosed {
		policy = middleware.FailClosed
	}
	return middleware.RateLimitWithPolicy(s.redis, limit, time.Minute, policy, name)
}

func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. The database and Redis are
// optional; when configured they must answer a ping.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "disabled"
	if s.db != nil {
		dbStatus = "healthy"
		sqlDB, err := s.db.DB()
		if err != nil {
			dbStatus = "unhealthy"
		} else if err := sqlDB.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
		}
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	var version uint64
	if s.store != nil {
		version = s.store.Snapshot().Version()
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if s.store == nil || dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"snapshot_version": version,
		"time":             time.Now(),
	})
}

// App builds the Fiber app with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Moments API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			observability.GlobalLogger.ErrorContext(c.UserContext(), "unhandled error",
				slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start runs the store writer and the live feed wiring, then serves HTTP
// until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	go s.store.Run(ctx)

	go func() {
		if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
			observability.GlobalLogger.Error("failed to start hub wiring",
				slog.String("hub", s.hub.Name()),
				slog.String("error", err.Error()))
		}
	}()

	s.app = s.App()
	observability.GlobalLogger.Info("server starting",
		slog.String("port", s.config.Port),
		slog.Uint64("snapshot_version", s.store.Snapshot().Version()))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Drain HTTP first so in-flight writes still reach the store writer
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.GlobalLogger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop the writer and wiring goroutines
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	// Close WebSocket connections gracefully
	if err := s.hub.Shutdown(ctx); err != nil {
		observability.GlobalLogger.Error("error shutting down hub",
			slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
	}

	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			observability.GlobalLogger.Error("error closing database", slog.String("error", err.Error()))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			observability.GlobalLogger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	observability.GlobalLogger.Info("server shutdown complete")
	return nil
}
