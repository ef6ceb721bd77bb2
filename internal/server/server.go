// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "fittedin/docs" // swagger docs
	"fittedin/internal/bootstrap"
	"fittedin/internal/config"
	"fittedin/internal/middleware"
	"fittedin/internal/models"
	"fittedin/internal/notifications"
	"fittedin/internal/repository"
	"fittedin/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	notifier  *notifications.Notifier
	hub       *notifications.Hub
	publisher *notifications.Publisher

	userService         *service.UserService
	profileService      *service.ProfileService
	connectionService   *service.ConnectionService
	notificationService *service.NotificationService
	goalService         *service.GoalService
	postService         *service.PostService
	activityService     *service.ActivityService
}

// NewServer connects to the database and Redis and creates a server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; realtime events are then delivered to this
// instance's sessions only.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires a config and a database")
	}

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	connRepo := repository.NewConnectionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	postRepo := repository.NewPostRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("fittedin-api"),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
	}
	s.publisher = notifications.NewPublisher(s.hub, s.notifier)

	s.activityService = service.NewActivityService(activityRepo, connRepo)
	s.notificationService = service.NewNotificationService(notificationRepo, s.publisher)
	s.userService = service.NewUserService(userRepo)
	s.profileService = service.NewProfileService(profileRepo, userRepo, s.activityService)
	s.connectionService = service.NewConnectionService(
		connRepo, userRepo, s.notificationService, s.activityService, s.publisher,
		service.NewConnectionPolicy(cfg),
	)
	s.goalService = service.NewGoalService(goalRepo, s.notificationService, s.activityService)
	s.postService = service.NewPostService(postRepo, connRepo, userRepo, s.notificationService)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	if s.config.IsProduction() {
		app.Use(limiter.New(limiter.Config{
			Max:        300,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Too many requests, please try again later.",
				})
			},
		}))
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Browsers cannot set headers on the upgrade request, so the stream
	// authenticates with the ?token= query parameter instead of AuthRequired.
	api.Get("/ws", middleware.WebSocketAuthRequired, s.WebSocketUpgrade, s.NotificationStream())

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 15*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", middleware.AuthRequired, s.Logout)
	auth.Get("/me", middleware.AuthRequired, s.Me)

	users := api.Group("/users", middleware.AuthRequired)
	users.Get("/me", s.GetMyAccount)
	users.Put("/me", s.UpdateMyAccount)
	users.Delete("/me", s.DeleteMyAccount)
	users.Get("/:id", s.GetUser)

	profiles := api.Group("/profiles", middleware.AuthRequired)
	profiles.Get("/me", s.GetMyProfile)
	profiles.Put("/me", s.UpdateMyProfile)
	profiles.Get("/:userId", s.GetUserProfile)

	// Specific paths are registered before the /:id patterns.
	connections := api.Group("/connections", middleware.AuthRequired)
	connections.Post("/", middleware.RateLimit(s.redis, 30, time.Minute, "connection_request"), s.SendConnectionRequest)
	connections.Get("/", s.GetConnections)
	connections.Get("/pending", s.GetPendingRequests)
	connections.Get("/search", middleware.RateLimit(s.redis, 30, time.Minute, "connection_search"), s.SearchUsers)
	connections.Get("/status/:userId", s.GetConnectionStatus)
	connections.Post("/auto-accept-pending", s.AutoAcceptPending)
	connections.Post("/block/:userId", s.BlockUser)
	connections.Delete("/block/:userId", s.UnblockUser)
	connections.Put("/:id/accept", s.AcceptConnectionRequest)
	connections.Put("/:id/reject", s.RejectConnectionRequest)
	connections.Delete("/:id", s.RemoveConnection)

	notificationRoutes := api.Group("/notifications", middleware.AuthRequired)
	notificationRoutes.Get("/", s.GetNotifications)
	notificationRoutes.Get("/unread-count", s.GetUnreadCount)
	notificationRoutes.Put("/read-all", s.MarkAllNotificationsRead)
	notificationRoutes.Put("/:id/read", s.MarkNotificationRead)
	notificationRoutes.Delete("/:id", s.DeleteNotification)

	goals := api.Group("/goals", middleware.AuthRequired)
	goals.Get("/", s.GetGoals)
	goals.Get("/summary", s.GetGoalSummary)
	goals.Post("/", s.CreateGoal)
	goals.Get("/:id", s.GetGoal)
	goals.Put("/:id", s.UpdateGoal)
	goals.Delete("/:id", s.DeleteGoal)

	posts := api.Group("/posts", middleware.AuthRequired)
	posts.Get("/feed", s.GetFeed)
	posts.Get("/user/:userId", s.GetUserPosts)
	posts.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Delete("/comments/:id", s.DeleteComment)
	posts.Post("/:id/like", s.LikePost)
	posts.Delete("/:id/like", s.UnlikePost)
	posts.Post("/:id/comment", middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	activities := api.Group("/activities", middleware.AuthRequired)
	activities.Get("/", s.GetActivities)
	activities.Get("/feed", s.GetActivityFeed)
}

// LivenessCheck handles liveness probe requests
// @Summary Liveness probe
// @Tags ops
// @Produce json
// @Success 200 {object} object{status=string,time=string}
// @Router /health/live [get]
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so an
// unconfigured Redis does not make the service unready.
// @Summary Readiness probe
// @Tags ops
// @Produce json
// @Success 200 {object} object{status=string,checks=object}
// @Failure 503 {object} object{status=string,checks=object}
// @Router /health/ready [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// errorHandler reports errors that escaped a handler in the API envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: fiberErrorCode(fe.Code)})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

func fiberErrorCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return models.CodeNotFound
	case fiber.StatusUnauthorized:
		return models.CodeUnauthorized
	case fiber.StatusForbidden:
		return models.CodeForbidden
	case fiber.StatusBadRequest, fiber.StatusMethodNotAllowed, fiber.StatusRequestEntityTooLarge:
		return models.CodeValidation
	default:
		return models.CodeInternal
	}
}

// App returns the configured Fiber app, building it on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "FittedIn API",
		ErrorHandler: errorHandler,
		BodyLimit:    1 << 20,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// StartRealtime subscribes the hub to Redis so events published by any
// instance reach this instance's sessions.
func (s *Server) StartRealtime(ctx context.Context) error {
	return s.hub.StartWiring(ctx, s.notifier)
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()
	if err := s.StartRealtime(s.shutdownCtx); err != nil {
		middleware.Logger.Error("failed to start realtime wiring", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}
	if err := s.hub.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", s.hub.Name(), err))
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			errs = append(errs, fmt.Errorf("sql DB: %w", cerr))
		}
	}
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			errs = append(errs, fmt.Errorf("redis: %w", rerr))
		}
	}

	if err := errors.Join(errs...); err != nil {
		middleware.Logger.Error("shutdown finished with errors", slog.String("error", err.Error()))
		return err
	}
	middleware.Logger.Info("Server shutdown complete")
	return nil
}
