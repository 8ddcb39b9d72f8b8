// Package server wires the HTTP routes and runs the API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/farellandr/lanzalife/config"
	"github.com/farellandr/lanzalife/internal/handlers"
	"github.com/farellandr/lanzalife/internal/logging"
	"github.com/farellandr/lanzalife/internal/middleware"
	"github.com/farellandr/lanzalife/internal/models"
	"github.com/farellandr/lanzalife/internal/queue"
)

const shutdownTimeout = 10 * time.Second

// Deps are the shared resources handlers reach through the gin context.
// Redis is optional.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Redis     *redis.Client
	Publisher queue.Publisher
	Logger    zerolog.Logger
}

// Start loads configuration, connects to the backing services and serves
// until SIGINT or SIGTERM.
func Start(logger zerolog.Logger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	db, err := config.InitDatabase(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := config.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		logger.Info().Msg("Redis not configured, response cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	if cfg.RabbitMQURL == "" {
		logger.Info().Msg("RABBITMQ_URL not set, schedule notifications disabled")
	}

	gin.SetMode(cfg.GinMode)
	r := NewRouter(Deps{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		Publisher: queue.NewPublisher(cfg.RabbitMQURL),
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("db_driver", cfg.DBDriver).Msg("Server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

// NewRouter builds the engine with middleware and every API route.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(logging.RequestLogger(deps.Logger), logging.Recovery())
	r.Use(middleware.CORS(deps.Config.CORSOrigin))
	r.Use(middleware.DatabaseMiddleware(deps.DB))
	r.Use(middleware.ConfigMiddleware(deps.Config))
	if deps.Publisher != nil {
		r.Use(middleware.PublisherMiddleware(deps.Publisher))
	}

	r.Static("/uploads", deps.Config.UploadDir)
	setupRoutes(r, deps)
	return r
}

func setupRoutes(r *gin.Engine, deps Deps) {
	cfg := deps.Config
	cached := middleware.ResponseCache(cfg.Cache, deps.Redis)
	invalidate := middleware.InvalidateCache(cfg.Cache, deps.Redis)
	authenticated := middleware.JWTAuthMiddleware(cfg.JWTSecret)
	admin := middleware.RequireRoles(models.RoleAdmin)
	managers := middleware.RequireRoles(models.RoleAdmin, models.RolePlaceOwner)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		limited := middleware.RateLimit(cfg.RateLimit, deps.Redis)
		authGroup.POST("/register", limited, handlers.Register)
		authGroup.POST("/login", limited, handlers.Login)
		authGroup.GET("/me", authenticated, handlers.Me)
	}

	api.GET("/status", handlers.Status)
	api.GET("/areas", cached, handlers.ListAreas)

	activities := api.Group("/activities")
	{
		activities.GET("", cached, handlers.ListActivities)
		activities.POST("", authenticated, admin, invalidate, handlers.CreateActivity)
		activities.PUT("/:id", authenticated, admin, invalidate, handlers.UpdateActivity)
		activities.DELETE("/:id", authenticated, admin, invalidate, handlers.DeleteActivity)
	}

	places := api.Group("/places")
	{
		places.GET("", cached, handlers.SearchPlaces)
		places.GET("/:id", cached, handlers.GetPlace)
		places.POST("", authenticated, managers, invalidate, handlers.CreatePlace)
		places.PUT("/:id", authenticated, managers, invalidate, handlers.UpdatePlace)
		places.DELETE("/:id", authenticated, managers, invalidate, handlers.DeletePlace)
		places.POST("/:id/image", authenticated, managers, invalidate, handlers.UploadPlaceImage)
	}

	events := api.Group("/events")
	{
		events.GET("", cached, handlers.SearchEvents)
		events.POST("", authenticated, managers, invalidate, handlers.CreateEvent)
		events.PUT("/:id", authenticated, managers, invalidate, handlers.UpdateEvent)
		events.DELETE("/:id", authenticated, managers, invalidate, handlers.DeleteEvent)
	}

	adminGroup := api.Group("/admin", authenticated, managers)
	{
		adminGroup.GET("/places", handlers.ListAdminPlaces)
		adminGroup.GET("/events", handlers.ListAdminEvents)
	}
}
