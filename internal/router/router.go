package router

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"github.com/anonto42/campus-hub/backend/internal/cache"
	"github.com/anonto42/campus-hub/backend/internal/handlers"
	"github.com/anonto42/campus-hub/backend/internal/middleware"
	"github.com/anonto42/campus-hub/backend/internal/models"
	"github.com/anonto42/campus-hub/backend/internal/repositories"
	"github.com/anonto42/campus-hub/backend/internal/services"
	"github.com/anonto42/campus-hub/backend/pkg/config"
	"github.com/anonto42/campus-hub/backend/pkg/logger"
)

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// SetupRoutes configures all application routes and injects dependencies.
// firebaseAuthClient may be nil when Firebase is not configured.
func SetupRoutes(ctx context.Context, e *echo.Echo, cfg *config.Config, db *config.DB, firebaseAuthClient *auth.Client) error {
	l := logger.L()

	if err := db.Postgres.WithContext(ctx).AutoMigrate(&models.User{}); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	l.Info().Msg("PostgreSQL auto-migrations completed")

	// --- Initialize Repositories ---
	mdb := db.MongoDatabase()
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	universityRepo := repositories.NewMongoUniversityRepository(mdb)
	clubRepo := repositories.NewMongoClubRepository(mdb)
	followRepo := repositories.NewMongoFollowRepository(mdb)

	for _, idx := range []indexer{universityRepo, clubRepo, followRepo} {
		if err := idx.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("failed to ensure indexes: %w", err)
		}
	}
	l.Info().Msg("MongoDB indexes ensured")

	var countCache cache.FollowerCountCache
	if db.Redis != nil {
		countCache = cache.NewRedisFollowerCountCache(db.Redis, cfg.Redis.TTL)
	}

	var verifier middleware.TokenVerifier
	if firebaseAuthClient != nil {
		verifier = firebaseAuthClient
	}

	followService := services.NewFollowService(followRepo, clubRepo, countCache, services.RetryPolicy{
		MaxAttempts: cfg.Follow.MaxRetries,
		BaseDelay:   cfg.Follow.RetryDelay,
	})

	// Health check - always accessible
	e.GET("/health", handlers.NewHealthHandler(db).HealthCheck)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	handlers.NewAuthHandler(userRepo, verifier, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).RegisterAuthRoutes(authGroup)

	// --- Protected routes ---
	api := e.Group("/api/v1")
	switch cfg.Auth.Provider {
	case "firebase":
		if verifier == nil {
			return fmt.Errorf("auth.provider=firebase but firebase is not initialized")
		}
		api.Use(middleware.FirebaseAuthMiddleware(verifier, userRepo))
	default:
		api.Use(middleware.JWTAuthMiddleware(cfg.Auth.JWTSecret))
	}
	l.Info().Str("provider", cfg.Auth.Provider).Msg("auth middleware applied to /api/v1 group")

	handlers.NewUserHandler(userRepo).RegisterProfileRoutes(api)
	handlers.NewUniversityHandler(universityRepo).RegisterUniversityRoutes(api)
	handlers.NewClubHandler(clubRepo, universityRepo).RegisterClubRoutes(api)
	handlers.NewFollowHandler(followService).RegisterFollowRoutes(api)

	l.Info().Bool("follower_count_cache", countCache != nil).Msg("all routes configured")
	return nil
}
