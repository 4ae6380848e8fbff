package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"github.com/anonto42/campus-hub/backend/internal/router"
	"github.com/anonto42/campus-hub/backend/pkg/config"
	"github.com/anonto42/campus-hub/backend/pkg/firebase"
	"github.com/anonto42/campus-hub/backend/pkg/logger"
	"github.com/anonto42/campus-hub/backend/validators"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty || cfg.IsDevelopment(),
		ServiceName: "campus-hub-api",
	})
	l := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to initialize databases")
	}
	defer db.CloseDB()

	var firebaseAuth *auth.Client
	if cfg.Firebase.CredentialsPath != "" {
		app, err := firebase.InitFirebase(ctx, cfg.Firebase.CredentialsPath)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to initialize Firebase")
		}
		firebaseAuth = app.AuthClient
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validators.NewValidator()

	config.SetupMiddleware(e, cfg)
	if err := router.SetupRoutes(ctx, e, cfg, db, firebaseAuth); err != nil {
		l.Fatal().Err(err).Msg("failed to set up routes")
	}

	go func() {
		l.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error().Err(err).Msg("server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	l.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("graceful shutdown failed")
	}
}
