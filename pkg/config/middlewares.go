package config

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/anonto42/campus-hub/backend/pkg/logger"
)

// SetupMiddleware installs the global middleware chain. The request timeout
// bounds every handler context, which also bounds any store transaction the
// handler starts.
func SetupMiddleware(e *echo.Echo, cfg *Config) {
	e.Use(middleware.Recover())
	e.Use(logger.EchoMiddleware(logger.L()))
	e.Use(middleware.CORS())
	if cfg.Server.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeout(cfg.Server.RequestTimeout))
	}
}
