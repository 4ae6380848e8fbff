package logger

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const headerRequestID = echo.HeaderXRequestID

// EchoMiddleware attaches a request-scoped child logger to the request
// context, echoes X-Request-ID back to the client and logs every completed
// request.
func EchoMiddleware(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			reqID := req.Header.Get(headerRequestID)
			if reqID == "" {
				reqID = uuid.New().String()
			}

			child := logger.With().
				Str(FieldRequestID, reqID).
				Str(FieldMethod, req.Method).
				Str(FieldPath, req.URL.Path).
				Str(FieldClientIP, c.RealIP()).
				Logger()

			c.Response().Header().Set(headerRequestID, reqID)
			c.SetRequest(req.WithContext(WithLogger(req.Context(), child)))

			err := next(c)
			if err != nil {
				// Let echo render the error so the logged status is final.
				c.Error(err)
			}

			evt := child.Info()
			if c.Response().Status >= 500 {
				evt = child.Error().Err(err)
			}
			evt = evt.
				Int(FieldStatus, c.Response().Status).
				Float64(FieldLatency, float64(time.Since(start).Milliseconds()))
			if actorID, ok := c.Get(FieldActorID).(string); ok && actorID != "" {
				evt = evt.Str(FieldActorID, actorID)
			}
			evt.Msg("request completed")

			return nil
		}
	}
}
