package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/anonto42/campus-hub/backend/internal/middleware"
	"github.com/anonto42/campus-hub/backend/internal/repositories"
	"github.com/anonto42/campus-hub/backend/internal/services"
	"github.com/anonto42/campus-hub/backend/pkg/logger"
)

const headerRetryAfter = "Retry-After"

// retryAfterSeconds is advertised when a toggle gave up on write conflicts.
const retryAfterSeconds = "1"

func success(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{
		"success": true,
		"data":    data,
	})
}

func successWithMeta(c echo.Context, data, meta interface{}) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    data,
		"meta":    meta,
	})
}

// requireActor returns the authenticated actor id or a 401.
func requireActor(c echo.Context) (string, error) {
	actorID := middleware.ActorID(c)
	if actorID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return actorID, nil
}

func parseObjectIDParam(c echo.Context, name string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return oid, nil
}

// serviceError translates follow service errors into HTTP errors.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrStorageFault) && errors.Is(err, repositories.ErrTransientConflict):
		c.Response().Header().Set(headerRetryAfter, retryAfterSeconds)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Too much contention, try again").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}
}

// storeError translates catalogue repository errors into HTTP errors.
func storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repositories.ErrClubNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Club not found")
	case errors.Is(err, repositories.ErrUniversityNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "University not found")
	case errors.Is(err, repositories.ErrDuplicateSlug):
		return echo.NewHTTPError(http.StatusConflict, "Slug already taken")
	}

	l := logger.Ctx(c.Request().Context())
	l.Error().Err(err).Msg("catalogue store error")
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
}
