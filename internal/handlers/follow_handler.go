package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/campus-hub/backend/internal/models"
	"github.com/anonto42/campus-hub/backend/internal/services"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followService services.FollowService
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followService services.FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/clubs/:id/follow", h.ToggleFollow)
	g.GET("/clubs/:id/followers/count", h.FollowersCount)
	g.GET("/me/follows", h.ListFollows)
	g.POST("/me/follows/status", h.FollowStatus)
}

// ToggleFollow follows the club if the caller does not follow it yet and
// unfollows it otherwise.
func (h *FollowHandler) ToggleFollow(c echo.Context) error {
	actorID, err := requireActor(c)
	if err != nil {
		return err
	}

	status, err := h.followService.ToggleFollow(c.Request().Context(), actorID, c.Param("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, http.StatusOK, status)
}

// ListFollows returns a page of the clubs the caller follows.
func (h *FollowHandler) ListFollows(c echo.Context) error {
	actorID, err := requireActor(c)
	if err != nil {
		return err
	}

	var p models.Pagination
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid pagination parameters")
	}
	if err := c.Validate(&p); err != nil {
		return err
	}

	res, err := h.followService.ListFollows(c.Request().Context(), actorID, p.WithDefaults())
	if err != nil {
		return serviceError(c, err)
	}
	return successWithMeta(c, res.Data, res.Meta)
}

// FollowStatus reports which of the requested clubs the caller follows.
func (h *FollowHandler) FollowStatus(c echo.Context) error {
	actorID, err := requireActor(c)
	if err != nil {
		return err
	}

	var req models.FollowStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	following, err := h.followService.IsFollowing(c.Request().Context(), actorID, req.ClubIDs)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, http.StatusOK, following)
}

func (h *FollowHandler) FollowersCount(c echo.Context) error {
	clubID := c.Param("id")
	count, err := h.followService.FollowersCount(c.Request().Context(), clubID)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, http.StatusOK, echo.Map{
		"club_id":         clubID,
		"followers_count": count,
	})
}
