package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/anonto42/campus-hub/backend/internal/models"
	"github.com/anonto42/campus-hub/backend/internal/repositories"
)

// ClubHandler serves the club catalogue. Follower counts are read-only here.
type ClubHandler struct {
	clubRepository       repositories.ClubRepository
	universityRepository repositories.UniversityRepository
}

func NewClubHandler(clubRepo repositories.ClubRepository, universityRepo repositories.UniversityRepository) *ClubHandler {
	return &ClubHandler{
		clubRepository:       clubRepo,
		universityRepository: universityRepo,
	}
}

// RegisterClubRoutes registers club-related routes
func (h *ClubHandler) RegisterClubRoutes(g *echo.Group) {
	g.POST("/universities/:id/clubs", h.CreateClub)
	g.GET("/universities/:id/clubs", h.ListClubs)
	g.GET("/clubs/:id", h.GetClub)
	g.PUT("/clubs/:id", h.UpdateClub)
}

// CreateClub creates a club under the university in the path.
func (h *ClubHandler) CreateClub(c echo.Context) error {
	actorID, err := requireActor(c)
	if err != nil {
		return err
	}
	universityID, err := parseObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	var req models.CreateClubRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.universityRepository.GetUniversityByID(ctx, universityID); err != nil {
		return storeError(c, err)
	}

	club := &models.Club{
		UniversityID: universityID,
		Name:         req.Name,
		Slug:         req.Slug,
		Category:     req.Category,
		Description:  req.Description,
		CreatedBy:    actorID,
	}
	if err := h.clubRepository.CreateClub(ctx, club); err != nil {
		return storeError(c, err)
	}
	return success(c, http.StatusCreated, club)
}

func (h *ClubHandler) GetClub(c echo.Context) error {
	id, err := parseObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	club, err := h.clubRepository.GetClubByID(c.Request().Context(), id)
	if err != nil {
		return storeError(c, err)
	}
	return success(c, http.StatusOK, club)
}

// ListClubs returns a page of a university's clubs, optionally filtered by
// category.
func (h *ClubHandler) ListClubs(c echo.Context) error {
	universityID, err := parseObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	var (
		p      models.Pagination
		filter models.ClubFilter
	)
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid pagination parameters")
	}
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filter); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid filter")
	}
	if err := c.Validate(&p); err != nil {
		return err
	}
	if err := c.Validate(&filter); err != nil {
		return err
	}
	p = p.WithDefaults()

	var (
		total int64
		clubs []models.Club
	)
	g, ctx := errgroup.WithContext(c.Request().Context())
	g.Go(func() error {
		var err error
		total, err = h.clubRepository.CountClubsByUniversity(ctx, universityID, filter)
		return err
	})
	g.Go(func() error {
		var err error
		clubs, err = h.clubRepository.GetClubsByUniversity(ctx, universityID, filter, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return storeError(c, err)
	}

	return successWithMeta(c, clubs, models.NewPageMeta(p, total))
}

// UpdateClub edits name, category or description.
func (h *ClubHandler) UpdateClub(c echo.Context) error {
	id, err := parseObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdateClubRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	club, err := h.clubRepository.UpdateClub(c.Request().Context(), id, &req)
	if err != nil {
		return storeError(c, err)
	}
	return success(c, http.StatusOK, club)
}
