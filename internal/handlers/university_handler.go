package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/anonto42/campus-hub/backend/internal/models"
	"github.com/anonto42/campus-hub/backend/internal/repositories"
)

// UniversityHandler serves the university catalogue.
type UniversityHandler struct {
	universityRepository repositories.UniversityRepository
}

func NewUniversityHandler(universityRepo repositories.UniversityRepository) *UniversityHandler {
	return &UniversityHandler{universityRepository: universityRepo}
}

func (h *UniversityHandler) RegisterUniversityRoutes(g *echo.Group) {
	g.POST("/universities", h.CreateUniversity)
	g.GET("/universities", h.ListUniversities)
	g.GET("/universities/:id", h.GetUniversity)
}

func (h *UniversityHandler) CreateUniversity(c echo.Context) error {
	var req models.CreateUniversityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	university := &models.University{
		Name:    req.Name,
		Slug:    req.Slug,
		Country: req.Country,
	}
	if err := h.universityRepository.CreateUniversity(c.Request().Context(), university); err != nil {
		return storeError(c, err)
	}
	return success(c, http.StatusCreated, university)
}

func (h *UniversityHandler) GetUniversity(c echo.Context) error {
	id, err := parseObjectIDParam(c, "id")
	if err != nil {
		return err
	}

	university, err := h.universityRepository.GetUniversityByID(c.Request().Context(), id)
	if err != nil {
		return storeError(c, err)
	}
	return success(c, http.StatusOK, university)
}

func (h *UniversityHandler) ListUniversities(c echo.Context) error {
	var p models.Pagination
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid pagination parameters")
	}
	if err := c.Validate(&p); err != nil {
		return err
	}
	p = p.WithDefaults()

	var (
		total        int64
		universities []models.University
	)
	g, ctx := errgroup.WithContext(c.Request().Context())
	g.Go(func() error {
		var err error
		total, err = h.universityRepository.CountUniversities(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		universities, err = h.universityRepository.GetUniversities(ctx, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return storeError(c, err)
	}

	return successWithMeta(c, universities, models.NewPageMeta(p, total))
}
