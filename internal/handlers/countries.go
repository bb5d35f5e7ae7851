package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/fdtorres1/opusgraph/pkg/models"
)

// CountryRepo reads the country reference table
type CountryRepo interface {
	List(ctx context.Context) ([]models.Country, error)
}

// CountryHandler serves the country reference list used by nationality pickers
type CountryHandler struct {
	countries CountryRepo
	logger    ectologger.Logger
}

// NewCountryHandler creates a new country handler
func NewCountryHandler(countries CountryRepo, logger ectologger.Logger) *CountryHandler {
	return &CountryHandler{
		countries: countries,
		logger:    logger,
	}
}

// RegisterRoutes registers country routes
func (h *CountryHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/countries", h.List)
}

// List returns all countries ordered by name
func (h *CountryHandler) List(c echo.Context) error {
	countries, err := h.countries.List(c.Request().Context())
	if err != nil {
		return err
	}
	return SuccessResponse(c, countries)
}
