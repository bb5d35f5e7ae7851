package country

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/fdtorres1/opusgraph/pkg/database"
	"github.com/fdtorres1/opusgraph/pkg/models"
	"github.com/fdtorres1/opusgraph/pkg/tracing"
)

// Repository reads the seeded country reference table
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new country repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// List retrieves all countries ordered by name
func (r *Repository) List(ctx context.Context) ([]models.Country, error) {
	ctx, span := tracing.StartSpan(ctx, "country.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("iso2", "name")
	sb.From("country")
	sb.OrderBy("name")

	query, args := sb.Build()
	var countries []models.Country
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &countries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list countries")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list countries")
	}

	return countries, nil
}

// KnownCodes returns the set of valid ISO2 codes for import validation
func (r *Repository) KnownCodes(ctx context.Context) (map[string]bool, error) {
	ctx, span := tracing.StartSpan(ctx, "country.Repository.KnownCodes")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("iso2")
	sb.From("country")

	query, args := sb.Build()
	var codes []string
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &codes, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to fetch country codes")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to fetch country codes")
	}

	known := make(map[string]bool, len(codes))
	for _, code := range codes {
		known[code] = true
	}
	return known, nil
}
