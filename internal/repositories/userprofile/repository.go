package userprofile

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/fdtorres1/opusgraph/pkg/database"
	"github.com/fdtorres1/opusgraph/pkg/models"
	"github.com/fdtorres1/opusgraph/pkg/tracing"
)

// Repository handles user profile lookups
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new user profile repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a user profile by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "userprofile.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "email", "display_name", "role", "created_at", "updated_at")
	sb.From("user_profile")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var profile models.UserProfile
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &profile, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusUnauthorized, fmt.Sprintf("unknown user %s", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get user profile")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get user profile")
	}

	return &profile, nil
}
