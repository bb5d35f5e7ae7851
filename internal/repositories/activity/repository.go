package activity

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/fdtorres1/opusgraph/pkg/database"
	"github.com/fdtorres1/opusgraph/pkg/models"
	"github.com/fdtorres1/opusgraph/pkg/tracing"
)

// Repository projects the activity feed as a union over revision and
// review_flag rows. Nothing is written; the feed is read-only.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new activity repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const feedQuery = `
	SELECT source, entity_type, entity_id, actor_id, action, occurred_at FROM (
		SELECT 'revision' AS source, entity_type, entity_id, actor_id, action, created_at AS occurred_at
		FROM revision
		UNION ALL
		SELECT 'review_flag' AS source, entity_type, entity_id, created_by AS actor_id, reason AS action, created_at AS occurred_at
		FROM review_flag
	) feed
	ORDER BY occurred_at DESC
	LIMIT $1 OFFSET $2`

const feedCountQuery = `
	SELECT (SELECT COUNT(*) FROM revision) + (SELECT COUNT(*) FROM review_flag)`

// List retrieves the most recent activity events, newest first
func (r *Repository) List(ctx context.Context, page, pageSize int) ([]models.ActivityEvent, int, error) {
	ctx, span := tracing.StartSpan(ctx, "activity.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	var events []models.ActivityEvent
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &events, feedQuery, pageSize, (page-1)*pageSize); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list activity events")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list activity events")
	}

	var total int
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &total, feedCountQuery); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count activity events")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count activity events")
	}

	return events, total, nil
}
