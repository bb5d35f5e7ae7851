package revision

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/fdtorres1/opusgraph/pkg/database"
	"github.com/fdtorres1/opusgraph/pkg/models"
	"github.com/fdtorres1/opusgraph/pkg/tracing"
)

var revisionColumns = []string{"id", "entity_type", "entity_id", "actor_id", "action", "snapshot", "diff", "created_at"}

// Repository handles revision persistence. Rows are append-only; there is
// no update or delete path.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new revision repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Insert appends a revision row
func (r *Repository) Insert(ctx context.Context, revision *models.Revision) error {
	ctx, span := tracing.StartSpan(ctx, "revision.Repository.Insert")
	defer span.End()

	if revision.ID == "" {
		revision.ID = uuid.New().String()
	}
	revision.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("revision")
	sb.Cols(revisionColumns...)
	sb.Values(revision.ID, revision.EntityType, revision.EntityID, revision.ActorID, revision.Action, revision.Snapshot, revision.Diff, revision.CreatedAt)

	query, args := sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_type": revision.EntityType,
			"entity_id":   revision.EntityID,
		}).Error("Failed to insert revision")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert revision")
	}

	return nil
}

// ListByEntity retrieves revisions for one entity, newest first
func (r *Repository) ListByEntity(ctx context.Context, entityType models.EntityType, entityID string, page, pageSize int) ([]models.Revision, int, error) {
	ctx, span := tracing.StartSpan(ctx, "revision.Repository.ListByEntity")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(revisionColumns...)
	sb.From("revision")
	sb.Where(
		sb.Equal("entity_type", entityType),
		sb.Equal("entity_id", entityID),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset((page - 1) * pageSize)

	query, args := sb.Build()
	var revisions []models.Revision
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &revisions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list revisions")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list revisions")
	}

	cb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	cb.Select("COUNT(*)")
	cb.From("revision")
	cb.Where(
		cb.Equal("entity_type", entityType),
		cb.Equal("entity_id", entityID),
	)

	countQuery, countArgs := cb.Build()
	var total int
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count revisions")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count revisions")
	}

	return revisions, total, nil
}
