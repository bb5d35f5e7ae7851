package reviewflag

import (
	"context"
	"fmt"
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

var flagColumns = []string{"id", "entity_type", "entity_id", "reason", "status", "details", "created_by", "resolved_by", "resolved_at", "created_at", "updated_at"}

// Repository handles review flag persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new review flag repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new open review flag
func (r *Repository) Create(ctx context.Context, flag *models.ReviewFlag) (*models.ReviewFlag, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewflag.Repository.Create")
	defer span.End()

	if flag.ID == "" {
		flag.ID = uuid.New().String()
	}
	flag.Status = models.FlagStatusOpen
	flag.CreatedAt = time.Now().UTC()
	flag.UpdatedAt = flag.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("review_flag")
	sb.Cols("id", "entity_type", "entity_id", "reason", "status", "details", "created_by", "created_at", "updated_at")
	sb.Values(flag.ID, flag.EntityType, flag.EntityID, flag.Reason, flag.Status, flag.Details, flag.CreatedBy, flag.CreatedAt, flag.UpdatedAt)

	query, args := sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"flag_id": flag.ID}).Error("Failed to create review flag")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create review flag")
	}

	return flag, nil
}

// Get retrieves a review flag by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.ReviewFlag, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewflag.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(flagColumns...)
	sb.From("review_flag")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var flag models.ReviewFlag
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &flag, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("review flag %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get review flag")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review flag")
	}

	return &flag, nil
}

// List retrieves review flags with optional reason and status filters
func (r *Repository) List(ctx context.Context, reason string, status string, page, pageSize int) ([]models.ReviewFlag, int, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewflag.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(flagColumns...)
	sb.From("review_flag")
	if reason != "" {
		sb.Where(sb.Equal("reason", reason))
	}
	if status != "" {
		sb.Where(sb.Equal("status", status))
	}
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset((page - 1) * pageSize)

	query, args := sb.Build()
	var flags []models.ReviewFlag
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &flags, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list review flags")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list review flags")
	}

	cb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	cb.Select("COUNT(*)")
	cb.From("review_flag")
	if reason != "" {
		cb.Where(cb.Equal("reason", reason))
	}
	if status != "" {
		cb.Where(cb.Equal("status", status))
	}

	countQuery, countArgs := cb.Build()
	var total int
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count review flags")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count review flags")
	}

	return flags, total, nil
}

// Resolve moves a flag to a terminal status and stamps the resolver.
// Re-resolving a flag already in the requested terminal state is a no-op.
func (r *Repository) Resolve(ctx context.Context, id string, status models.FlagStatus, resolvedBy string) (*models.ReviewFlag, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewflag.Repository.Resolve")
	defer span.End()

	flag, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if flag.Status == status {
		return flag, nil
	}

	now := time.Now().UTC()
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("review_flag")
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("resolved_by", resolvedBy),
		ub.Assign("resolved_at", now),
		ub.Assign("updated_at", now),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"flag_id": id}).Error("Failed to resolve review flag")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve review flag")
	}

	flag.Status = status
	flag.ResolvedBy = &resolvedBy
	flag.ResolvedAt = &now
	flag.UpdatedAt = now
	return flag, nil
}
