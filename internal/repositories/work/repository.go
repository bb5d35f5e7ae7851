package work

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
	"github.com/fdtorres1/opusgraph/pkg/matching"
	"github.com/fdtorres1/opusgraph/pkg/models"
	"github.com/fdtorres1/opusgraph/pkg/tracing"
)

const candidateSimilarityFloor = 0.4

var workColumns = []string{"id", "composer_id", "name", "opus_number", "composition_year", "duration_seconds", "description", "status", "created_by", "created_at", "updated_at"}

// Repository handles work persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new work repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new work
func (r *Repository) Create(ctx context.Context, work *models.Work) (*models.Work, error) {
	ctx, span := tracing.StartSpan(ctx, "work.Repository.Create")
	defer span.End()

	if work.ID == "" {
		work.ID = uuid.New().String()
	}
	if work.Status == "" {
		work.Status = models.EntityStatusDraft
	}
	work.CreatedAt = time.Now().UTC()
	work.UpdatedAt = work.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("work")
	sb.Cols(workColumns...)
	sb.Values(work.ID, work.ComposerID, work.Name, work.OpusNumber, work.CompositionYear, work.DurationSeconds, work.Description, work.Status, work.CreatedBy, work.CreatedAt, work.UpdatedAt)

	query, args := sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"work_id": work.ID}).Error("Failed to create work")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create work")
	}

	return work, nil
}

// Get retrieves a work by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Work, error) {
	ctx, span := tracing.StartSpan(ctx, "work.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(workColumns...)
	sb.From("work")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var work models.Work
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &work, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("work %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get work")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get work")
	}

	return &work, nil
}

// GetWithChildren retrieves a work with its sources and recordings
func (r *Repository) GetWithChildren(ctx context.Context, id string) (*models.WorkWithChildren, error) {
	ctx, span := tracing.StartSpan(ctx, "work.Repository.GetWithChildren")
	defer span.End()

	work, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	sources, err := r.GetSources(ctx, id)
	if err != nil {
		return nil, err
	}

	recordings, err := r.GetRecordings(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.WorkWithChildren{
		Work:       *work,
		Sources:    sources,
		Recordings: recordings,
	}, nil
}

// List retrieves works with optional composer and status filters
func (r *Repository) List(ctx context.Context, composerID string, status string, search string, page, pageSize int) ([]models.Work, int, error) {
	ctx, span := tracing.StartSpan(ctx, "work.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(workColumns...)
	sb.From("work")
	if composerID != "" {
		sb.Where(sb.Equal("composer_id", composerID))
	}
	if status != "" {
		sb.Where(sb.Equal("status", status))
	}
	if search != "" {
		sb.Where(sb.ILike("name", "%"+search+"%"))
	}
	sb.OrderBy("name")
	sb.Limit(pageSize).Offset((page - 1) * pageSize)

	query, args := sb.Build()
	var works []models.Work
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &works, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list works")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list works")
	}

	cb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	cb.Select("COUNT(*)")
	cb.From("work")
	if composerID != "" {
		cb.Where(cb.Equal("composer_id", composerID))
	}
	if status != "" {
		cb.Where(cb.Equal("status", status))
	}
	if search != "" {
		cb.Where(cb.ILike("name", "%"+search+"%"))
	}

	countQuery, countArgs := cb.Build()
	var total int
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count works")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count works")
	}

	return works, total, nil
}

// Update persists work field changes
func (r *Repository) Update(ctx context.Context, work *models.Work) error {
	ctx, span := tracing.StartSpan(ctx, "work.Repository.Update")
	defer span.End()

	work.UpdatedAt = time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("work")
	ub.Set(
		ub.Assign("composer_id", work.ComposerID),
		ub.Assign("name", work.Name),
		ub.Assign("opus_number", work.OpusNumber),
		ub.Assign("composition_year", work.CompositionYear),
		ub.Assign("duration_seconds", work.DurationSeconds),
		ub.Assign("description", work.Description),
		ub.Assign("status", work.Status),
		ub.Assign("updated_at", work.UpdatedAt),
	)
	ub.Where(ub.Equal("id", work.ID))

	query, args := ub.Build()
	result, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"work_id": work.ID}).Error("Failed to update work")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update work")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("work %s not found", work.ID))
	}

	return nil
}

// Delete removes a work. Child rows cascade at the schema level.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "work.Repository.Delete")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("work")
	db.Where(db.Equal("id", id))

	query, args := db.Build()
	result, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"work_id": id}).Error("Failed to delete work")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete work")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("work %s not found", id))
	}

	return nil
}

// ReassignComposer points every work owned by one composer at another.
// Used by the merge engine before the duplicate composer is deleted.
func (r *Repository) ReassignComposer(ctx context.Context, fromComposerID, toComposerID string) error {
	ctx, span := tracing.StartSpan(ctx, "work.Repository.ReassignComposer")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("work")
	ub.Set(
		ub.Assign("composer_id", toComposerID),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("composer_id", fromComposerID))

	query, args := ub.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"from_composer_id": fromComposerID,
			"to_composer_id":   toComposerID,
		}).Error("Failed to reassign works")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to reassign works")
	}

	return nil
}

// GetSources retrieves a work's sources in display order
func (r *Repository) GetSources(ctx context.Context, workID string) ([]models.WorkSource, error) {
	ctx, span := tracing.StartSpan(ctx, "work.Repository.GetSources")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "work_id", "url", "title", "display_order", "created_at")
	sb.From("work_source")
	sb.Where(sb.Equal("work_id", workID))
	sb.OrderBy("display_order")

	query, args := sb.Build()
	var sources []models.WorkSource
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &sources, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get work sources")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get work sources")
	}

	return sources, nil
}

// GetRecordings retrieves a work's recordings in display order
func (r *Repository) GetRecordings(ctx context.Context, workID string) ([]models.WorkRecording, error) {
	ctx, span := tracing.StartSpan(ctx, "work.Repository.GetRecordings")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "work_id", "url", "provider", "embed_metadata", "display_order", "created_at")
	sb.From("work_recording")
	sb.Where(sb.Equal("work_id", workID))
	sb.OrderBy("display_order")

	query, args := sb.Build()
	var recordings []models.WorkRecording
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &recordings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get work recordings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get work recordings")
	}

	return recordings, nil
}

// ReplaceSources swaps a work's full source list
func (r *Repository) ReplaceSources(ctx context.Context, workID string, sources []models.WorkSource) error {
	ctx, span := tracing.StartSpan(ctx, "work.Repository.ReplaceSources")
	defer span.End()

	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom("work_source")
	del.Where(del.Equal("work_id", workID))

	query, args := del.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to clear work sources")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace work sources")
	}

	if len(sources) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("work_source")
	sb.Cols("id", "work_id", "url", "title", "display_order", "created_at")
	for _, source := range sources {
		if source.ID == "" {
			source.ID = uuid.New().String()
		}
		sb.Values(source.ID, workID, source.URL, source.Title, source.DisplayOrder, now)
	}

	query, args = sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert work sources")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace work sources")
	}

	return nil
}

// ReplaceRecordings swaps a work's full recording list
func (r *Repository) ReplaceRecordings(ctx context.Context, workID string, recordings []models.WorkRecording) error {
	ctx, span := tracing.StartSpan(ctx, "work.Repository.ReplaceRecordings")
	defer span.End()

	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom("work_recording")
	del.Where(del.Equal("work_id", workID))

	query, args := del.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to clear work recordings")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace work recordings")
	}

	if len(recordings) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("work_recording")
	sb.Cols("id", "work_id", "url", "provider", "embed_metadata", "display_order", "created_at")
	for _, recording := range recordings {
		if recording.ID == "" {
			recording.ID = uuid.New().String()
		}
		sb.Values(recording.ID, workID, recording.URL, recording.Provider, recording.EmbedMetadata, recording.DisplayOrder, now)
	}

	query, args = sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert work recordings")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace work recordings")
	}

	return nil
}

// InsertSourceIfNewURL inserts a source under a work unless one with the
// same URL already exists. Used by merge union; conflicts skip silently.
func (r *Repository) InsertSourceIfNewURL(ctx context.Context, source *models.WorkSource) error {
	ctx, span := tracing.StartSpan(ctx, "work.Repository.InsertSourceIfNewURL")
	defer span.End()

	if source.ID == "" {
		source.ID = uuid.New().String()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("work_source")
	sb.Cols("id", "work_id", "url", "title", "display_order", "created_at")
	sb.Values(source.ID, source.WorkID, source.URL, source.Title, source.DisplayOrder, time.Now().UTC())

	query, args := sb.Build()
	query += " ON CONFLICT (work_id, url) DO NOTHING"

	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to union work source")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to union work source")
	}

	return nil
}

// InsertRecordingIfNewURL inserts a recording under a work unless one with
// the same URL already exists
func (r *Repository) InsertRecordingIfNewURL(ctx context.Context, recording *models.WorkRecording) error {
	ctx, span := tracing.StartSpan(ctx, "work.Repository.InsertRecordingIfNewURL")
	defer span.End()

	if recording.ID == "" {
		recording.ID = uuid.New().String()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("work_recording")
	sb.Cols("id", "work_id", "url", "provider", "embed_metadata", "display_order", "created_at")
	sb.Values(recording.ID, recording.WorkID, recording.URL, recording.Provider, recording.EmbedMetadata, recording.DisplayOrder, time.Now().UTC())

	query, args := sb.Build()
	query += " ON CONFLICT (work_id, url) DO NOTHING"

	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to union work recording")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to union work recording")
	}

	return nil
}

// WorkCandidates returns works under the same composer whose folded name
// is trigram-similar to the query
func (r *Repository) WorkCandidates(ctx context.Context, composerID string, name string) ([]matching.WorkCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "work.Repository.WorkCandidates")
	defer span.End()

	query := `
		SELECT id, name
		FROM work
		WHERE composer_id = $1
		  AND immutable_unaccent(lower(name)) % $2
		  AND similarity(immutable_unaccent(lower(name)), $2) >= $3
		ORDER BY similarity(immutable_unaccent(lower(name)), $2) DESC
		LIMIT 25`

	var candidates []matching.WorkCandidate
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &candidates, query, composerID, name, candidateSimilarityFloor); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to fetch work duplicate candidates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to fetch work duplicate candidates")
	}

	return candidates, nil
}
