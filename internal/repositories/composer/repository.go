package composer

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

// candidateSimilarityFloor is the trigram prefilter threshold; final
// scoring happens in the matching package
const candidateSimilarityFloor = 0.4

var composerColumns = []string{"id", "first_name", "last_name", "birth_year", "death_year", "biography", "status", "created_by", "created_at", "updated_at"}

// Repository handles composer persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new composer repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new composer
func (r *Repository) Create(ctx context.Context, composer *models.Composer) (*models.Composer, error) {
	ctx, span := tracing.StartSpan(ctx, "composer.Repository.Create")
	defer span.End()

	if composer.ID == "" {
		composer.ID = uuid.New().String()
	}
	if composer.Status == "" {
		composer.Status = models.EntityStatusDraft
	}
	composer.CreatedAt = time.Now().UTC()
	composer.UpdatedAt = composer.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("composer")
	sb.Cols(composerColumns...)
	sb.Values(composer.ID, composer.FirstName, composer.LastName, composer.BirthYear, composer.DeathYear, composer.Biography, composer.Status, composer.CreatedBy, composer.CreatedAt, composer.UpdatedAt)

	query, args := sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"composer_id": composer.ID}).Error("Failed to create composer")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create composer")
	}

	return composer, nil
}

// Get retrieves a composer by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Composer, error) {
	ctx, span := tracing.StartSpan(ctx, "composer.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(composerColumns...)
	sb.From("composer")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var composer models.Composer
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &composer, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("composer %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get composer")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get composer")
	}

	return &composer, nil
}

// GetWithChildren retrieves a composer with its links and nationalities
func (r *Repository) GetWithChildren(ctx context.Context, id string) (*models.ComposerWithChildren, error) {
	ctx, span := tracing.StartSpan(ctx, "composer.Repository.GetWithChildren")
	defer span.End()

	composer, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	links, err := r.GetLinks(ctx, id)
	if err != nil {
		return nil, err
	}

	nationalities, err := r.GetNationalities(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.ComposerWithChildren{
		Composer:      *composer,
		Links:         links,
		Nationalities: nationalities,
	}, nil
}

// List retrieves composers with optional status filter and name search
func (r *Repository) List(ctx context.Context, status string, search string, page, pageSize int) ([]models.Composer, int, error) {
	ctx, span := tracing.StartSpan(ctx, "composer.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(composerColumns...)
	sb.From("composer")
	if status != "" {
		sb.Where(sb.Equal("status", status))
	}
	if search != "" {
		sb.Where(sb.ILike("last_name || ' ' || first_name", "%"+search+"%"))
	}
	sb.OrderBy("last_name", "first_name")
	sb.Limit(pageSize).Offset((page - 1) * pageSize)

	query, args := sb.Build()
	var composers []models.Composer
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &composers, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list composers")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list composers")
	}

	cb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	cb.Select("COUNT(*)")
	cb.From("composer")
	if status != "" {
		cb.Where(cb.Equal("status", status))
	}
	if search != "" {
		cb.Where(cb.ILike("last_name || ' ' || first_name", "%"+search+"%"))
	}

	countQuery, countArgs := cb.Build()
	var total int
	if err := database.FromContext(ctx, r.db).GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count composers")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count composers")
	}

	return composers, total, nil
}

// Update persists composer field changes
func (r *Repository) Update(ctx context.Context, composer *models.Composer) error {
	ctx, span := tracing.StartSpan(ctx, "composer.Repository.Update")
	defer span.End()

	composer.UpdatedAt = time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("composer")
	ub.Set(
		ub.Assign("first_name", composer.FirstName),
		ub.Assign("last_name", composer.LastName),
		ub.Assign("birth_year", composer.BirthYear),
		ub.Assign("death_year", composer.DeathYear),
		ub.Assign("biography", composer.Biography),
		ub.Assign("status", composer.Status),
		ub.Assign("updated_at", composer.UpdatedAt),
	)
	ub.Where(ub.Equal("id", composer.ID))

	query, args := ub.Build()
	result, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"composer_id": composer.ID}).Error("Failed to update composer")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update composer")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("composer %s not found", composer.ID))
	}

	return nil
}

// Delete removes a composer. Child rows cascade at the schema level.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "composer.Repository.Delete")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("composer")
	db.Where(db.Equal("id", id))

	query, args := db.Build()
	result, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"composer_id": id}).Error("Failed to delete composer")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete composer")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("composer %s not found", id))
	}

	return nil
}

// GetLinks retrieves a composer's links in display order
func (r *Repository) GetLinks(ctx context.Context, composerID string) ([]models.ComposerLink, error) {
	ctx, span := tracing.StartSpan(ctx, "composer.Repository.GetLinks")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "composer_id", "url", "label", "is_primary", "display_order", "created_at")
	sb.From("composer_link")
	sb.Where(sb.Equal("composer_id", composerID))
	sb.OrderBy("display_order")

	query, args := sb.Build()
	var links []models.ComposerLink
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &links, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get composer links")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get composer links")
	}

	return links, nil
}

// GetNationalities retrieves a composer's nationalities in display order
func (r *Repository) GetNationalities(ctx context.Context, composerID string) ([]models.ComposerNationality, error) {
	ctx, span := tracing.StartSpan(ctx, "composer.Repository.GetNationalities")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "composer_id", "country_iso2", "display_order", "created_at")
	sb.From("composer_nationality")
	sb.Where(sb.Equal("composer_id", composerID))
	sb.OrderBy("display_order")

	query, args := sb.Build()
	var nationalities []models.ComposerNationality
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &nationalities, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get composer nationalities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get composer nationalities")
	}

	return nationalities, nil
}

// ReplaceLinks swaps a composer's full link list. Lists are always
// submitted whole, so this deletes the stored set and reinserts.
func (r *Repository) ReplaceLinks(ctx context.Context, composerID string, links []models.ComposerLink) error {
	ctx, span := tracing.StartSpan(ctx, "composer.Repository.ReplaceLinks")
	defer span.End()

	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom("composer_link")
	del.Where(del.Equal("composer_id", composerID))

	query, args := del.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to clear composer links")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace composer links")
	}

	if len(links) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("composer_link")
	sb.Cols("id", "composer_id", "url", "label", "is_primary", "display_order", "created_at")
	for _, link := range links {
		if link.ID == "" {
			link.ID = uuid.New().String()
		}
		sb.Values(link.ID, composerID, link.URL, link.Label, link.IsPrimary, link.DisplayOrder, now)
	}

	query, args = sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert composer links")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace composer links")
	}

	return nil
}

// ReplaceNationalities swaps a composer's full nationality list
func (r *Repository) ReplaceNationalities(ctx context.Context, composerID string, nationalities []models.ComposerNationality) error {
	ctx, span := tracing.StartSpan(ctx, "composer.Repository.ReplaceNationalities")
	defer span.End()

	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom("composer_nationality")
	del.Where(del.Equal("composer_id", composerID))

	query, args := del.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to clear composer nationalities")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace composer nationalities")
	}

	if len(nationalities) == 0 {
		return nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("composer_nationality")
	sb.Cols("id", "composer_id", "country_iso2", "display_order", "created_at")
	for _, nationality := range nationalities {
		if nationality.ID == "" {
			nationality.ID = uuid.New().String()
		}
		sb.Values(nationality.ID, composerID, nationality.CountryISO2, nationality.DisplayOrder, now)
	}

	query, args = sb.Build()
	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert composer nationalities")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to replace composer nationalities")
	}

	return nil
}

// InsertLinkIfNewURL inserts a link under a composer unless one with the
// same URL already exists. Used by merge union; conflicts skip silently.
func (r *Repository) InsertLinkIfNewURL(ctx context.Context, link *models.ComposerLink) error {
	ctx, span := tracing.StartSpan(ctx, "composer.Repository.InsertLinkIfNewURL")
	defer span.End()

	if link.ID == "" {
		link.ID = uuid.New().String()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("composer_link")
	sb.Cols("id", "composer_id", "url", "label", "is_primary", "display_order", "created_at")
	sb.Values(link.ID, link.ComposerID, link.URL, link.Label, link.IsPrimary, link.DisplayOrder, time.Now().UTC())

	query, args := sb.Build()
	query += " ON CONFLICT (composer_id, url) DO NOTHING"

	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to union composer link")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to union composer link")
	}

	return nil
}

// InsertNationalityIfNew inserts a nationality under a composer unless the
// (composer, country) pair already exists
func (r *Repository) InsertNationalityIfNew(ctx context.Context, nationality *models.ComposerNationality) error {
	ctx, span := tracing.StartSpan(ctx, "composer.Repository.InsertNationalityIfNew")
	defer span.End()

	if nationality.ID == "" {
		nationality.ID = uuid.New().String()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("composer_nationality")
	sb.Cols("id", "composer_id", "country_iso2", "display_order", "created_at")
	sb.Values(nationality.ID, nationality.ComposerID, nationality.CountryISO2, nationality.DisplayOrder, time.Now().UTC())

	query, args := sb.Build()
	query += " ON CONFLICT (composer_id, country_iso2) DO NOTHING"

	if _, err := database.FromContext(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to union composer nationality")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to union composer nationality")
	}

	return nil
}

// ComposerCandidates returns composers whose folded name is trigram-similar
// to the query. Final scoring happens in the matching package.
func (r *Repository) ComposerCandidates(ctx context.Context, name string) ([]matching.ComposerCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "composer.Repository.ComposerCandidates")
	defer span.End()

	// the % predicate is the form the gin index serves; the similarity()
	// bound applies the real floor
	query := `
		SELECT id, first_name, last_name, birth_year
		FROM composer
		WHERE immutable_unaccent(lower(first_name || ' ' || last_name)) % $1
		  AND similarity(immutable_unaccent(lower(first_name || ' ' || last_name)), $1) >= $2
		ORDER BY similarity(immutable_unaccent(lower(first_name || ' ' || last_name)), $1) DESC
		LIMIT 25`

	var candidates []matching.ComposerCandidate
	if err := database.FromContext(ctx, r.db).SelectContext(ctx, &candidates, query, name, candidateSimilarityFloor); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to fetch composer duplicate candidates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to fetch composer duplicate candidates")
	}

	return candidates, nil
}
