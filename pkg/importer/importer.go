// Package importer runs CSV bulk imports for composers and works: field
// parsing, per-row validation, duplicate detection, and execution with
// auto-flagging.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	appcontext "github.com/fdtorres1/opusgraph/pkg/context"
	"github.com/fdtorres1/opusgraph/pkg/events"
	"github.com/fdtorres1/opusgraph/pkg/metrics"
	"github.com/fdtorres1/opusgraph/pkg/models"
	"github.com/fdtorres1/opusgraph/pkg/tracing"
)

// duplicateSkippedMessage is the row error recorded when a duplicate row
// is skipped under skip_duplicates
const duplicateSkippedMessage = "Duplicate detected, skipped"

// ComposerStore is the composer persistence surface the pipeline needs
type ComposerStore interface {
	Get(ctx context.Context, id string) (*models.Composer, error)
	Create(ctx context.Context, composer *models.Composer) (*models.Composer, error)
	ReplaceLinks(ctx context.Context, composerID string, links []models.ComposerLink) error
	ReplaceNationalities(ctx context.Context, composerID string, nationalities []models.ComposerNationality) error
}

// WorkStore is the work persistence surface the pipeline needs
type WorkStore interface {
	Create(ctx context.Context, work *models.Work) (*models.Work, error)
	ReplaceSources(ctx context.Context, workID string, sources []models.WorkSource) error
	ReplaceRecordings(ctx context.Context, workID string, recordings []models.WorkRecording) error
}

// FlagStore creates auto-generated review flags
type FlagStore interface {
	Create(ctx context.Context, flag *models.ReviewFlag) (*models.ReviewFlag, error)
}

// DuplicateDetector finds probable duplicates of a candidate row
type DuplicateDetector interface {
	FindComposerDuplicates(ctx context.Context, firstName, lastName string, birthYear *int, excludeID string) ([]string, error)
	FindWorkDuplicates(ctx context.Context, composerID, workName, excludeID string) ([]string, error)
}

// RevisionRecorder appends audit rows for created entities
type RevisionRecorder interface {
	Record(ctx context.Context, entityType models.EntityType, entityID string, actorID *string, action models.RevisionAction, snapshot any, diff any) error
}

// CountrySource supplies the known country code set for validation
type CountrySource interface {
	KnownCodes(ctx context.Context) (map[string]bool, error)
}

// Pipeline executes import batches. Rows are processed strictly
// sequentially so a later row can be detected as a duplicate of an
// earlier row inserted moments before.
type Pipeline struct {
	composers ComposerStore
	works     WorkStore
	flags     FlagStore
	detector  DuplicateDetector
	revisions RevisionRecorder
	countries CountrySource
	emitter   *events.Emitter
	logger    ectologger.Logger
}

func NewPipeline(
	composers ComposerStore,
	works WorkStore,
	flags FlagStore,
	detector DuplicateDetector,
	revisions RevisionRecorder,
	countries CountrySource,
	emitter *events.Emitter,
	logger ectologger.Logger,
) *Pipeline {
	return &Pipeline{
		composers: composers,
		works:     works,
		flags:     flags,
		detector:  detector,
		revisions: revisions,
		countries: countries,
		emitter:   emitter,
		logger:    logger,
	}
}

// Validate checks every row and reports errors, warnings, and duplicate
// candidates. Warnings never block execution; a failed duplicate lookup
// is itself only a warning.
func (p *Pipeline) Validate(ctx context.Context, req *models.ValidateImportRequest) (*models.ValidateImportResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Pipeline.Validate")
	defer span.End()

	knownCountries, err := p.countries.KnownCodes(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]models.RowValidation, len(req.Rows))
	for i, row := range req.Rows {
		var result models.RowValidation
		switch req.EntityType {
		case models.EntityTypeWork:
			result = p.validateWorkRow(ctx, row, req.FieldMapping)
		default:
			result = p.validateComposerRow(ctx, row, req.FieldMapping, knownCountries)
		}
		result.RowIndex = i
		result.IsValid = len(result.Errors) == 0
		results[i] = result
	}

	return &models.ValidateImportResponse{Results: results}, nil
}

func (p *Pipeline) validateComposerRow(ctx context.Context, row models.ImportRow, mapping models.FieldMapping, knownCountries map[string]bool) models.RowValidation {
	fields, errs := parseComposerRow(row, mapping)
	errs = validateURLs(cell(row, mapping, "links"), "links", errs)

	for _, item := range multiValueSplit(cell(row, mapping, "nationalities")) {
		code := normalizeCountry(item)
		if code == "" {
			errs = append(errs, fmt.Sprintf("nationality %q is not a 2-letter country code", item))
		} else if !knownCountries[code] {
			errs = append(errs, fmt.Sprintf("unknown country code %q", code))
		}
	}

	result := models.RowValidation{Errors: errs, Warnings: []string{}}
	if len(errs) > 0 {
		return result
	}

	duplicateIDs, err := p.detector.FindComposerDuplicates(ctx, fields.FirstName, fields.LastName, fields.BirthYear, "")
	if err != nil {
		result.Warnings = append(result.Warnings, "duplicate check failed")
		return result
	}
	if len(duplicateIDs) > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d possible duplicate(s) found", len(duplicateIDs)))
		result.DuplicateIDs = duplicateIDs
	}
	return result
}

func (p *Pipeline) validateWorkRow(ctx context.Context, row models.ImportRow, mapping models.FieldMapping) models.RowValidation {
	fields, errs := parseWorkRow(row, mapping)
	errs = validateURLs(cell(row, mapping, "sources"), "sources", errs)
	errs = validateURLs(cell(row, mapping, "recordings"), "recordings", errs)

	if fields.ComposerID != "" {
		if _, err := p.composers.Get(ctx, fields.ComposerID); err != nil {
			errs = append(errs, fmt.Sprintf("composer %s not found", fields.ComposerID))
		}
	}

	result := models.RowValidation{Errors: errs, Warnings: []string{}}
	if len(errs) > 0 {
		return result
	}

	duplicateIDs, err := p.detector.FindWorkDuplicates(ctx, fields.ComposerID, fields.Name, "")
	if err != nil {
		result.Warnings = append(result.Warnings, "duplicate check failed")
		return result
	}
	if len(duplicateIDs) > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d possible duplicate(s) found", len(duplicateIDs)))
		result.DuplicateIDs = duplicateIDs
	}
	return result
}

// Execute inserts the batch row by row. A row failure never aborts the
// batch; every row gets a result and the summary rolls them up.
func (p *Pipeline) Execute(ctx context.Context, req *models.ExecuteImportRequest) (*models.ExecuteImportResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Pipeline.Execute")
	defer span.End()

	start := time.Now()
	results := make([]models.RowResult, len(req.Rows))
	var summary models.ImportSummary
	summary.Total = len(req.Rows)

	for i, row := range req.Rows {
		var result models.RowResult
		switch req.EntityType {
		case models.EntityTypeWork:
			result = p.executeWorkRow(ctx, row, req.FieldMapping, req.SkipDuplicates)
		default:
			result = p.executeComposerRow(ctx, row, req.FieldMapping, req.SkipDuplicates)
		}
		result.RowIndex = i
		results[i] = result

		switch {
		case result.Success:
			summary.Successful++
			metrics.RecordImportRow(string(req.EntityType), "created")
		case result.Error != nil && *result.Error == duplicateSkippedMessage:
			summary.Skipped++
			metrics.RecordImportRow(string(req.EntityType), "skipped")
		default:
			summary.Failed++
			metrics.RecordImportRow(string(req.EntityType), "failed")
		}
	}

	metrics.RecordImportBatch(string(req.EntityType), time.Since(start).Seconds())

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_type": req.EntityType,
		"total":       summary.Total,
		"successful":  summary.Successful,
		"failed":      summary.Failed,
		"skipped":     summary.Skipped,
	}).Info("Import batch executed")

	return &models.ExecuteImportResponse{Results: results, Summary: summary}, nil
}

func (p *Pipeline) executeComposerRow(ctx context.Context, row models.ImportRow, mapping models.FieldMapping, skipDuplicates bool) models.RowResult {
	fields, errs := parseComposerRow(row, mapping)
	if len(errs) > 0 {
		return failedRow(errs[0])
	}

	duplicateIDs, err := p.detector.FindComposerDuplicates(ctx, fields.FirstName, fields.LastName, fields.BirthYear, "")
	if err != nil {
		return failedRow(err.Error())
	}

	if len(duplicateIDs) > 0 && skipDuplicates {
		return skippedRow()
	}

	actorID := actorFromContext(ctx)
	composer, err := p.composers.Create(ctx, &models.Composer{
		FirstName: fields.FirstName,
		LastName:  fields.LastName,
		BirthYear: fields.BirthYear,
		DeathYear: fields.DeathYear,
		Biography: fields.Biography,
		CreatedBy: actorID,
	})
	if err != nil {
		return failedRow(err.Error())
	}

	if len(fields.Links) > 0 {
		links := make([]models.ComposerLink, len(fields.Links))
		for idx, u := range fields.Links {
			links[idx] = models.ComposerLink{
				URL:          u,
				IsPrimary:    idx == 0,
				DisplayOrder: idx,
			}
		}
		if err := p.composers.ReplaceLinks(ctx, composer.ID, links); err != nil {
			return failedRow(err.Error())
		}
	}

	if len(fields.Nationalities) > 0 {
		nationalities := make([]models.ComposerNationality, len(fields.Nationalities))
		for idx, code := range fields.Nationalities {
			nationalities[idx] = models.ComposerNationality{
				CountryISO2:  code,
				DisplayOrder: idx,
			}
		}
		if err := p.composers.ReplaceNationalities(ctx, composer.ID, nationalities); err != nil {
			return failedRow(err.Error())
		}
	}

	if len(duplicateIDs) > 0 {
		importedName := composer.FullName()
		p.createDuplicateFlag(ctx, models.EntityTypeComposer, duplicateIDs, models.FlagDetails{
			DuplicateIDs: duplicateIDs,
			ImportSource: "csv_import",
			ImportedName: &importedName,
		})
	}

	if err := p.revisions.Record(ctx, models.EntityTypeComposer, composer.ID, actorID, models.RevisionActionCreate, composer, nil); err != nil {
		return failedRow(err.Error())
	}

	// event emission is best effort
	_ = p.emitter.EmitEntityCreated(ctx, models.EntityTypeComposer, composer.ID, deref(actorID), composer)

	return createdRow(composer.ID)
}

func (p *Pipeline) executeWorkRow(ctx context.Context, row models.ImportRow, mapping models.FieldMapping, skipDuplicates bool) models.RowResult {
	fields, errs := parseWorkRow(row, mapping)
	if len(errs) > 0 {
		return failedRow(errs[0])
	}

	if _, err := p.composers.Get(ctx, fields.ComposerID); err != nil {
		return failedRow(fmt.Sprintf("composer %s not found", fields.ComposerID))
	}

	duplicateIDs, err := p.detector.FindWorkDuplicates(ctx, fields.ComposerID, fields.Name, "")
	if err != nil {
		return failedRow(err.Error())
	}

	if len(duplicateIDs) > 0 && skipDuplicates {
		return skippedRow()
	}

	actorID := actorFromContext(ctx)
	work, err := p.works.Create(ctx, &models.Work{
		ComposerID:      fields.ComposerID,
		Name:            fields.Name,
		OpusNumber:      fields.OpusNumber,
		CompositionYear: fields.CompositionYear,
		DurationSeconds: fields.DurationSeconds,
		Description:     fields.Description,
		CreatedBy:       actorID,
	})
	if err != nil {
		return failedRow(err.Error())
	}

	if len(fields.Sources) > 0 {
		sources := make([]models.WorkSource, len(fields.Sources))
		for idx, u := range fields.Sources {
			sources[idx] = models.WorkSource{
				URL:          u,
				DisplayOrder: idx,
			}
		}
		if err := p.works.ReplaceSources(ctx, work.ID, sources); err != nil {
			return failedRow(err.Error())
		}
	}

	if len(fields.Recordings) > 0 {
		recordings := make([]models.WorkRecording, len(fields.Recordings))
		for idx, u := range fields.Recordings {
			recordings[idx] = models.WorkRecording{
				URL:          u,
				DisplayOrder: idx,
			}
		}
		if err := p.works.ReplaceRecordings(ctx, work.ID, recordings); err != nil {
			return failedRow(err.Error())
		}
	}

	if len(duplicateIDs) > 0 {
		importedWorkName := work.Name
		p.createDuplicateFlag(ctx, models.EntityTypeWork, duplicateIDs, models.FlagDetails{
			DuplicateIDs:     duplicateIDs,
			ImportSource:     "csv_import",
			ImportedWorkName: &importedWorkName,
		})
	}

	if err := p.revisions.Record(ctx, models.EntityTypeWork, work.ID, actorID, models.RevisionActionCreate, work, nil); err != nil {
		return failedRow(err.Error())
	}

	_ = p.emitter.EmitEntityCreated(ctx, models.EntityTypeWork, work.ID, deref(actorID), work)

	return createdRow(work.ID)
}

// createDuplicateFlag flags the pre-existing duplicate, not the freshly
// inserted row. A flag failure is logged and swallowed; the row itself
// succeeded.
func (p *Pipeline) createDuplicateFlag(ctx context.Context, entityType models.EntityType, duplicateIDs []string, details models.FlagDetails) {
	actorID := actorFromContext(ctx)
	_, err := p.flags.Create(ctx, &models.ReviewFlag{
		EntityType: entityType,
		EntityID:   duplicateIDs[0],
		Reason:     models.FlagReasonPossibleDuplicate,
		Details:    details,
		CreatedBy:  actorID,
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to create duplicate review flag")
		return
	}
	metrics.RecordReviewFlag(string(entityType), "created")
}

// actorFromContext resolves the acting user from the request context
func actorFromContext(ctx context.Context) *string {
	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return nil
	}
	return &userID
}

func failedRow(message string) models.RowResult {
	return models.RowResult{
		Success: false,
		Error:   &message,
		Action:  models.RowActionSkipped,
	}
}

func skippedRow() models.RowResult {
	message := duplicateSkippedMessage
	return models.RowResult{
		Success: false,
		Error:   &message,
		Action:  models.RowActionSkipped,
	}
}

func createdRow(entityID string) models.RowResult {
	return models.RowResult{
		Success:  true,
		EntityID: &entityID,
		Action:   models.RowActionCreated,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
