package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdtorres1/opusgraph/pkg/events"
	"github.com/fdtorres1/opusgraph/pkg/models"
)

type fakeComposerStore struct {
	known         map[string]*models.Composer
	created       []*models.Composer
	links         map[string][]models.ComposerLink
	nationalities map[string][]models.ComposerNationality
	createErr     error
}

func newFakeComposerStore() *fakeComposerStore {
	return &fakeComposerStore{
		known:         map[string]*models.Composer{},
		links:         map[string][]models.ComposerLink{},
		nationalities: map[string][]models.ComposerNationality{},
	}
}

func (f *fakeComposerStore) Get(_ context.Context, id string) (*models.Composer, error) {
	composer, ok := f.known[id]
	if !ok {
		return nil, fmt.Errorf("composer %s not found", id)
	}
	return composer, nil
}

func (f *fakeComposerStore) Create(_ context.Context, composer *models.Composer) (*models.Composer, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	composer.ID = fmt.Sprintf("composer-%d", len(f.created)+1)
	f.created = append(f.created, composer)
	f.known[composer.ID] = composer
	return composer, nil
}

func (f *fakeComposerStore) ReplaceLinks(_ context.Context, composerID string, links []models.ComposerLink) error {
	f.links[composerID] = links
	return nil
}

func (f *fakeComposerStore) ReplaceNationalities(_ context.Context, composerID string, nationalities []models.ComposerNationality) error {
	f.nationalities[composerID] = nationalities
	return nil
}

type fakeWorkStore struct {
	created    []*models.Work
	sources    map[string][]models.WorkSource
	recordings map[string][]models.WorkRecording
}

func newFakeWorkStore() *fakeWorkStore {
	return &fakeWorkStore{
		sources:    map[string][]models.WorkSource{},
		recordings: map[string][]models.WorkRecording{},
	}
}

func (f *fakeWorkStore) Create(_ context.Context, work *models.Work) (*models.Work, error) {
	work.ID = fmt.Sprintf("work-%d", len(f.created)+1)
	f.created = append(f.created, work)
	return work, nil
}

func (f *fakeWorkStore) ReplaceSources(_ context.Context, workID string, sources []models.WorkSource) error {
	f.sources[workID] = sources
	return nil
}

func (f *fakeWorkStore) ReplaceRecordings(_ context.Context, workID string, recordings []models.WorkRecording) error {
	f.recordings[workID] = recordings
	return nil
}

type fakeFlagStore struct {
	created []*models.ReviewFlag
	err     error
}

func (f *fakeFlagStore) Create(_ context.Context, flag *models.ReviewFlag) (*models.ReviewFlag, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, flag)
	return flag, nil
}

type fakeDetector struct {
	composerDuplicates map[string][]string
	workDuplicates     map[string][]string
	err                error
}

func (f *fakeDetector) FindComposerDuplicates(_ context.Context, firstName, lastName string, _ *int, _ string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.composerDuplicates[firstName+" "+lastName], nil
}

func (f *fakeDetector) FindWorkDuplicates(_ context.Context, _, workName, _ string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.workDuplicates[workName], nil
}

type fakeRevisionRecorder struct {
	recorded []models.RevisionAction
	err      error
}

func (f *fakeRevisionRecorder) Record(_ context.Context, _ models.EntityType, _ string, _ *string, action models.RevisionAction, _ any, _ any) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, action)
	return nil
}

type fakeCountrySource struct {
	codes map[string]bool
	err   error
}

func (f *fakeCountrySource) KnownCodes(_ context.Context) (map[string]bool, error) {
	return f.codes, f.err
}

type pipelineFixture struct {
	composers *fakeComposerStore
	works     *fakeWorkStore
	flags     *fakeFlagStore
	detector  *fakeDetector
	revisions *fakeRevisionRecorder
	countries *fakeCountrySource
	pipeline  *Pipeline
}

func newPipelineFixture() *pipelineFixture {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	f := &pipelineFixture{
		composers: newFakeComposerStore(),
		works:     newFakeWorkStore(),
		flags:     &fakeFlagStore{},
		detector:  &fakeDetector{composerDuplicates: map[string][]string{}, workDuplicates: map[string][]string{}},
		revisions: &fakeRevisionRecorder{},
		countries: &fakeCountrySource{codes: map[string]bool{"CZ": true, "DE": true, "AT": true}},
	}
	f.pipeline = NewPipeline(f.composers, f.works, f.flags, f.detector, f.revisions, f.countries, events.NewEmitter(nil, logger), logger)
	return f
}

var composerMapping = models.FieldMapping{
	"first_name":    "First",
	"last_name":     "Last",
	"birth_year":    "Born",
	"links":         "Links",
	"nationalities": "Countries",
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("should pass a clean composer row", func(t *testing.T) {
		f := newPipelineFixture()

		resp, err := f.pipeline.Validate(ctx, &models.ValidateImportRequest{
			EntityType:   models.EntityTypeComposer,
			FieldMapping: composerMapping,
			Rows: []models.ImportRow{
				{"First": "Antonín", "Last": "Dvořák", "Born": "1841", "Countries": "CZ"},
			},
		})
		require.NoError(t, err)
		require.Len(t, resp.Results, 1)
		assert.True(t, resp.Results[0].IsValid)
		assert.Empty(t, resp.Results[0].Errors)
	})

	t.Run("should report missing required fields", func(t *testing.T) {
		f := newPipelineFixture()

		resp, err := f.pipeline.Validate(ctx, &models.ValidateImportRequest{
			EntityType:   models.EntityTypeComposer,
			FieldMapping: composerMapping,
			Rows:         []models.ImportRow{{"First": "Antonín"}},
		})
		require.NoError(t, err)
		assert.False(t, resp.Results[0].IsValid)
		assert.Contains(t, resp.Results[0].Errors, "last_name is required")
	})

	t.Run("should report unknown country codes", func(t *testing.T) {
		f := newPipelineFixture()

		resp, err := f.pipeline.Validate(ctx, &models.ValidateImportRequest{
			EntityType:   models.EntityTypeComposer,
			FieldMapping: composerMapping,
			Rows: []models.ImportRow{
				{"First": "A", "Last": "B", "Countries": "ZZ"},
			},
		})
		require.NoError(t, err)
		assert.False(t, resp.Results[0].IsValid)
		assert.Contains(t, resp.Results[0].Errors, `unknown country code "ZZ"`)
	})

	t.Run("should surface duplicates as warnings not errors", func(t *testing.T) {
		f := newPipelineFixture()
		f.detector.composerDuplicates["Antonín Dvořák"] = []string{"existing-1"}

		resp, err := f.pipeline.Validate(ctx, &models.ValidateImportRequest{
			EntityType:   models.EntityTypeComposer,
			FieldMapping: composerMapping,
			Rows: []models.ImportRow{
				{"First": "Antonín", "Last": "Dvořák"},
			},
		})
		require.NoError(t, err)
		assert.True(t, resp.Results[0].IsValid)
		assert.Equal(t, []string{"existing-1"}, resp.Results[0].DuplicateIDs)
		assert.Contains(t, resp.Results[0].Warnings, "1 possible duplicate(s) found")
	})

	t.Run("should warn rather than fail when the duplicate check errors", func(t *testing.T) {
		f := newPipelineFixture()
		f.detector.err = errors.New("db down")

		resp, err := f.pipeline.Validate(ctx, &models.ValidateImportRequest{
			EntityType:   models.EntityTypeComposer,
			FieldMapping: composerMapping,
			Rows: []models.ImportRow{
				{"First": "A", "Last": "B"},
			},
		})
		require.NoError(t, err)
		assert.True(t, resp.Results[0].IsValid)
		assert.Contains(t, resp.Results[0].Warnings, "duplicate check failed")
	})

	t.Run("should report missing composer references on work rows", func(t *testing.T) {
		f := newPipelineFixture()

		resp, err := f.pipeline.Validate(ctx, &models.ValidateImportRequest{
			EntityType: models.EntityTypeWork,
			FieldMapping: models.FieldMapping{
				"composer_id": "Composer",
				"name":        "Name",
			},
			Rows: []models.ImportRow{{"Composer": "missing", "Name": "Symphony"}},
		})
		require.NoError(t, err)
		assert.False(t, resp.Results[0].IsValid)
		assert.Contains(t, resp.Results[0].Errors, "composer missing not found")
	})
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("should skip duplicate rows when skip_duplicates is set", func(t *testing.T) {
		f := newPipelineFixture()
		f.detector.composerDuplicates["Antonín Dvořák"] = []string{"existing-1"}

		resp, err := f.pipeline.Execute(ctx, &models.ExecuteImportRequest{
			EntityType:     models.EntityTypeComposer,
			FieldMapping:   composerMapping,
			SkipDuplicates: true,
			Rows: []models.ImportRow{
				{"First": "Johann", "Last": "Bach"},
				{"First": "Antonín", "Last": "Dvořák"},
				{"First": "Clara", "Last": "Schumann"},
			},
		})
		require.NoError(t, err)
		require.Len(t, resp.Results, 3)

		assert.True(t, resp.Results[0].Success)
		assert.Equal(t, models.RowActionCreated, resp.Results[0].Action)

		assert.False(t, resp.Results[1].Success)
		require.NotNil(t, resp.Results[1].Error)
		assert.Equal(t, "Duplicate detected, skipped", *resp.Results[1].Error)

		assert.True(t, resp.Results[2].Success)

		assert.Equal(t, 3, resp.Summary.Total)
		assert.Equal(t, 2, resp.Summary.Successful)
		assert.Equal(t, 1, resp.Summary.Skipped)
		assert.Equal(t, 0, resp.Summary.Failed)

		assert.Len(t, f.composers.created, 2)
		assert.Empty(t, f.flags.created)
	})

	t.Run("should insert duplicates and flag the existing record when not skipping", func(t *testing.T) {
		f := newPipelineFixture()
		f.detector.composerDuplicates["Antonín Dvořák"] = []string{"existing-1", "existing-2"}

		resp, err := f.pipeline.Execute(ctx, &models.ExecuteImportRequest{
			EntityType:   models.EntityTypeComposer,
			FieldMapping: composerMapping,
			Rows: []models.ImportRow{
				{"First": "Antonín", "Last": "Dvořák"},
			},
		})
		require.NoError(t, err)
		assert.True(t, resp.Results[0].Success)
		assert.Equal(t, 1, resp.Summary.Successful)

		require.Len(t, f.flags.created, 1)
		flag := f.flags.created[0]
		assert.Equal(t, "existing-1", flag.EntityID)
		assert.Equal(t, models.FlagReasonPossibleDuplicate, flag.Reason)
		assert.Equal(t, []string{"existing-1", "existing-2"}, flag.Details.DuplicateIDs)
		assert.Equal(t, "csv_import", flag.Details.ImportSource)
		require.NotNil(t, flag.Details.ImportedName)
		assert.Equal(t, "Antonín Dvořák", *flag.Details.ImportedName)
	})

	t.Run("should fail invalid rows without inserting", func(t *testing.T) {
		f := newPipelineFixture()

		resp, err := f.pipeline.Execute(ctx, &models.ExecuteImportRequest{
			EntityType:   models.EntityTypeComposer,
			FieldMapping: composerMapping,
			Rows: []models.ImportRow{
				{"First": "Antonín"},
			},
		})
		require.NoError(t, err)
		assert.False(t, resp.Results[0].Success)
		assert.Equal(t, 1, resp.Summary.Failed)
		assert.Empty(t, f.composers.created)
	})

	t.Run("should keep going after a failed row", func(t *testing.T) {
		f := newPipelineFixture()

		resp, err := f.pipeline.Execute(ctx, &models.ExecuteImportRequest{
			EntityType:   models.EntityTypeComposer,
			FieldMapping: composerMapping,
			Rows: []models.ImportRow{
				{"First": "Antonín"},
				{"First": "Johann", "Last": "Bach"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Summary.Failed)
		assert.Equal(t, 1, resp.Summary.Successful)
		assert.Len(t, f.composers.created, 1)
	})

	t.Run("should attach links and nationalities in row order", func(t *testing.T) {
		f := newPipelineFixture()

		_, err := f.pipeline.Execute(ctx, &models.ExecuteImportRequest{
			EntityType:   models.EntityTypeComposer,
			FieldMapping: composerMapping,
			Rows: []models.ImportRow{
				{"First": "Antonín", "Last": "Dvořák", "Links": "https://example.com/a, https://example.com/b", "Countries": "CZ, AT"},
			},
		})
		require.NoError(t, err)
		require.Len(t, f.composers.created, 1)

		links := f.composers.links["composer-1"]
		require.Len(t, links, 2)
		assert.True(t, links[0].IsPrimary)
		assert.Equal(t, 0, links[0].DisplayOrder)
		assert.False(t, links[1].IsPrimary)
		assert.Equal(t, 1, links[1].DisplayOrder)

		nationalities := f.composers.nationalities["composer-1"]
		require.Len(t, nationalities, 2)
		assert.Equal(t, "CZ", nationalities[0].CountryISO2)
		assert.Equal(t, "AT", nationalities[1].CountryISO2)
	})

	t.Run("should record a create revision per inserted row", func(t *testing.T) {
		f := newPipelineFixture()

		_, err := f.pipeline.Execute(ctx, &models.ExecuteImportRequest{
			EntityType:   models.EntityTypeComposer,
			FieldMapping: composerMapping,
			Rows: []models.ImportRow{
				{"First": "Johann", "Last": "Bach"},
				{"First": "Clara", "Last": "Schumann"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []models.RevisionAction{models.RevisionActionCreate, models.RevisionActionCreate}, f.revisions.recorded)
	})

	t.Run("should still succeed the row when flag creation fails", func(t *testing.T) {
		f := newPipelineFixture()
		f.detector.composerDuplicates["Antonín Dvořák"] = []string{"existing-1"}
		f.flags.err = errors.New("flag table down")

		resp, err := f.pipeline.Execute(ctx, &models.ExecuteImportRequest{
			EntityType:   models.EntityTypeComposer,
			FieldMapping: composerMapping,
			Rows: []models.ImportRow{
				{"First": "Antonín", "Last": "Dvořák"},
			},
		})
		require.NoError(t, err)
		assert.True(t, resp.Results[0].Success)
	})

	t.Run("should execute work rows with sources and recordings", func(t *testing.T) {
		f := newPipelineFixture()
		f.composers.known["c1"] = &models.Composer{ID: "c1", FirstName: "Antonín", LastName: "Dvořák"}

		resp, err := f.pipeline.Execute(ctx, &models.ExecuteImportRequest{
			EntityType: models.EntityTypeWork,
			FieldMapping: models.FieldMapping{
				"composer_id": "Composer",
				"name":        "Name",
				"duration":    "Duration",
				"sources":     "Sources",
				"recordings":  "Recordings",
			},
			Rows: []models.ImportRow{
				{
					"Composer":   "c1",
					"Name":       "Symphony No. 9",
					"Duration":   "45:00",
					"Sources":    "https://example.com/score",
					"Recordings": "https://example.com/recording",
				},
			},
		})
		require.NoError(t, err)
		assert.True(t, resp.Results[0].Success)

		require.Len(t, f.works.created, 1)
		work := f.works.created[0]
		assert.Equal(t, "c1", work.ComposerID)
		assert.Equal(t, 2700, *work.DurationSeconds)
		assert.Len(t, f.works.sources["work-1"], 1)
		assert.Len(t, f.works.recordings["work-1"], 1)
	})

	t.Run("should fail work rows whose composer does not exist", func(t *testing.T) {
		f := newPipelineFixture()

		resp, err := f.pipeline.Execute(ctx, &models.ExecuteImportRequest{
			EntityType: models.EntityTypeWork,
			FieldMapping: models.FieldMapping{
				"composer_id": "Composer",
				"name":        "Name",
			},
			Rows: []models.ImportRow{{"Composer": "missing", "Name": "Symphony"}},
		})
		require.NoError(t, err)
		assert.False(t, resp.Results[0].Success)
		assert.Equal(t, 1, resp.Summary.Failed)
		assert.Empty(t, f.works.created)
	})
}
