// Package merging reconciles a duplicate entity into a primary entity:
// reassigning references, unioning child records, deleting the duplicate,
// and resolving the originating review flag in one transaction.
package merging

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	appcontext "github.com/fdtorres1/opusgraph/pkg/context"
	"github.com/fdtorres1/opusgraph/pkg/database"
	"github.com/fdtorres1/opusgraph/pkg/events"
	"github.com/fdtorres1/opusgraph/pkg/metrics"
	"github.com/fdtorres1/opusgraph/pkg/models"
	"github.com/fdtorres1/opusgraph/pkg/tracing"
)

// ComposerStore is the composer persistence surface the engine needs
type ComposerStore interface {
	GetWithChildren(ctx context.Context, id string) (*models.ComposerWithChildren, error)
	Delete(ctx context.Context, id string) error
	InsertLinkIfNewURL(ctx context.Context, link *models.ComposerLink) error
	InsertNationalityIfNew(ctx context.Context, nationality *models.ComposerNationality) error
}

// WorkStore is the work persistence surface the engine needs
type WorkStore interface {
	GetWithChildren(ctx context.Context, id string) (*models.WorkWithChildren, error)
	Delete(ctx context.Context, id string) error
	ReassignComposer(ctx context.Context, fromComposerID, toComposerID string) error
	InsertSourceIfNewURL(ctx context.Context, source *models.WorkSource) error
	InsertRecordingIfNewURL(ctx context.Context, recording *models.WorkRecording) error
}

// FlagResolver marks the originating review flag resolved
type FlagResolver interface {
	Resolve(ctx context.Context, id string, status models.FlagStatus, resolvedBy string) (*models.ReviewFlag, error)
}

// RevisionRecorder appends the merge audit row
type RevisionRecorder interface {
	Record(ctx context.Context, entityType models.EntityType, entityID string, actorID *string, action models.RevisionAction, snapshot any, diff any) error
}

// Engine performs merges. Every step runs on one transaction so a
// failure leaves no partially merged state; the flag stays open for retry.
type Engine struct {
	db        database.DB
	composers ComposerStore
	works     WorkStore
	flags     FlagResolver
	revisions RevisionRecorder
	emitter   *events.Emitter
	logger    ectologger.Logger
}

func NewEngine(
	db database.DB,
	composers ComposerStore,
	works WorkStore,
	flags FlagResolver,
	revisions RevisionRecorder,
	emitter *events.Emitter,
	logger ectologger.Logger,
) *Engine {
	return &Engine{
		db:        db,
		composers: composers,
		works:     works,
		flags:     flags,
		revisions: revisions,
		emitter:   emitter,
		logger:    logger,
	}
}

// Merge reconciles duplicateID into primaryID and resolves flagID.
// Child records union by URL (links, sources, recordings) or country code
// (nationalities); the duplicate's copies keep their is_primary,
// display_order, and metadata when carried over.
func (e *Engine) Merge(ctx context.Context, entityType models.EntityType, primaryID, duplicateID, flagID string) error {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.Merge")
	defer span.End()

	if !entityType.IsValid() {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown entity type %q", entityType)
	}
	if primaryID == duplicateID {
		return httperror.NewHTTPError(http.StatusBadRequest, "primary and duplicate must be different records")
	}

	actorID := appcontext.GetUserID(ctx)

	ctxTx, tx, err := database.GetTx(ctx, e.logger, e.db, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	switch entityType {
	case models.EntityTypeComposer:
		err = e.mergeComposer(ctxTx, primaryID, duplicateID)
	case models.EntityTypeWork:
		err = e.mergeWork(ctxTx, primaryID, duplicateID)
	}
	if err != nil {
		metrics.RecordMerge(string(entityType), "failed")
		return err
	}

	if flagID != "" {
		if _, err := e.flags.Resolve(ctxTx, flagID, models.FlagStatusResolved, actorID); err != nil {
			metrics.RecordMerge(string(entityType), "failed")
			return err
		}
	}

	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	snapshot := map[string]any{"merged_from": duplicateID}
	diff := map[string]any{"merged": true}
	if err := e.revisions.Record(ctxTx, entityType, primaryID, actor, models.RevisionActionUpdate, snapshot, diff); err != nil {
		metrics.RecordMerge(string(entityType), "failed")
		return err
	}

	if err := tx.Commit(ctxTx); err != nil {
		metrics.RecordMerge(string(entityType), "failed")
		return err
	}

	metrics.RecordMerge(string(entityType), "success")
	if flagID != "" {
		metrics.RecordReviewFlag(string(entityType), "resolved")
	}

	// event emission is best effort
	_ = e.emitter.EmitEntityMerged(ctx, entityType, primaryID, duplicateID, actorID)

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"entity_type":  entityType,
		"primary_id":   primaryID,
		"duplicate_id": duplicateID,
	}).Info("Merged duplicate entity")

	return nil
}

func (e *Engine) mergeComposer(ctx context.Context, primaryID, duplicateID string) error {
	if _, err := e.composers.GetWithChildren(ctx, primaryID); err != nil {
		return err
	}
	duplicate, err := e.composers.GetWithChildren(ctx, duplicateID)
	if err != nil {
		return err
	}

	if err := e.works.ReassignComposer(ctx, duplicateID, primaryID); err != nil {
		return err
	}

	for _, nationality := range duplicate.Nationalities {
		carried := nationality
		carried.ID = ""
		carried.ComposerID = primaryID
		if err := e.composers.InsertNationalityIfNew(ctx, &carried); err != nil {
			return err
		}
	}

	for _, link := range duplicate.Links {
		carried := link
		carried.ID = ""
		carried.ComposerID = primaryID
		if err := e.composers.InsertLinkIfNewURL(ctx, &carried); err != nil {
			return err
		}
	}

	return e.composers.Delete(ctx, duplicateID)
}

func (e *Engine) mergeWork(ctx context.Context, primaryID, duplicateID string) error {
	if _, err := e.works.GetWithChildren(ctx, primaryID); err != nil {
		return err
	}
	duplicate, err := e.works.GetWithChildren(ctx, duplicateID)
	if err != nil {
		return err
	}

	for _, source := range duplicate.Sources {
		carried := source
		carried.ID = ""
		carried.WorkID = primaryID
		if err := e.works.InsertSourceIfNewURL(ctx, &carried); err != nil {
			return err
		}
	}

	for _, recording := range duplicate.Recordings {
		carried := recording
		carried.ID = ""
		carried.WorkID = primaryID
		if err := e.works.InsertRecordingIfNewURL(ctx, &carried); err != nil {
			return err
		}
	}

	return e.works.Delete(ctx, duplicateID)
}
