// Package revisions appends immutable audit rows for entity mutations.
package revisions

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"github.com/fdtorres1/opusgraph/pkg/metrics"
	"github.com/fdtorres1/opusgraph/pkg/models"
	"github.com/fdtorres1/opusgraph/pkg/tracing"
)

// Store persists revision rows
type Store interface {
	Insert(ctx context.Context, revision *models.Revision) error
}

// Logger records one revision row per entity mutation. Child-table writes
// are not individually logged; only the parent mutation is.
type Logger struct {
	store  Store
	logger ectologger.Logger
}

func NewLogger(store Store, logger ectologger.Logger) *Logger {
	return &Logger{
		store:  store,
		logger: logger,
	}
}

// Record appends a revision row. Snapshot and diff are marshaled as the
// row's jsonb payloads; a nil diff is stored as NULL.
func (l *Logger) Record(ctx context.Context, entityType models.EntityType, entityID string, actorID *string, action models.RevisionAction, snapshot any, diff any) error {
	ctx, span := tracing.StartSpan(ctx, "revisions.Logger.Record")
	defer span.End()

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		l.logger.WithContext(ctx).WithError(err).Error("failed to marshal revision snapshot")
		return err
	}

	var diffJSON json.RawMessage
	if diff != nil {
		diffJSON, err = json.Marshal(diff)
		if err != nil {
			l.logger.WithContext(ctx).WithError(err).Error("failed to marshal revision diff")
			return err
		}
	}

	revision := &models.Revision{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Action:     action,
		Snapshot:   snapshotJSON,
		Diff:       diffJSON,
	}

	if err := l.store.Insert(ctx, revision); err != nil {
		return err
	}

	metrics.RecordRevision(string(entityType), string(action))
	return nil
}

// DeriveAction maps a status transition to the revision action recorded
// for an update. The publish/unpublish distinction comes from comparing
// pre- and post-mutation status, never from a caller-supplied flag.
func DeriveAction(before, after models.EntityStatus) models.RevisionAction {
	switch {
	case before != models.EntityStatusPublished && after == models.EntityStatusPublished:
		return models.RevisionActionPublish
	case before == models.EntityStatusPublished && after != models.EntityStatusPublished:
		return models.RevisionActionUnpublish
	default:
		return models.RevisionActionUpdate
	}
}
