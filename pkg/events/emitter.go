// Package events handles event emission for entity lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/fdtorres1/opusgraph/pkg/kafka"
	"github.com/fdtorres1/opusgraph/pkg/models"
	"github.com/fdtorres1/opusgraph/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes entity lifecycle events. A nil producer makes every
// emit a no-op, for deployments without Kafka.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitEntityCreated emits an entity created event
func (e *Emitter) EmitEntityCreated(ctx context.Context, entityType models.EntityType, entityID, actorID string, snapshot any) error {
	return e.emit(ctx, string(EventTypeEntityCreated), entityType, entityID, actorID, snapshot, "")
}

// EmitEntityUpdated emits an entity updated event
func (e *Emitter) EmitEntityUpdated(ctx context.Context, entityType models.EntityType, entityID, actorID string, snapshot any) error {
	return e.emit(ctx, string(EventTypeEntityUpdated), entityType, entityID, actorID, snapshot, "")
}

// EmitEntityDeleted emits an entity deleted event
func (e *Emitter) EmitEntityDeleted(ctx context.Context, entityType models.EntityType, entityID, actorID string) error {
	return e.emit(ctx, string(EventTypeEntityDeleted), entityType, entityID, actorID, nil, "")
}

// EmitEntityMerged emits an entity merged event for the surviving primary
func (e *Emitter) EmitEntityMerged(ctx context.Context, entityType models.EntityType, primaryID, duplicateID, actorID string) error {
	return e.emit(ctx, string(EventTypeEntityMerged), entityType, primaryID, actorID, nil, duplicateID)
}

func (e *Emitter) emit(ctx context.Context, eventType string, entityType models.EntityType, entityID, actorID string, snapshot any, mergedFrom string) error {
	if e == nil || e.producer == nil {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.emit")
	defer span.End()

	var data json.RawMessage
	if snapshot != nil {
		var err error
		data, err = json.Marshal(snapshot)
		if err != nil {
			e.logger.WithContext(ctx).WithError(err).Error("Failed to marshal event snapshot")
			return err
		}
	}

	event := &kafka.EntityEvent{
		EventType:  eventType,
		EntityID:   entityID,
		EntityType: string(entityType),
		ActorID:    actorID,
		Data:       data,
		MergedFrom: mergedFrom,
	}

	if err := e.producer.PublishEntityEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
		return err
	}

	return nil
}
