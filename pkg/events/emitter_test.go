package events

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"

	"github.com/fdtorres1/opusgraph/pkg/models"
)

func TestEmitterWithoutProducer(t *testing.T) {
	ctx := context.Background()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	t.Run("should no-op when no producer is configured", func(t *testing.T) {
		emitter := NewEmitter(nil, logger)

		assert.NoError(t, emitter.EmitEntityCreated(ctx, models.EntityTypeComposer, "c1", "u1", map[string]string{"name": "x"}))
		assert.NoError(t, emitter.EmitEntityUpdated(ctx, models.EntityTypeComposer, "c1", "u1", nil))
		assert.NoError(t, emitter.EmitEntityDeleted(ctx, models.EntityTypeWork, "w1", "u1"))
		assert.NoError(t, emitter.EmitEntityMerged(ctx, models.EntityTypeComposer, "c1", "c2", "u1"))
	})

	t.Run("should no-op on a nil emitter", func(t *testing.T) {
		var emitter *Emitter
		assert.NoError(t, emitter.EmitEntityDeleted(ctx, models.EntityTypeWork, "w1", "u1"))
	})
}
