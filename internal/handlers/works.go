package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/fdtorres1/opusgraph/pkg/events"
	"github.com/fdtorres1/opusgraph/pkg/models"
	"github.com/fdtorres1/opusgraph/pkg/revisions"
)

// WorkRepo is the work persistence surface used by the handler
type WorkRepo interface {
	Create(ctx context.Context, work *models.Work) (*models.Work, error)
	Get(ctx context.Context, id string) (*models.Work, error)
	GetWithChildren(ctx context.Context, id string) (*models.WorkWithChildren, error)
	List(ctx context.Context, composerID string, status string, search string, page, pageSize int) ([]models.Work, int, error)
	Update(ctx context.Context, work *models.Work) error
	Delete(ctx context.Context, id string) error
	ReplaceSources(ctx context.Context, workID string, sources []models.WorkSource) error
	ReplaceRecordings(ctx context.Context, workID string, recordings []models.WorkRecording) error
}

// ComposerGetter resolves composer references on work writes
type ComposerGetter interface {
	Get(ctx context.Context, id string) (*models.Composer, error)
}

// WorkHandler handles work CRUD
type WorkHandler struct {
	works     WorkRepo
	composers ComposerGetter
	revisions RevisionRecorder
	emitter   *events.Emitter
	logger    ectologger.Logger
}

// NewWorkHandler creates a new work handler
func NewWorkHandler(works WorkRepo, composers ComposerGetter, revisions RevisionRecorder, emitter *events.Emitter, logger ectologger.Logger) *WorkHandler {
	return &WorkHandler{
		works:     works,
		composers: composers,
		revisions: revisions,
		emitter:   emitter,
		logger:    logger,
	}
}

// RegisterRoutes registers work routes
func (h *WorkHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/works", h.List)
	g.POST("/works", h.Create)
	g.GET("/works/:id", h.Get)
	g.PUT("/works/:id", h.Update)
	g.DELETE("/works/:id", h.Delete)
}

// List returns works with optional composer, status, and search filters
func (h *WorkHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 50)

	works, total, err := h.works.List(ctx, c.QueryParam("composer_id"), c.QueryParam("status"), c.QueryParam("search"), page, pageSize)
	if err != nil {
		return err
	}

	return SuccessResponse(c, models.WorkListResponse{
		Items:      works,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get returns one work with its sources and recordings
func (h *WorkHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	work, err := h.works.GetWithChildren(ctx, id.String())
	if err != nil {
		return err
	}

	return SuccessResponse(c, work)
}

// Create inserts a work with its child records
func (h *WorkHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, err := GetActorID(c)
	if err != nil {
		return err
	}

	var req models.CreateWorkRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return BadRequest(err.Error())
	}

	if _, err := h.composers.Get(ctx, req.ComposerID); err != nil {
		return err
	}

	work, err := h.works.Create(ctx, &models.Work{
		ComposerID:      req.ComposerID,
		Name:            req.Name,
		OpusNumber:      req.OpusNumber,
		CompositionYear: req.CompositionYear,
		DurationSeconds: req.DurationSeconds,
		Description:     req.Description,
		Status:          req.Status,
		CreatedBy:       &actorID,
	})
	if err != nil {
		return err
	}

	if err := h.works.ReplaceSources(ctx, work.ID, sourceRows(req.Sources)); err != nil {
		return err
	}
	if err := h.works.ReplaceRecordings(ctx, work.ID, recordingRows(req.Recordings)); err != nil {
		return err
	}

	if err := h.revisions.Record(ctx, models.EntityTypeWork, work.ID, &actorID, models.RevisionActionCreate, work, nil); err != nil {
		return err
	}

	_ = h.emitter.EmitEntityCreated(ctx, models.EntityTypeWork, work.ID, actorID, work)

	return CreatedResponse(c, work)
}

// Update applies field changes and replaces submitted child lists whole
func (h *WorkHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, err := GetActorID(c)
	if err != nil {
		return err
	}

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdateWorkRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return BadRequest(err.Error())
	}

	work, err := h.works.Get(ctx, id.String())
	if err != nil {
		return err
	}
	statusBefore := work.Status

	if req.ComposerID != nil {
		if _, err := h.composers.Get(ctx, *req.ComposerID); err != nil {
			return err
		}
		work.ComposerID = *req.ComposerID
	}
	if req.Name != nil {
		work.Name = *req.Name
	}
	if req.OpusNumber != nil {
		work.OpusNumber = req.OpusNumber
	}
	if req.CompositionYear != nil {
		work.CompositionYear = req.CompositionYear
	}
	if req.DurationSeconds != nil {
		work.DurationSeconds = req.DurationSeconds
	}
	if req.Description != nil {
		work.Description = req.Description
	}
	if req.Status != nil {
		work.Status = *req.Status
	}

	if err := h.works.Update(ctx, work); err != nil {
		return err
	}

	if req.Sources != nil {
		if err := h.works.ReplaceSources(ctx, work.ID, sourceRows(*req.Sources)); err != nil {
			return err
		}
	}
	if req.Recordings != nil {
		if err := h.works.ReplaceRecordings(ctx, work.ID, recordingRows(*req.Recordings)); err != nil {
			return err
		}
	}

	action := revisions.DeriveAction(statusBefore, work.Status)
	if err := h.revisions.Record(ctx, models.EntityTypeWork, work.ID, &actorID, action, work, nil); err != nil {
		return err
	}

	_ = h.emitter.EmitEntityUpdated(ctx, models.EntityTypeWork, work.ID, actorID, work)

	return SuccessResponse(c, work)
}

// Delete removes a work and records the deletion
func (h *WorkHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, err := GetActorID(c)
	if err != nil {
		return err
	}

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	work, err := h.works.Get(ctx, id.String())
	if err != nil {
		return err
	}

	if err := h.works.Delete(ctx, work.ID); err != nil {
		return err
	}

	if err := h.revisions.Record(ctx, models.EntityTypeWork, work.ID, &actorID, models.RevisionActionDelete, work, nil); err != nil {
		return err
	}

	_ = h.emitter.EmitEntityDeleted(ctx, models.EntityTypeWork, work.ID, actorID)

	return NoContentResponse(c)
}

func sourceRows(inputs []models.SourceInput) []models.WorkSource {
	sources := make([]models.WorkSource, len(inputs))
	for i, input := range inputs {
		sources[i] = models.WorkSource{
			URL:          input.URL,
			Title:        input.Title,
			DisplayOrder: input.DisplayOrder,
		}
	}
	return sources
}

func recordingRows(inputs []models.RecordingInput) []models.WorkRecording {
	recordings := make([]models.WorkRecording, len(inputs))
	for i, input := range inputs {
		recordings[i] = models.WorkRecording{
			URL:           input.URL,
			Provider:      input.Provider,
			EmbedMetadata: input.EmbedMetadata,
			DisplayOrder:  input.DisplayOrder,
		}
	}
	return recordings
}
