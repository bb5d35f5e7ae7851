package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/fdtorres1/opusgraph/pkg/events"
	"github.com/fdtorres1/opusgraph/pkg/models"
	"github.com/fdtorres1/opusgraph/pkg/revisions"
)

// ComposerRepo is the composer persistence surface used by the handler
type ComposerRepo interface {
	Create(ctx context.Context, composer *models.Composer) (*models.Composer, error)
	Get(ctx context.Context, id string) (*models.Composer, error)
	GetWithChildren(ctx context.Context, id string) (*models.ComposerWithChildren, error)
	List(ctx context.Context, status string, search string, page, pageSize int) ([]models.Composer, int, error)
	Update(ctx context.Context, composer *models.Composer) error
	Delete(ctx context.Context, id string) error
	ReplaceLinks(ctx context.Context, composerID string, links []models.ComposerLink) error
	ReplaceNationalities(ctx context.Context, composerID string, nationalities []models.ComposerNationality) error
}

// RevisionRecorder appends audit rows for handler mutations
type RevisionRecorder interface {
	Record(ctx context.Context, entityType models.EntityType, entityID string, actorID *string, action models.RevisionAction, snapshot any, diff any) error
}

// ComposerHandler handles composer CRUD
type ComposerHandler struct {
	composers ComposerRepo
	revisions RevisionRecorder
	emitter   *events.Emitter
	logger    ectologger.Logger
}

// NewComposerHandler creates a new composer handler
func NewComposerHandler(composers ComposerRepo, revisions RevisionRecorder, emitter *events.Emitter, logger ectologger.Logger) *ComposerHandler {
	return &ComposerHandler{
		composers: composers,
		revisions: revisions,
		emitter:   emitter,
		logger:    logger,
	}
}

// RegisterRoutes registers composer routes
func (h *ComposerHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/composers", h.List)
	g.POST("/composers", h.Create)
	g.GET("/composers/:id", h.Get)
	g.PUT("/composers/:id", h.Update)
	g.DELETE("/composers/:id", h.Delete)
}

// List returns composers with optional status and search filters
func (h *ComposerHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 50)

	composers, total, err := h.composers.List(ctx, c.QueryParam("status"), c.QueryParam("search"), page, pageSize)
	if err != nil {
		return err
	}

	return SuccessResponse(c, models.ComposerListResponse{
		Items:      composers,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get returns one composer with its links and nationalities
func (h *ComposerHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	composer, err := h.composers.GetWithChildren(ctx, id.String())
	if err != nil {
		return err
	}

	return SuccessResponse(c, composer)
}

// Create inserts a composer with its child records
func (h *ComposerHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, err := GetActorID(c)
	if err != nil {
		return err
	}

	var req models.CreateComposerRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return BadRequest(err.Error())
	}

	composer, err := h.composers.Create(ctx, &models.Composer{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		BirthYear: req.BirthYear,
		DeathYear: req.DeathYear,
		Biography: req.Biography,
		Status:    req.Status,
		CreatedBy: &actorID,
	})
	if err != nil {
		return err
	}

	if err := h.composers.ReplaceLinks(ctx, composer.ID, linkRows(req.Links)); err != nil {
		return err
	}
	if err := h.composers.ReplaceNationalities(ctx, composer.ID, nationalityRows(req.Nationalities)); err != nil {
		return err
	}

	if err := h.revisions.Record(ctx, models.EntityTypeComposer, composer.ID, &actorID, models.RevisionActionCreate, composer, nil); err != nil {
		return err
	}

	_ = h.emitter.EmitEntityCreated(ctx, models.EntityTypeComposer, composer.ID, actorID, composer)

	return CreatedResponse(c, composer)
}

// Update applies field changes and replaces submitted child lists whole
func (h *ComposerHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, err := GetActorID(c)
	if err != nil {
		return err
	}

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req models.UpdateComposerRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return BadRequest(err.Error())
	}

	composer, err := h.composers.Get(ctx, id.String())
	if err != nil {
		return err
	}
	statusBefore := composer.Status

	if req.FirstName != nil {
		composer.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		composer.LastName = *req.LastName
	}
	if req.BirthYear != nil {
		composer.BirthYear = req.BirthYear
	}
	if req.DeathYear != nil {
		composer.DeathYear = req.DeathYear
	}
	if req.Biography != nil {
		composer.Biography = req.Biography
	}
	if req.Status != nil {
		composer.Status = *req.Status
	}

	if err := h.composers.Update(ctx, composer); err != nil {
		return err
	}

	if req.Links != nil {
		if err := h.composers.ReplaceLinks(ctx, composer.ID, linkRows(*req.Links)); err != nil {
			return err
		}
	}
	if req.Nationalities != nil {
		if err := h.composers.ReplaceNationalities(ctx, composer.ID, nationalityRows(*req.Nationalities)); err != nil {
			return err
		}
	}

	action := revisions.DeriveAction(statusBefore, composer.Status)
	if err := h.revisions.Record(ctx, models.EntityTypeComposer, composer.ID, &actorID, action, composer, nil); err != nil {
		return err
	}

	_ = h.emitter.EmitEntityUpdated(ctx, models.EntityTypeComposer, composer.ID, actorID, composer)

	return SuccessResponse(c, composer)
}

// Delete removes a composer and records the deletion
func (h *ComposerHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, err := GetActorID(c)
	if err != nil {
		return err
	}

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	composer, err := h.composers.Get(ctx, id.String())
	if err != nil {
		return err
	}

	if err := h.composers.Delete(ctx, composer.ID); err != nil {
		return err
	}

	if err := h.revisions.Record(ctx, models.EntityTypeComposer, composer.ID, &actorID, models.RevisionActionDelete, composer, nil); err != nil {
		return err
	}

	_ = h.emitter.EmitEntityDeleted(ctx, models.EntityTypeComposer, composer.ID, actorID)

	return NoContentResponse(c)
}

func linkRows(inputs []models.LinkInput) []models.ComposerLink {
	links := make([]models.ComposerLink, len(inputs))
	for i, input := range inputs {
		links[i] = models.ComposerLink{
			URL:          input.URL,
			Label:        input.Label,
			IsPrimary:    input.IsPrimary,
			DisplayOrder: input.DisplayOrder,
		}
	}
	return links
}

func nationalityRows(codes []string) []models.ComposerNationality {
	nationalities := make([]models.ComposerNationality, len(codes))
	for i, code := range codes {
		nationalities[i] = models.ComposerNationality{
			CountryISO2:  code,
			DisplayOrder: i,
		}
	}
	return nationalities
}
