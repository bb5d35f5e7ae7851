package handlers

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/fdtorres1/opusgraph/pkg/events"
	"github.com/fdtorres1/opusgraph/pkg/merging"
	"github.com/fdtorres1/opusgraph/pkg/metrics"
	"github.com/fdtorres1/opusgraph/pkg/models"
)

// FlagRepo is the review flag persistence surface used by the handler
type FlagRepo interface {
	Create(ctx context.Context, flag *models.ReviewFlag) (*models.ReviewFlag, error)
	Get(ctx context.Context, id string) (*models.ReviewFlag, error)
	List(ctx context.Context, reason string, status string, page, pageSize int) ([]models.ReviewFlag, int, error)
	Resolve(ctx context.Context, id string, status models.FlagStatus, resolvedBy string) (*models.ReviewFlag, error)
}

// ComparisonComposerRepo loads composers with children for comparison views
type ComparisonComposerRepo interface {
	GetWithChildren(ctx context.Context, id string) (*models.ComposerWithChildren, error)
}

// ComparisonWorkRepo loads works with children for comparison views
type ComparisonWorkRepo interface {
	GetWithChildren(ctx context.Context, id string) (*models.WorkWithChildren, error)
}

// ReviewHandler handles the review queue: listing flags, comparing a
// flagged entity against its duplicate candidates, resolving, and merging
type ReviewHandler struct {
	flags     FlagRepo
	composers ComparisonComposerRepo
	works     ComparisonWorkRepo
	merger    *merging.Engine
	emitter   *events.Emitter
	logger    ectologger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(
	flags FlagRepo,
	composers ComparisonComposerRepo,
	works ComparisonWorkRepo,
	merger *merging.Engine,
	emitter *events.Emitter,
	logger ectologger.Logger,
) *ReviewHandler {
	return &ReviewHandler{
		flags:     flags,
		composers: composers,
		works:     works,
		merger:    merger,
		emitter:   emitter,
		logger:    logger,
	}
}

// RegisterRoutes registers review routes
func (h *ReviewHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/review/flags", h.List)
	g.POST("/review/flags", h.Create)
	g.GET("/review/flags/:id/compare", h.Compare)
	g.POST("/review/flags/:id/resolve", h.Resolve)
	g.POST("/review/flags/:id/merge", h.Merge)
}

// List returns review flags with optional reason and status filters
func (h *ReviewHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 50)

	flags, total, err := h.flags.List(ctx, c.QueryParam("reason"), c.QueryParam("status"), page, pageSize)
	if err != nil {
		return err
	}

	return SuccessResponse(c, models.ReviewFlagListResponse{
		Items:      flags,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Create opens a manual review flag
func (h *ReviewHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, err := GetActorID(c)
	if err != nil {
		return err
	}

	var req models.CreateReviewFlagRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return BadRequest(err.Error())
	}

	flag, err := h.flags.Create(ctx, &models.ReviewFlag{
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Reason:     req.Reason,
		Details:    req.Details,
		CreatedBy:  &actorID,
	})
	if err != nil {
		return err
	}

	metrics.RecordReviewFlag(string(flag.EntityType), "created")

	return CreatedResponse(c, flag)
}

// Compare returns the flagged entity next to every duplicate candidate
// named in the flag details. Candidates deleted since the flag was raised
// are skipped rather than failing the comparison.
func (h *ReviewHandler) Compare(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	flag, err := h.flags.Get(ctx, id.String())
	if err != nil {
		return err
	}

	comparison := models.FlagComparison{
		EntityType: flag.EntityType,
		Duplicates: []any{},
	}

	comparison.Primary, err = h.loadEntity(ctx, flag.EntityType, flag.EntityID)
	if err != nil {
		return err
	}

	for _, duplicateID := range flag.Details.DuplicateIDs {
		entity, err := h.loadEntity(ctx, flag.EntityType, duplicateID)
		if err != nil {
			if httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusNotFound {
				continue
			}
			return err
		}
		comparison.Duplicates = append(comparison.Duplicates, entity)
	}

	return SuccessResponse(c, comparison)
}

// Resolve moves a flag to resolved or dismissed without merging
func (h *ReviewHandler) Resolve(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, err := GetActorID(c)
	if err != nil {
		return err
	}

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req models.ResolveFlagRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return BadRequest(err.Error())
	}

	status := models.FlagStatusResolved
	if req.Action == "dismiss" {
		status = models.FlagStatusDismissed
	}

	flag, err := h.flags.Resolve(ctx, id.String(), status, actorID)
	if err != nil {
		return err
	}

	metrics.RecordReviewFlag(string(flag.EntityType), string(status))

	return SuccessResponse(c, flag)
}

// Merge reconciles a duplicate into a primary and resolves the flag
func (h *ReviewHandler) Merge(c echo.Context) error {
	ctx := c.Request().Context()

	if _, err := GetActorID(c); err != nil {
		return err
	}

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	var req models.MergeRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return BadRequest(err.Error())
	}

	flag, err := h.flags.Get(ctx, id.String())
	if err != nil {
		return err
	}

	if err := h.merger.Merge(ctx, flag.EntityType, req.PrimaryID, req.DuplicateID, flag.ID); err != nil {
		return err
	}

	return SuccessResponse(c, models.MergeResponse{Success: true})
}

func (h *ReviewHandler) loadEntity(ctx context.Context, entityType models.EntityType, id string) (any, error) {
	switch entityType {
	case models.EntityTypeWork:
		return h.works.GetWithChildren(ctx, id)
	default:
		return h.composers.GetWithChildren(ctx, id)
	}
}
