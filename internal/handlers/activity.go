package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/fdtorres1/opusgraph/pkg/models"
)

// ActivityRepo serves the projected activity feed
type ActivityRepo interface {
	List(ctx context.Context, page, pageSize int) ([]models.ActivityEvent, int, error)
}

// RevisionRepo lists audit rows for one entity
type RevisionRepo interface {
	ListByEntity(ctx context.Context, entityType models.EntityType, entityID string, page, pageSize int) ([]models.Revision, int, error)
}

// ActivityHandler serves the activity feed and per-entity revision history
type ActivityHandler struct {
	activity  ActivityRepo
	revisions RevisionRepo
	logger    ectologger.Logger
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activity ActivityRepo, revisions RevisionRepo, logger ectologger.Logger) *ActivityHandler {
	return &ActivityHandler{
		activity:  activity,
		revisions: revisions,
		logger:    logger,
	}
}

// RegisterRoutes registers activity and revision history routes
func (h *ActivityHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/activity", h.Feed)
	g.GET("/composers/:id/revisions", h.composerRevisions)
	g.GET("/works/:id/revisions", h.workRevisions)
}

// Feed returns the newest activity events across the whole catalog
func (h *ActivityHandler) Feed(c echo.Context) error {
	ctx := c.Request().Context()

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 50)

	events, total, err := h.activity.List(ctx, page, pageSize)
	if err != nil {
		return err
	}

	return SuccessResponse(c, models.ActivityListResponse{
		Items:      events,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}

func (h *ActivityHandler) composerRevisions(c echo.Context) error {
	return h.listRevisions(c, models.EntityTypeComposer)
}

func (h *ActivityHandler) workRevisions(c echo.Context) error {
	return h.listRevisions(c, models.EntityTypeWork)
}

func (h *ActivityHandler) listRevisions(c echo.Context, entityType models.EntityType) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 50)

	revisions, total, err := h.revisions.ListByEntity(ctx, entityType, id.String(), page, pageSize)
	if err != nil {
		return err
	}

	return SuccessResponse(c, models.RevisionListResponse{
		Items:      revisions,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	})
}
