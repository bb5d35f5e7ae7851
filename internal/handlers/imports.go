package handlers

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/fdtorres1/opusgraph/pkg/importer"
	"github.com/fdtorres1/opusgraph/pkg/models"
)

// ImportHandler handles CSV import validation and execution
type ImportHandler struct {
	pipeline *importer.Pipeline
	logger   ectologger.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(pipeline *importer.Pipeline, logger ectologger.Logger) *ImportHandler {
	return &ImportHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// RegisterRoutes registers import routes
func (h *ImportHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/import/validate", h.Validate)
	g.POST("/import/execute", h.Execute)
}

// Validate dry-runs an import batch and reports per-row errors, warnings,
// and duplicate candidates without writing anything
func (h *ImportHandler) Validate(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.ValidateImportRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return BadRequest(err.Error())
	}

	resp, err := h.pipeline.Validate(ctx, &req)
	if err != nil {
		return err
	}

	return SuccessResponse(c, resp)
}

// Execute inserts an import batch row by row and returns per-row results
// with a batch summary
func (h *ImportHandler) Execute(c echo.Context) error {
	ctx := c.Request().Context()

	if _, err := GetActorID(c); err != nil {
		return err
	}

	var req models.ExecuteImportRequest
	if err := c.Bind(&req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return BadRequest(err.Error())
	}

	resp, err := h.pipeline.Execute(ctx, &req)
	if err != nil {
		return err
	}

	return SuccessResponse(c, resp)
}
