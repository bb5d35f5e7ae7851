package models

// FieldMapping maps a logical field name (first_name, links, ...) to the
// source column name in the uploaded rows. An absent mapping means the
// field was not provided.
type FieldMapping map[string]string

// ImportRow is one parsed row of an upload, keyed by source column name
type ImportRow map[string]string

// RowAction describes what the pipeline did with a row
type RowAction string

const (
	RowActionCreated RowAction = "created"
	RowActionUpdated RowAction = "updated"
	RowActionSkipped RowAction = "skipped"
)

// ValidateImportRequest is the request body for validating an import batch
type ValidateImportRequest struct {
	EntityType   EntityType   `json:"entity_type" validate:"required,oneof=composer work"`
	FieldMapping FieldMapping `json:"field_mapping" validate:"required"`
	Rows         []ImportRow  `json:"rows" validate:"required"`
}

// RowValidation is the per-row outcome of a validate pass.
// Warnings, including duplicate candidates, never block execution.
type RowValidation struct {
	RowIndex     int      `json:"row_index"`
	IsValid      bool     `json:"is_valid"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings"`
	DuplicateIDs []string `json:"duplicate_ids,omitempty"`
}

// ValidateImportResponse is the response for a validate pass
type ValidateImportResponse struct {
	Results []RowValidation `json:"results"`
}

// ExecuteImportRequest is the request body for executing an import batch
type ExecuteImportRequest struct {
	EntityType     EntityType   `json:"entity_type" validate:"required,oneof=composer work"`
	FieldMapping   FieldMapping `json:"field_mapping" validate:"required"`
	Rows           []ImportRow  `json:"rows" validate:"required"`
	SkipDuplicates bool         `json:"skip_duplicates"`
}

// RowResult is the per-row outcome of an execute pass
type RowResult struct {
	RowIndex int       `json:"row_index"`
	Success  bool      `json:"success"`
	EntityID *string   `json:"entity_id,omitempty"`
	Error    *string   `json:"error,omitempty"`
	Action   RowAction `json:"action"`
}

// ImportSummary is the batch-level rollup of an execute pass
type ImportSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// ExecuteImportResponse is the response for an execute pass
type ExecuteImportResponse struct {
	Results []RowResult   `json:"results"`
	Summary ImportSummary `json:"summary"`
}

// MergeRequest is the request body for merging a duplicate into a primary
type MergeRequest struct {
	PrimaryID   string `json:"primary_id" validate:"required,uuid"`
	DuplicateID string `json:"duplicate_id" validate:"required,uuid"`
}

// MergeResponse reports the outcome of a merge
type MergeResponse struct {
	Success bool `json:"success"`
}
