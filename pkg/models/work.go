package models

import (
	"time"

	"github.com/fdtorres1/opusgraph/pkg/database"
)

// Work represents a musical work owned by a composer
type Work struct {
	ID              string       `json:"id" db:"id"`
	ComposerID      string       `json:"composer_id" db:"composer_id"`
	Name            string       `json:"name" db:"name"`
	OpusNumber      *string      `json:"opus_number,omitempty" db:"opus_number"`
	CompositionYear *int         `json:"composition_year,omitempty" db:"composition_year"`
	DurationSeconds *int         `json:"duration_seconds,omitempty" db:"duration_seconds"`
	Description     *string      `json:"description,omitempty" db:"description"`
	Status          EntityStatus `json:"status" db:"status"`
	CreatedBy       *string      `json:"created_by,omitempty" db:"created_by"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// WorkSource is a reference URL (score, catalog entry) owned by a work
type WorkSource struct {
	ID           string    `json:"id" db:"id"`
	WorkID       string    `json:"work_id" db:"work_id"`
	URL          string    `json:"url" db:"url"`
	Title        *string   `json:"title,omitempty" db:"title"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// WorkRecording is a playable recording URL owned by a work
type WorkRecording struct {
	ID            string                         `json:"id" db:"id"`
	WorkID        string                         `json:"work_id" db:"work_id"`
	URL           string                         `json:"url" db:"url"`
	Provider      *string                        `json:"provider,omitempty" db:"provider"`
	EmbedMetadata database.JSONB[map[string]any] `json:"embed_metadata" db:"embed_metadata"`
	DisplayOrder  int                            `json:"display_order" db:"display_order"`
	CreatedAt     time.Time                      `json:"created_at" db:"created_at"`
}

// WorkWithChildren is a work with its full child record set
type WorkWithChildren struct {
	Work
	Sources    []WorkSource    `json:"sources"`
	Recordings []WorkRecording `json:"recordings"`
}

// SourceInput is a source submitted on a work write
type SourceInput struct {
	URL          string  `json:"url" validate:"required,url"`
	Title        *string `json:"title,omitempty"`
	DisplayOrder int     `json:"display_order"`
}

// RecordingInput is a recording submitted on a work write
type RecordingInput struct {
	URL           string                         `json:"url" validate:"required,url"`
	Provider      *string                        `json:"provider,omitempty"`
	EmbedMetadata database.JSONB[map[string]any] `json:"embed_metadata"`
	DisplayOrder  int                            `json:"display_order"`
}

// CreateWorkRequest is the request body for creating a work
type CreateWorkRequest struct {
	ComposerID      string           `json:"composer_id" validate:"required,uuid"`
	Name            string           `json:"name" validate:"required"`
	OpusNumber      *string          `json:"opus_number,omitempty"`
	CompositionYear *int             `json:"composition_year,omitempty" validate:"omitempty,min=1000,max=2100"`
	DurationSeconds *int             `json:"duration_seconds,omitempty" validate:"omitempty,min=0"`
	Description     *string          `json:"description,omitempty"`
	Status          EntityStatus     `json:"status,omitempty" validate:"omitempty,oneof=draft published"`
	Sources         []SourceInput    `json:"sources,omitempty" validate:"omitempty,dive"`
	Recordings      []RecordingInput `json:"recordings,omitempty" validate:"omitempty,dive"`
}

// UpdateWorkRequest is the request body for updating a work.
// Sources and recordings are full lists that replace the stored sets.
type UpdateWorkRequest struct {
	ComposerID      *string           `json:"composer_id,omitempty" validate:"omitempty,uuid"`
	Name            *string           `json:"name,omitempty"`
	OpusNumber      *string           `json:"opus_number,omitempty"`
	CompositionYear *int              `json:"composition_year,omitempty" validate:"omitempty,min=1000,max=2100"`
	DurationSeconds *int              `json:"duration_seconds,omitempty" validate:"omitempty,min=0"`
	Description     *string           `json:"description,omitempty"`
	Status          *EntityStatus     `json:"status,omitempty" validate:"omitempty,oneof=draft published"`
	Sources         *[]SourceInput    `json:"sources,omitempty" validate:"omitempty,dive"`
	Recordings      *[]RecordingInput `json:"recordings,omitempty" validate:"omitempty,dive"`
}

// WorkListResponse is the response for listing works
type WorkListResponse struct {
	Items      []Work `json:"items"`
	TotalCount int    `json:"total_count"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}
