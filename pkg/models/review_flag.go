package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FlagStatus is the lifecycle status of a review flag
type FlagStatus string

const (
	FlagStatusOpen      FlagStatus = "open"
	FlagStatusResolved  FlagStatus = "resolved"
	FlagStatusDismissed FlagStatus = "dismissed"
)

// FlagReasonPossibleDuplicate marks a flag raised by duplicate detection
const FlagReasonPossibleDuplicate = "possible_duplicate"

// FlagDetails is the structured payload on a review flag.
// For duplicate flags, DuplicateIDs is the ordered candidate set.
type FlagDetails struct {
	DuplicateIDs     []string `json:"duplicate_ids,omitempty"`
	ImportSource     string   `json:"import_source,omitempty"`
	ImportedName     *string  `json:"imported_name,omitempty"`
	ImportedWorkName *string  `json:"imported_work_name,omitempty"`
}

func (d *FlagDetails) Scan(src any) error {
	if src == nil {
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("FlagDetails.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(b, d)
}

func (d FlagDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// ReviewFlag is a pending human-review task
type ReviewFlag struct {
	ID         string      `json:"id" db:"id"`
	EntityType EntityType  `json:"entity_type" db:"entity_type"`
	EntityID   string      `json:"entity_id" db:"entity_id"`
	Reason     string      `json:"reason" db:"reason"`
	Status     FlagStatus  `json:"status" db:"status"`
	Details    FlagDetails `json:"details" db:"details"`
	CreatedBy  *string     `json:"created_by,omitempty" db:"created_by"`
	ResolvedBy *string     `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// CreateReviewFlagRequest is the request for creating a review flag
type CreateReviewFlagRequest struct {
	EntityType EntityType  `json:"entity_type" validate:"required,oneof=composer work"`
	EntityID   string      `json:"entity_id" validate:"required,uuid"`
	Reason     string      `json:"reason" validate:"required"`
	Details    FlagDetails `json:"details"`
}

// ResolveFlagRequest is the request for resolving or dismissing a flag
type ResolveFlagRequest struct {
	Action string `json:"action" validate:"required,oneof=resolve dismiss"`
}

// ReviewFlagListResponse is the response for listing review flags
type ReviewFlagListResponse struct {
	Items      []ReviewFlag `json:"items"`
	TotalCount int          `json:"total_count"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
}

// FlagComparison is the side-by-side payload for a duplicate flag:
// the flagged primary entity and every listed duplicate, with children
type FlagComparison struct {
	EntityType EntityType `json:"entity_type"`
	Primary    any        `json:"primary"`
	Duplicates []any      `json:"duplicates"`
}
