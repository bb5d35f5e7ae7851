package models

import (
	"encoding/json"
	"time"
)

// RevisionAction is the kind of mutation a revision records
type RevisionAction string

const (
	RevisionActionCreate    RevisionAction = "create"
	RevisionActionUpdate    RevisionAction = "update"
	RevisionActionDelete    RevisionAction = "delete"
	RevisionActionPublish   RevisionAction = "publish"
	RevisionActionUnpublish RevisionAction = "unpublish"
)

// Revision is an append-only audit row. Rows are never updated or deleted.
type Revision struct {
	ID         string          `json:"id" db:"id"`
	EntityType EntityType      `json:"entity_type" db:"entity_type"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	ActorID    *string         `json:"actor_id,omitempty" db:"actor_id"`
	Action     RevisionAction  `json:"action" db:"action"`
	Snapshot   json.RawMessage `json:"snapshot" db:"snapshot"`
	Diff       json.RawMessage `json:"diff,omitempty" db:"diff"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// RevisionListResponse is the response for listing revisions
type RevisionListResponse struct {
	Items      []Revision `json:"items"`
	TotalCount int        `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}
