package models

import "time"

// ActivityEvent is a projected feed row unioned from revisions and review
// flags, ordered by timestamp. It is read-only and never stored directly.
type ActivityEvent struct {
	Source     string     `json:"source" db:"source"` // revision or review_flag
	EntityType EntityType `json:"entity_type" db:"entity_type"`
	EntityID   string     `json:"entity_id" db:"entity_id"`
	ActorID    *string    `json:"actor_id,omitempty" db:"actor_id"`
	Action     string     `json:"action" db:"action"`
	OccurredAt time.Time  `json:"occurred_at" db:"occurred_at"`
}

// ActivityListResponse is the response for the activity feed
type ActivityListResponse struct {
	Items      []ActivityEvent `json:"items"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
}
