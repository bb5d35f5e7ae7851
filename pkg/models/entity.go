package models

// EntityType identifies which catalog table an operation targets
type EntityType string

const (
	EntityTypeComposer EntityType = "composer"
	EntityTypeWork     EntityType = "work"
)

// IsValid returns true for a known entity type
func (t EntityType) IsValid() bool {
	return t == EntityTypeComposer || t == EntityTypeWork
}

// EntityStatus is the lifecycle status of a composer or work
type EntityStatus string

const (
	EntityStatusDraft     EntityStatus = "draft"
	EntityStatusPublished EntityStatus = "published"
)
