package models

import "time"

// Composer represents a composer record
// Field order matches schema: id, first_name, last_name, birth_year, death_year, ...
type Composer struct {
	ID        string       `json:"id" db:"id"`
	FirstName string       `json:"first_name" db:"first_name"`
	LastName  string       `json:"last_name" db:"last_name"`
	BirthYear *int         `json:"birth_year,omitempty" db:"birth_year"`
	DeathYear *int         `json:"death_year,omitempty" db:"death_year"`
	Biography *string      `json:"biography,omitempty" db:"biography"`
	Status    EntityStatus `json:"status" db:"status"`
	CreatedBy *string      `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// FullName returns "First Last" with single spacing
func (c *Composer) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	return c.FirstName + " " + c.LastName
}

// ComposerLink is an external URL owned by a composer
type ComposerLink struct {
	ID           string    `json:"id" db:"id"`
	ComposerID   string    `json:"composer_id" db:"composer_id"`
	URL          string    `json:"url" db:"url"`
	Label        *string   `json:"label,omitempty" db:"label"`
	IsPrimary    bool      `json:"is_primary" db:"is_primary"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ComposerNationality ties a composer to an ISO 3166-1 alpha-2 country code
type ComposerNationality struct {
	ID           string    `json:"id" db:"id"`
	ComposerID   string    `json:"composer_id" db:"composer_id"`
	CountryISO2  string    `json:"country_iso2" db:"country_iso2"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ComposerWithChildren is a composer with its full child record set,
// the shape returned by detail and comparison reads
type ComposerWithChildren struct {
	Composer
	Links         []ComposerLink        `json:"links"`
	Nationalities []ComposerNationality `json:"nationalities"`
}

// LinkInput is a link submitted on a composer write
type LinkInput struct {
	URL          string  `json:"url" validate:"required,url"`
	Label        *string `json:"label,omitempty"`
	IsPrimary    bool    `json:"is_primary"`
	DisplayOrder int     `json:"display_order"`
}

// CreateComposerRequest is the request body for creating a composer
type CreateComposerRequest struct {
	FirstName     string       `json:"first_name" validate:"required"`
	LastName      string       `json:"last_name" validate:"required"`
	BirthYear     *int         `json:"birth_year,omitempty" validate:"omitempty,min=1000,max=2100"`
	DeathYear     *int         `json:"death_year,omitempty" validate:"omitempty,min=1000,max=2100"`
	Biography     *string      `json:"biography,omitempty"`
	Status        EntityStatus `json:"status,omitempty" validate:"omitempty,oneof=draft published"`
	Links         []LinkInput  `json:"links,omitempty" validate:"omitempty,dive"`
	Nationalities []string     `json:"nationalities,omitempty" validate:"omitempty,dive,len=2"`
}

// UpdateComposerRequest is the request body for updating a composer.
// Links and nationalities are full lists that replace the stored sets.
type UpdateComposerRequest struct {
	FirstName     *string       `json:"first_name,omitempty"`
	LastName      *string       `json:"last_name,omitempty"`
	BirthYear     *int          `json:"birth_year,omitempty" validate:"omitempty,min=1000,max=2100"`
	DeathYear     *int          `json:"death_year,omitempty" validate:"omitempty,min=1000,max=2100"`
	Biography     *string       `json:"biography,omitempty"`
	Status        *EntityStatus `json:"status,omitempty" validate:"omitempty,oneof=draft published"`
	Links         *[]LinkInput  `json:"links,omitempty" validate:"omitempty,dive"`
	Nationalities *[]string     `json:"nationalities,omitempty" validate:"omitempty,dive,len=2"`
}

// ComposerListResponse is the response for listing composers
type ComposerListResponse struct {
	Items      []Composer `json:"items"`
	TotalCount int        `json:"total_count"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}
