package models

import "time"

// UserProfile is an operator account with a role used for authorization
type UserProfile struct {
	ID          string    `json:"id" db:"id"`
	Email       string    `json:"email" db:"email"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Role        string    `json:"role" db:"role"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Country is a reference row for nationality validation
type Country struct {
	ISO2 string `json:"iso2" db:"iso2"`
	Name string `json:"name" db:"name"`
}
