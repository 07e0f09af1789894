package models

import "time"

// Child is a parent-managed profile for the child a session is booked for.
type Child struct {
	ID        string    `db:"id" json:"id"`
	ParentID  string    `db:"parent_id" json:"parent_id"`
	FullName  string    `db:"full_name" json:"full_name"`
	BirthDate time.Time `db:"birth_date" json:"birth_date"`
	Diagnosis *string   `db:"diagnosis" json:"diagnosis,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ChildRequest creates or updates a child profile.
type ChildRequest struct {
	FullName  string  `json:"full_name" validate:"required"`
	BirthDate string  `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Diagnosis *string `json:"diagnosis,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}
