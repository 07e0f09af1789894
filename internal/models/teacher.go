package models

import "time"

// TeacherProfile represents a shadow teacher's public marketplace profile.
type TeacherProfile struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	Bio             *string   `db:"bio" json:"bio,omitempty"`
	Specialization  *string   `db:"specialization" json:"specialization,omitempty"`
	HourlyRate      float64   `db:"hourly_rate" json:"hourly_rate"`
	YearsExperience int       `db:"years_experience" json:"years_experience"`
	City            string    `db:"city" json:"city"`
	Verified        bool      `db:"verified" json:"verified"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherProfileDetail joins the profile with its user account fields.
type TeacherProfileDetail struct {
	TeacherProfile
	FullName string  `db:"full_name" json:"full_name"`
	Email    string  `db:"email" json:"email"`
	Phone    *string `db:"phone" json:"phone,omitempty"`
}

// TeacherSummary is the compact shape returned by the assignment resolver.
type TeacherSummary struct {
	ID         string  `db:"id" json:"id"`
	FullName   string  `db:"full_name" json:"full_name"`
	HourlyRate float64 `db:"hourly_rate" json:"hourly_rate"`
	City       string  `db:"city" json:"city"`
}

// TeacherProfileRequest creates or updates a teacher's marketplace profile.
type TeacherProfileRequest struct {
	Bio             *string `json:"bio,omitempty"`
	Specialization  *string `json:"specialization,omitempty"`
	HourlyRate      float64 `json:"hourly_rate" validate:"required,gt=0"`
	YearsExperience int     `json:"years_experience" validate:"gte=0"`
	City            string  `json:"city" validate:"required"`
}

// TeacherFilter captures search options for browsing teacher profiles.
type TeacherFilter struct {
	Search         string
	City           string
	Specialization string
	MinRate        *float64
	MaxRate        *float64
	Verified       *bool
	Active         *bool
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
