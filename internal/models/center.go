package models

import "time"

// Center represents a therapy center profile.
type Center struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Address     *string   `db:"address" json:"address,omitempty"`
	City        string    `db:"city" json:"city"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	Verified    bool      `db:"verified" json:"verified"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CenterFilter captures search options for browsing centers.
type CenterFilter struct {
	Search    string
	City      string
	Verified  *bool
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CenterRequest creates or updates a center profile.
type CenterRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	Address     *string `json:"address,omitempty"`
	City        string  `json:"city" validate:"required"`
	Phone       *string `json:"phone,omitempty"`
}

// CenterServiceRequest creates or updates a service offering.
type CenterServiceRequest struct {
	Name            string  `json:"name" validate:"required"`
	Description     *string `json:"description,omitempty"`
	Price           float64 `json:"price" validate:"required,gt=0"`
	DurationMinutes int     `json:"duration_minutes" validate:"required,gt=0"`
}

// RosterTeacherRequest attaches a teacher to a center roster or service.
type RosterTeacherRequest struct {
	TeacherProfileID string `json:"teacher_profile_id" validate:"required"`
}

// CenterTeacher links a teacher to a center's roster.
type CenterTeacher struct {
	ID               string    `db:"id" json:"id"`
	CenterID         string    `db:"center_id" json:"center_id"`
	TeacherProfileID string    `db:"teacher_profile_id" json:"teacher_profile_id"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// CenterService is an offering of a therapy center, staffed by zero or
// more assigned teachers.
type CenterService struct {
	ID              string    `db:"id" json:"id"`
	CenterID        string    `db:"center_id" json:"center_id"`
	Name            string    `db:"name" json:"name"`
	Description     *string   `db:"description" json:"description,omitempty"`
	Price           float64   `db:"price" json:"price"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherServiceAssignment attaches a teacher to a center service. It is
// soft-deactivated rather than deleted so historic bookings keep context.
type TeacherServiceAssignment struct {
	ID               string    `db:"id" json:"id"`
	ServiceID        string    `db:"service_id" json:"service_id"`
	TeacherProfileID string    `db:"teacher_profile_id" json:"teacher_profile_id"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
