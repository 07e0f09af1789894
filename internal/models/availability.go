package models

import "time"

// TeacherAvailability is a recurring weekly open window declared by a
// teacher. Windows are advisory: they drive slot listing but are not
// consulted when a booking row is created.
type TeacherAvailability struct {
	ID               string    `db:"id" json:"id"`
	TeacherProfileID string    `db:"teacher_profile_id" json:"teacher_profile_id"`
	DayOfWeek        int       `db:"day_of_week" json:"day_of_week"`
	StartTime        string    `db:"start_time" json:"start_time"`
	EndTime          string    `db:"end_time" json:"end_time"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// AvailabilityWindowRequest declares or updates a weekly window.
type AvailabilityWindowRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// Slot is a derived, non-persisted time window for a single teacher on a
// concrete date. A window is flagged booked on any partial overlap with an
// occupying booking; availability windows are treated as atomic.
type Slot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsBooked  bool   `json:"is_booked"`
}

// ServiceSlot is a merged window across all teachers assigned to a center
// service, annotated with how many of them remain free.
type ServiceSlot struct {
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	AvailableCount int    `json:"available_count"`
	TotalCount     int    `json:"total_count"`
	IsAvailable    bool   `json:"is_available"`
}
