package models

import (
	"fmt"
	"time"
)

// BookingStatus enumerates the booking lifecycle states.
type BookingStatus string

const (
	BookingPending            BookingStatus = "pending"
	BookingAwaitingAssignment BookingStatus = "awaiting_assignment"
	BookingConfirmed          BookingStatus = "confirmed"
	BookingCompleted          BookingStatus = "completed"
	BookingCancelled          BookingStatus = "cancelled"
)

// OccupyingStatuses are the statuses that hold a teacher's time. Completed
// and cancelled bookings free their slot.
var OccupyingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingAwaitingAssignment}

// DirectOccupyingStatuses gate direct-booking conflict checks; a booking
// awaiting assignment has no teacher yet and cannot conflict here.
var DirectOccupyingStatuses = []BookingStatus{BookingPending, BookingConfirmed}

// CanTransitionTo reports whether the status change is allowed by the
// booking state machine. Completed and cancelled are terminal.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled
	case BookingAwaitingAssignment:
		return next == BookingPending || next == BookingConfirmed || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCompleted || next == BookingCancelled
	default:
		return false
	}
}

// Booking is a reservation occupying a concrete date and time range.
// Exactly one of direct (teacher set, center/service unset) or
// center-service (center+service set, teacher set only after assignment)
// holds per row.
type Booking struct {
	ID               string        `db:"id" json:"id"`
	ParentID         string        `db:"parent_id" json:"parent_id"`
	ChildID          *string       `db:"child_id" json:"child_id,omitempty"`
	TeacherProfileID *string       `db:"teacher_profile_id" json:"teacher_profile_id,omitempty"`
	CenterID         *string       `db:"center_id" json:"center_id,omitempty"`
	ServiceID        *string       `db:"service_id" json:"service_id,omitempty"`
	Status           BookingStatus `db:"status" json:"status"`
	BookingDate      time.Time     `db:"booking_date" json:"booking_date"`
	StartTime        string        `db:"start_time" json:"start_time"`
	EndTime          string        `db:"end_time" json:"end_time"`
	TotalAmount      float64       `db:"total_amount" json:"total_amount"`
	Notes            *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// IsDirect reports whether the booking targets a named teacher rather than
// a center service.
func (b Booking) IsDirect() bool {
	return b.CenterID == nil && b.ServiceID == nil
}

// BookingFilter captures listing options for the booking ledger.
type BookingFilter struct {
	ParentID         string
	TeacherProfileID string
	CenterID         string
	Status           *BookingStatus
	DateFrom         *time.Time
	DateTo           *time.Time
	Page             int
	PageSize         int
	SortBy           string
	SortOrder        string
}

// CreateDirectBookingRequest books a named teacher for a concrete slot.
type CreateDirectBookingRequest struct {
	ChildID          *string `json:"child_id,omitempty"`
	TeacherProfileID string  `json:"teacher_profile_id" validate:"required"`
	BookingDate      string  `json:"booking_date" validate:"required,datetime=2006-01-02"`
	StartTime        string  `json:"start_time" validate:"required"`
	EndTime          string  `json:"end_time" validate:"required"`
	Notes            *string `json:"notes,omitempty"`
}

// CreateServiceBookingRequest books a center service; a teacher is
// attached later by the center.
type CreateServiceBookingRequest struct {
	ChildID     *string `json:"child_id,omitempty"`
	CenterID    string  `json:"center_id" validate:"required"`
	ServiceID   string  `json:"service_id" validate:"required"`
	BookingDate string  `json:"booking_date" validate:"required,datetime=2006-01-02"`
	StartTime   string  `json:"start_time" validate:"required"`
	EndTime     string  `json:"end_time" validate:"required"`
	Notes       *string `json:"notes,omitempty"`
}

// AssignTeacherRequest attaches a teacher to a booking awaiting assignment.
type AssignTeacherRequest struct {
	TeacherProfileID string `json:"teacher_profile_id" validate:"required"`
}

// SlotConflictError signals that a requested range overlaps an occupying
// booking for the same teacher and date.
type SlotConflictError struct {
	TeacherProfileID string
	BookingDate      time.Time
	StartTime        string
	EndTime          string
}

// Error implements the error interface.
func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot %s-%s on %s already booked for teacher %s",
		e.StartTime, e.EndTime, e.BookingDate.Format("2006-01-02"), e.TeacherProfileID)
}
