package models

import "time"

// CenterDashboard aggregates booking activity for a center.
type CenterDashboard struct {
	CenterID           string    `json:"center_id"`
	TotalBookings      int       `db:"total_bookings" json:"total_bookings"`
	PendingBookings    int       `db:"pending_bookings" json:"pending_bookings"`
	AwaitingAssignment int       `db:"awaiting_assignment" json:"awaiting_assignment"`
	ConfirmedBookings  int       `db:"confirmed_bookings" json:"confirmed_bookings"`
	CompletedBookings  int       `db:"completed_bookings" json:"completed_bookings"`
	CancelledBookings  int       `db:"cancelled_bookings" json:"cancelled_bookings"`
	Revenue            float64   `db:"revenue" json:"revenue"`
	GeneratedAt        time.Time `json:"generated_at"`
}
