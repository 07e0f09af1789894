package models

import "time"

// Review is a parent's rating of a completed booking. One review per
// booking; it targets the serving teacher, the center, or both.
type Review struct {
	ID               string    `db:"id" json:"id"`
	BookingID        string    `db:"booking_id" json:"booking_id"`
	ParentID         string    `db:"parent_id" json:"parent_id"`
	TeacherProfileID *string   `db:"teacher_profile_id" json:"teacher_profile_id,omitempty"`
	CenterID         *string   `db:"center_id" json:"center_id,omitempty"`
	Rating           int       `db:"rating" json:"rating"`
	Comment          *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// CreateReviewRequest rates a completed booking.
type CreateReviewRequest struct {
	BookingID string  `json:"booking_id" validate:"required"`
	Rating    int     `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   *string `json:"comment,omitempty"`
}

// RatingSummary aggregates reviews for a teacher or center.
type RatingSummary struct {
	Average float64 `db:"average" json:"average"`
	Count   int     `db:"count" json:"count"`
}
