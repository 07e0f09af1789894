package models

import "time"

// SessionRecord holds the teacher's notes for a completed session.
type SessionRecord struct {
	ID               string    `db:"id" json:"id"`
	BookingID        string    `db:"booking_id" json:"booking_id"`
	TeacherProfileID string    `db:"teacher_profile_id" json:"teacher_profile_id"`
	Summary          string    `db:"summary" json:"summary"`
	Recommendations  *string   `db:"recommendations" json:"recommendations,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// SessionRecordRequest writes or amends the notes for a held session.
type SessionRecordRequest struct {
	Summary         string  `json:"summary" validate:"required"`
	Recommendations *string `json:"recommendations,omitempty"`
}

// SessionDocument is an uploaded file attached to a session record.
// Downloads go through HMAC-signed URLs rather than direct paths.
type SessionDocument struct {
	ID              string    `db:"id" json:"id"`
	SessionRecordID string    `db:"session_record_id" json:"session_record_id"`
	FileName        string    `db:"file_name" json:"file_name"`
	StoragePath     string    `db:"storage_path" json:"-"`
	MimeType        string    `db:"mime_type" json:"mime_type"`
	SizeBytes       int64     `db:"size_bytes" json:"size_bytes"`
	UploadedAt      time.Time `db:"uploaded_at" json:"uploaded_at"`
}
