package models

import "time"

// ForumPost is a community forum entry. Hidden posts stay in storage for
// moderation audit but are excluded from public listings.
type ForumPost struct {
	ID        string    `db:"id" json:"id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	Hidden    bool      `db:"hidden" json:"hidden"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ForumComment is a reply on a forum post.
type ForumComment struct {
	ID        string    `db:"id" json:"id"`
	PostID    string    `db:"post_id" json:"post_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Body      string    `db:"body" json:"body"`
	Hidden    bool      `db:"hidden" json:"hidden"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ForumFilter captures listing options for forum posts.
type ForumFilter struct {
	Search        string
	AuthorID      string
	IncludeHidden bool
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// ForumPostRequest creates a forum post.
type ForumPostRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"required"`
}

// ForumCommentRequest replies to a forum post.
type ForumCommentRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// CommunityEventRequest creates a community event.
type CommunityEventRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description *string `json:"description,omitempty"`
	Location    string  `json:"location" validate:"required"`
	StartsAt    string  `json:"starts_at" validate:"required"`
	EndsAt      string  `json:"ends_at" validate:"required"`
	Capacity    int     `json:"capacity" validate:"required,gt=0"`
}

// CommunityEvent is an organized gathering with limited capacity.
type CommunityEvent struct {
	ID          string    `db:"id" json:"id"`
	OrganizerID string    `db:"organizer_id" json:"organizer_id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	Location    string    `db:"location" json:"location"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	EndsAt      time.Time `db:"ends_at" json:"ends_at"`
	Capacity    int       `db:"capacity" json:"capacity"`
	Cancelled   bool      `db:"cancelled" json:"cancelled"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// EventRegistration records a user's seat at a community event.
type EventRegistration struct {
	ID        string    `db:"id" json:"id"`
	EventID   string    `db:"event_id" json:"event_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
