package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/murafiq/murafiq-api/internal/models"
)

// CommunityRepository persists forum posts, comments, events and event
// registrations.
type CommunityRepository struct {
	db *sqlx.DB
}

// NewCommunityRepository creates a new community repository.
func NewCommunityRepository(db *sqlx.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

const postColumns = `id, author_id, title, body, hidden, created_at, updated_at`

var allowedPostSorts = map[string]string{
	"created_at": "created_at",
	"title":      "title",
}

// FindPost loads a forum post by id.
func (r *CommunityRepository) FindPost(ctx context.Context, id string) (*models.ForumPost, error) {
	query := fmt.Sprintf(`SELECT %s FROM forum_posts WHERE id = $1`, postColumns)
	var post models.ForumPost
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPosts returns forum posts matching the filter with a total count.
func (r *CommunityRepository) ListPosts(ctx context.Context, filter models.ForumFilter) ([]models.ForumPost, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argIdx := 1

	if !filter.IncludeHidden {
		conditions = append(conditions, "hidden = FALSE")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR body ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}
	if filter.AuthorID != "" {
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", argIdx))
		args = append(args, filter.AuthorID)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM forum_posts" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count forum posts: %w", err)
	}

	sortBy := "created_at"
	if col, ok := allowedPostSorts[filter.SortBy]; ok {
		sortBy = col
	}
	sortOrder := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM forum_posts%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		postColumns, where, sortBy, sortOrder, argIdx, argIdx+1)
	args = append(args, size, (page-1)*size)

	var posts []models.ForumPost
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list forum posts: %w", err)
	}
	return posts, total, nil
}

// CreatePost stores a new forum post.
func (r *CommunityRepository) CreatePost(ctx context.Context, post *models.ForumPost) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now

	const query = `INSERT INTO forum_posts (id, author_id, title, body, hidden, created_at, updated_at) VALUES (:id, :author_id, :title, :body, :hidden, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("create forum post: %w", err)
	}
	return nil
}

// SetPostHidden toggles moderation visibility of a post.
func (r *CommunityRepository) SetPostHidden(ctx context.Context, id string, hidden bool) error {
	const query = `UPDATE forum_posts SET hidden = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, hidden, time.Now().UTC()); err != nil {
		return fmt.Errorf("set forum post hidden: %w", err)
	}
	return nil
}

// FindComment loads a forum comment by id.
func (r *CommunityRepository) FindComment(ctx context.Context, id string) (*models.ForumComment, error) {
	const query = `SELECT id, post_id, author_id, body, hidden, created_at FROM forum_comments WHERE id = $1`
	var comment models.ForumComment
	if err := r.db.GetContext(ctx, &comment, query, id); err != nil {
		return nil, err
	}
	return &comment, nil
}

// CreateComment stores a reply on a post.
func (r *CommunityRepository) CreateComment(ctx context.Context, comment *models.ForumComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO forum_comments (id, post_id, author_id, body, hidden, created_at) VALUES (:id, :post_id, :author_id, :body, :hidden, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create forum comment: %w", err)
	}
	return nil
}

// ListComments returns visible comments on a post, oldest first.
func (r *CommunityRepository) ListComments(ctx context.Context, postID string, includeHidden bool) ([]models.ForumComment, error) {
	query := `SELECT id, post_id, author_id, body, hidden, created_at FROM forum_comments WHERE post_id = $1`
	if !includeHidden {
		query += " AND hidden = FALSE"
	}
	query += " ORDER BY created_at ASC"
	var comments []models.ForumComment
	if err := r.db.SelectContext(ctx, &comments, query, postID); err != nil {
		return nil, fmt.Errorf("list forum comments: %w", err)
	}
	return comments, nil
}

// SetCommentHidden toggles moderation visibility of a comment.
func (r *CommunityRepository) SetCommentHidden(ctx context.Context, id string, hidden bool) error {
	const query = `UPDATE forum_comments SET hidden = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, hidden); err != nil {
		return fmt.Errorf("set forum comment hidden: %w", err)
	}
	return nil
}

// FindEvent loads a community event by id.
func (r *CommunityRepository) FindEvent(ctx context.Context, id string) (*models.CommunityEvent, error) {
	const query = `SELECT id, organizer_id, title, description, location, starts_at, ends_at, capacity, cancelled, created_at FROM community_events WHERE id = $1`
	var event models.CommunityEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListUpcomingEvents returns non-cancelled events starting after now.
func (r *CommunityRepository) ListUpcomingEvents(ctx context.Context, now time.Time) ([]models.CommunityEvent, error) {
	const query = `SELECT id, organizer_id, title, description, location, starts_at, ends_at, capacity, cancelled, created_at FROM community_events WHERE cancelled = FALSE AND starts_at > $1 ORDER BY starts_at ASC`
	var events []models.CommunityEvent
	if err := r.db.SelectContext(ctx, &events, query, now); err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	return events, nil
}

// CreateEvent stores a new community event.
func (r *CommunityRepository) CreateEvent(ctx context.Context, event *models.CommunityEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO community_events (id, organizer_id, title, description, location, starts_at, ends_at, capacity, cancelled, created_at) VALUES (:id, :organizer_id, :title, :description, :location, :starts_at, :ends_at, :capacity, :cancelled, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create community event: %w", err)
	}
	return nil
}

// CancelEvent marks an event as cancelled.
func (r *CommunityRepository) CancelEvent(ctx context.Context, id string) error {
	const query = `UPDATE community_events SET cancelled = TRUE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("cancel community event: %w", err)
	}
	return nil
}

// RegisterForEvent seats a user at an event if capacity remains. The
// count and insert run in one transaction with the event row locked so
// two concurrent registrations cannot both take the last seat.
func (r *CommunityRepository) RegisterForEvent(ctx context.Context, reg *models.EventRegistration) (bool, error) {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin event registration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var capacity int
	if err = tx.GetContext(ctx, &capacity, `SELECT capacity FROM community_events WHERE id = $1 FOR UPDATE`, reg.EventID); err != nil {
		err = fmt.Errorf("lock event row: %w", err)
		return false, err
	}
	var taken int
	if err = tx.GetContext(ctx, &taken, `SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`, reg.EventID); err != nil {
		err = fmt.Errorf("count event registrations: %w", err)
		return false, err
	}
	if taken >= capacity {
		_ = tx.Rollback()
		return false, nil
	}

	const insert = `INSERT INTO event_registrations (id, event_id, user_id, created_at) VALUES (:id, :event_id, :user_id, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insert, reg); err != nil {
		err = fmt.Errorf("create event registration: %w", err)
		return false, err
	}
	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit event registration: %w", err)
		return false, err
	}
	return true, nil
}

// IsRegistered reports whether the user already holds a seat.
func (r *CommunityRepository) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM event_registrations WHERE event_id = $1 AND user_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, eventID, userID); err != nil {
		return false, fmt.Errorf("check event registration: %w", err)
	}
	return count > 0, nil
}

// CountRegistrations returns the seats taken for an event.
func (r *CommunityRepository) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	const query = `SELECT COUNT(*) FROM event_registrations WHERE event_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, eventID); err != nil {
		return 0, fmt.Errorf("count event registrations: %w", err)
	}
	return count, nil
}
