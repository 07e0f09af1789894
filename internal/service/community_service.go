package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

type communityRepository interface {
	FindPost(ctx context.Context, id string) (*models.ForumPost, error)
	ListPosts(ctx context.Context, filter models.ForumFilter) ([]models.ForumPost, int, error)
	CreatePost(ctx context.Context, post *models.ForumPost) error
	SetPostHidden(ctx context.Context, id string, hidden bool) error
	FindComment(ctx context.Context, id string) (*models.ForumComment, error)
	CreateComment(ctx context.Context, comment *models.ForumComment) error
	ListComments(ctx context.Context, postID string, includeHidden bool) ([]models.ForumComment, error)
	SetCommentHidden(ctx context.Context, id string, hidden bool) error
	FindEvent(ctx context.Context, id string) (*models.CommunityEvent, error)
	ListUpcomingEvents(ctx context.Context, now time.Time) ([]models.CommunityEvent, error)
	CreateEvent(ctx context.Context, event *models.CommunityEvent) error
	CancelEvent(ctx context.Context, id string) error
	RegisterForEvent(ctx context.Context, reg *models.EventRegistration) (bool, error)
	IsRegistered(ctx context.Context, eventID, userID string) (bool, error)
	CountRegistrations(ctx context.Context, eventID string) (int, error)
}

type communityAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CommunityService runs the parent forum and community events.
type CommunityService struct {
	repo      communityRepository
	audit     communityAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCommunityService constructs a CommunityService.
func NewCommunityService(repo communityRepository, audit communityAuditRepository, validate *validator.Validate, logger *zap.Logger) *CommunityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CommunityService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// ListPosts returns visible forum posts; moderators may include hidden.
func (s *CommunityService) ListPosts(ctx context.Context, filter models.ForumFilter, moderator bool) ([]models.ForumPost, int, error) {
	if !moderator {
		filter.IncludeHidden = false
	}
	posts, total, err := s.repo.ListPosts(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list posts")
	}
	return posts, total, nil
}

// GetPost loads a post with its visible comments.
func (s *CommunityService) GetPost(ctx context.Context, id string, moderator bool) (*models.ForumPost, []models.ForumComment, error) {
	post, err := s.loadPost(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if post.Hidden && !moderator {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
	}
	comments, err := s.repo.ListComments(ctx, id, moderator)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return post, comments, nil
}

// CreatePost publishes a forum post.
func (s *CommunityService) CreatePost(ctx context.Context, authorID string, req models.ForumPostRequest) (*models.ForumPost, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid post payload")
	}
	post := &models.ForumPost{AuthorID: authorID, Title: req.Title, Body: req.Body}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create post")
	}
	return post, nil
}

// Comment replies to a visible post.
func (s *CommunityService) Comment(ctx context.Context, authorID, postID string, req models.ForumCommentRequest) (*models.ForumComment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Hidden {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
	}
	comment := &models.ForumComment{PostID: postID, AuthorID: authorID, Body: req.Body}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	return comment, nil
}

// ModeratePost hides or restores a post. Moderator only.
func (s *CommunityService) ModeratePost(ctx context.Context, moderatorID, postID string, hidden bool) error {
	if _, err := s.loadPost(ctx, postID); err != nil {
		return err
	}
	if err := s.repo.SetPostHidden(ctx, postID, hidden); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to moderate post")
	}
	s.recordModeration(ctx, moderatorID, "forum_post", postID)
	return nil
}

// ModerateComment hides or restores a comment. Moderator only.
func (s *CommunityService) ModerateComment(ctx context.Context, moderatorID, commentID string, hidden bool) error {
	if _, err := s.repo.FindComment(ctx, commentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment")
	}
	if err := s.repo.SetCommentHidden(ctx, commentID, hidden); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to moderate comment")
	}
	s.recordModeration(ctx, moderatorID, "forum_comment", commentID)
	return nil
}

// UpcomingEvents lists non-cancelled events with their seat counts.
func (s *CommunityService) UpcomingEvents(ctx context.Context) ([]models.CommunityEvent, error) {
	events, err := s.repo.ListUpcomingEvents(ctx, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

// CreateEvent publishes a community event.
func (s *CommunityService) CreateEvent(ctx context.Context, organizerID string, req models.CommunityEventRequest) (*models.CommunityEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event start")
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event end")
	}
	if !endsAt.After(startsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event must end after it starts")
	}

	event := &models.CommunityEvent{
		OrganizerID: organizerID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		Capacity:    req.Capacity,
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	return event, nil
}

// CancelEvent cancels an event. Organizer or admin only.
func (s *CommunityService) CancelEvent(ctx context.Context, actorID string, isAdmin bool, eventID string) error {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !isAdmin && event.OrganizerID != actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "event belongs to another organizer")
	}
	if err := s.repo.CancelEvent(ctx, eventID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel event")
	}
	return nil
}

// Register takes a seat at an event. Full events return EVENT_FULL.
func (s *CommunityService) Register(ctx context.Context, userID, eventID string) (*models.EventRegistration, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Cancelled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event is cancelled")
	}
	if !event.StartsAt.After(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event has already started")
	}

	already, err := s.repo.IsRegistered(ctx, eventID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}
	if already {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already registered for this event")
	}

	reg := &models.EventRegistration{EventID: eventID, UserID: userID}
	seated, err := s.repo.RegisterForEvent(ctx, reg)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register for event")
	}
	if !seated {
		return nil, appErrors.Clone(appErrors.ErrEventFull, "event is at capacity")
	}
	return reg, nil
}

func (s *CommunityService) loadPost(ctx context.Context, id string) (*models.ForumPost, error) {
	post, err := s.repo.FindPost(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "post not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load post")
	}
	return post, nil
}

func (s *CommunityService) loadEvent(ctx context.Context, id string) (*models.CommunityEvent, error) {
	event, err := s.repo.FindEvent(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

func (s *CommunityService) recordModeration(ctx context.Context, moderatorID, resource, resourceID string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &moderatorID,
		Action:     models.AuditActionContentHide,
		Resource:   resource,
		ResourceID: &resourceID,
	}); err != nil {
		s.logger.Warn("failed to record moderation audit log", zap.Error(err))
	}
}
