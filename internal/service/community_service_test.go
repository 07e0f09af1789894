package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

type communityRepoStub struct {
	posts       map[string]*models.ForumPost
	events      map[string]*models.CommunityEvent
	registered  map[string]bool
	full        bool
	err         error
	hiddenPosts map[string]bool
	regs        []*models.EventRegistration
}

func (s *communityRepoStub) FindPost(ctx context.Context, id string) (*models.ForumPost, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.posts[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (s *communityRepoStub) ListPosts(ctx context.Context, filter models.ForumFilter) ([]models.ForumPost, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	var out []models.ForumPost
	for _, p := range s.posts {
		if p.Hidden && !filter.IncludeHidden {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (s *communityRepoStub) CreatePost(ctx context.Context, post *models.ForumPost) error {
	if s.err != nil {
		return s.err
	}
	post.ID = "post-new"
	return nil
}

func (s *communityRepoStub) SetPostHidden(ctx context.Context, id string, hidden bool) error {
	if s.err != nil {
		return s.err
	}
	if s.hiddenPosts == nil {
		s.hiddenPosts = make(map[string]bool)
	}
	s.hiddenPosts[id] = hidden
	return nil
}

func (s *communityRepoStub) FindComment(ctx context.Context, id string) (*models.ForumComment, error) {
	return nil, sql.ErrNoRows
}

func (s *communityRepoStub) CreateComment(ctx context.Context, comment *models.ForumComment) error {
	if s.err != nil {
		return s.err
	}
	comment.ID = "cm-new"
	return nil
}

func (s *communityRepoStub) ListComments(ctx context.Context, postID string, includeHidden bool) ([]models.ForumComment, error) {
	return nil, s.err
}

func (s *communityRepoStub) SetCommentHidden(ctx context.Context, id string, hidden bool) error {
	return s.err
}

func (s *communityRepoStub) FindEvent(ctx context.Context, id string) (*models.CommunityEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	if e, ok := s.events[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (s *communityRepoStub) ListUpcomingEvents(ctx context.Context, now time.Time) ([]models.CommunityEvent, error) {
	return nil, s.err
}

func (s *communityRepoStub) CreateEvent(ctx context.Context, event *models.CommunityEvent) error {
	if s.err != nil {
		return s.err
	}
	event.ID = "ev-new"
	return nil
}

func (s *communityRepoStub) CancelEvent(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	if e, ok := s.events[id]; ok {
		e.Cancelled = true
	}
	return nil
}

func (s *communityRepoStub) RegisterForEvent(ctx context.Context, reg *models.EventRegistration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.full {
		return false, nil
	}
	reg.ID = "reg-new"
	s.regs = append(s.regs, reg)
	return true, nil
}

func (s *communityRepoStub) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.registered[eventID+":"+userID], nil
}

func (s *communityRepoStub) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	return len(s.regs), s.err
}

func upcomingEvent() *models.CommunityEvent {
	return &models.CommunityEvent{
		ID:          "ev-1",
		OrganizerID: "org-1",
		Title:       "Sensory play morning",
		StartsAt:    time.Now().UTC().Add(48 * time.Hour),
		EndsAt:      time.Now().UTC().Add(50 * time.Hour),
		Capacity:    10,
	}
}

func newCommunityService(repo *communityRepoStub) *CommunityService {
	return NewCommunityService(repo, &auditLoggerStub{}, validator.New(), nil)
}

func TestCommunityServiceRegister(t *testing.T) {
	repo := &communityRepoStub{events: map[string]*models.CommunityEvent{"ev-1": upcomingEvent()}}
	service := newCommunityService(repo)

	reg, err := service.Register(context.Background(), "u-1", "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "reg-new", reg.ID)
	assert.Equal(t, "ev-1", reg.EventID)
}

func TestCommunityServiceRegisterFullEvent(t *testing.T) {
	repo := &communityRepoStub{
		events: map[string]*models.CommunityEvent{"ev-1": upcomingEvent()},
		full:   true,
	}
	service := newCommunityService(repo)

	_, err := service.Register(context.Background(), "u-1", "ev-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEventFull.Code, appErrors.FromError(err).Code)
}

func TestCommunityServiceRegisterTwice(t *testing.T) {
	repo := &communityRepoStub{
		events:     map[string]*models.CommunityEvent{"ev-1": upcomingEvent()},
		registered: map[string]bool{"ev-1:u-1": true},
	}
	service := newCommunityService(repo)

	_, err := service.Register(context.Background(), "u-1", "ev-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCommunityServiceRegisterCancelledEvent(t *testing.T) {
	event := upcomingEvent()
	event.Cancelled = true
	repo := &communityRepoStub{events: map[string]*models.CommunityEvent{"ev-1": event}}
	service := newCommunityService(repo)

	_, err := service.Register(context.Background(), "u-1", "ev-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCommunityServiceRegisterPastEvent(t *testing.T) {
	event := upcomingEvent()
	event.StartsAt = time.Now().UTC().Add(-time.Hour)
	repo := &communityRepoStub{events: map[string]*models.CommunityEvent{"ev-1": event}}
	service := newCommunityService(repo)

	_, err := service.Register(context.Background(), "u-1", "ev-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCommunityServiceCancelEventOrganizerOnly(t *testing.T) {
	repo := &communityRepoStub{events: map[string]*models.CommunityEvent{"ev-1": upcomingEvent()}}
	service := newCommunityService(repo)

	err := service.CancelEvent(context.Background(), "u-2", false, "ev-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, service.CancelEvent(context.Background(), "org-1", false, "ev-1"))
	assert.True(t, repo.events["ev-1"].Cancelled)
}

func TestCommunityServiceHiddenPostInvisibleToMembers(t *testing.T) {
	repo := &communityRepoStub{posts: map[string]*models.ForumPost{
		"post-1": {ID: "post-1", AuthorID: "u-1", Title: "flagged", Hidden: true},
	}}
	service := newCommunityService(repo)

	_, _, err := service.GetPost(context.Background(), "post-1", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	post, _, err := service.GetPost(context.Background(), "post-1", true)
	require.NoError(t, err)
	assert.Equal(t, "post-1", post.ID)
}

func TestCommunityServiceModeratePostRecordsAudit(t *testing.T) {
	repo := &communityRepoStub{posts: map[string]*models.ForumPost{
		"post-1": {ID: "post-1", AuthorID: "u-1", Title: "spam"},
	}}
	audit := &auditLoggerStub{}
	service := NewCommunityService(repo, audit, validator.New(), nil)

	require.NoError(t, service.ModeratePost(context.Background(), "mod-1", "post-1", true))
	assert.True(t, repo.hiddenPosts["post-1"])
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionContentHide, audit.logs[0].Action)
}

func TestCommunityServiceCreateEventValidatesRange(t *testing.T) {
	service := newCommunityService(&communityRepoStub{})

	starts := time.Now().UTC().Add(24 * time.Hour)
	_, err := service.CreateEvent(context.Background(), "org-1", models.CommunityEventRequest{
		Title:    "Workshop",
		Location: "Cairo",
		StartsAt: starts.Format(time.RFC3339),
		EndsAt:   starts.Add(-time.Hour).Format(time.RFC3339),
		Capacity: 5,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
