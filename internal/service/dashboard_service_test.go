package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

type dashboardStatsStub struct {
	stats *models.CenterDashboard
	err   error
	calls int
}

func (s *dashboardStatsStub) CenterStats(ctx context.Context, centerID string) (*models.CenterDashboard, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	copied := *s.stats
	return &copied, nil
}

type cacheRepoStub struct {
	entries map[string][]byte
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{entries: make(map[string][]byte)}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = raw
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.entries = make(map[string][]byte)
	return nil
}

func centerStats() *models.CenterDashboard {
	return &models.CenterDashboard{
		CenterID:          "c-1",
		TotalBookings:     11,
		PendingBookings:   2,
		ConfirmedBookings: 3,
		CompletedBookings: 5,
		CancelledBookings: 1,
		Revenue:           2500,
	}
}

func TestDashboardServiceCenterDashboard(t *testing.T) {
	stats := &dashboardStatsStub{stats: centerStats()}
	cache := NewCacheService(newCacheRepoStub(), nil, time.Minute, nil, true)
	service := NewDashboardService(stats, cache, nil, time.Minute)

	dashboard, cached, err := service.CenterDashboard(context.Background(), "c-1")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 5, dashboard.CompletedBookings)
	assert.InDelta(t, 2500.0, dashboard.Revenue, 0.001)
	assert.False(t, dashboard.GeneratedAt.IsZero())
}

func TestDashboardServiceCachesResult(t *testing.T) {
	stats := &dashboardStatsStub{stats: centerStats()}
	cache := NewCacheService(newCacheRepoStub(), nil, time.Minute, nil, true)
	service := NewDashboardService(stats, cache, nil, time.Minute)

	_, cached, err := service.CenterDashboard(context.Background(), "c-1")
	require.NoError(t, err)
	assert.False(t, cached)
	_, cached, err = service.CenterDashboard(context.Background(), "c-1")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, stats.calls, "second read must come from cache")
}

func TestDashboardServiceInvalidate(t *testing.T) {
	stats := &dashboardStatsStub{stats: centerStats()}
	cache := NewCacheService(newCacheRepoStub(), nil, time.Minute, nil, true)
	service := NewDashboardService(stats, cache, nil, time.Minute)

	_, _, err := service.CenterDashboard(context.Background(), "c-1")
	require.NoError(t, err)
	service.Invalidate(context.Background(), "c-1")
	_, _, err = service.CenterDashboard(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.calls)
}

func TestDashboardServiceStatsError(t *testing.T) {
	stats := &dashboardStatsStub{err: errors.New("db down")}
	service := NewDashboardService(stats, NewCacheService(nil, nil, time.Minute, nil, false), nil, time.Minute)

	_, _, err := service.CenterDashboard(context.Background(), "c-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
