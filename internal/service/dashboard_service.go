package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/murafiq/murafiq-api/internal/models"
	appErrors "github.com/murafiq/murafiq-api/pkg/errors"
)

type dashboardStatsRepository interface {
	CenterStats(ctx context.Context, centerID string) (*models.CenterDashboard, error)
}

// DashboardService serves booking aggregates for center dashboards,
// cached to keep the hot path off the aggregate query.
type DashboardService struct {
	stats  dashboardStatsRepository
	cache  *CacheService
	logger *zap.Logger
	ttl    time.Duration
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(stats dashboardStatsRepository, cache *CacheService, logger *zap.Logger, ttl time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{stats: stats, cache: cache, logger: logger, ttl: ttl}
}

// CenterDashboard returns booking counts per status and completed
// revenue for one center. The boolean reports whether the payload came
// from cache.
func (s *DashboardService) CenterDashboard(ctx context.Context, centerID string) (*models.CenterDashboard, bool, error) {
	key := fmt.Sprintf("dashboard:center:%s", centerID)

	if s.cache.Enabled() {
		var cached models.CenterDashboard
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	dashboard, err := s.stats.CenterStats(ctx, centerID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard")
	}
	dashboard.GeneratedAt = time.Now().UTC()

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, dashboard, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return dashboard, false, nil
}

// Invalidate drops the cached dashboard for a center.
func (s *DashboardService) Invalidate(ctx context.Context, centerID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("dashboard:center:%s", centerID)); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}
