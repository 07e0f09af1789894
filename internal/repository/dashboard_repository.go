package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/murafiq/murafiq-api/internal/models"
)

// DashboardRepository computes booking aggregates for center dashboards.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository creates a new dashboard repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// CenterStats returns booking counts per status and completed revenue for
// one center in a single aggregate query.
func (r *DashboardRepository) CenterStats(ctx context.Context, centerID string) (*models.CenterDashboard, error) {
	const query = `SELECT
		COUNT(*) AS total_bookings,
		COUNT(*) FILTER (WHERE status = 'pending') AS pending_bookings,
		COUNT(*) FILTER (WHERE status = 'awaiting_assignment') AS awaiting_assignment,
		COUNT(*) FILTER (WHERE status = 'confirmed') AS confirmed_bookings,
		COUNT(*) FILTER (WHERE status = 'completed') AS completed_bookings,
		COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled_bookings,
		COALESCE(SUM(total_amount) FILTER (WHERE status = 'completed'), 0) AS revenue
	FROM bookings WHERE center_id = $1`

	var stats models.CenterDashboard
	if err := r.db.GetContext(ctx, &stats, query, centerID); err != nil {
		return nil, fmt.Errorf("aggregate center stats: %w", err)
	}
	stats.CenterID = centerID
	return &stats, nil
}
