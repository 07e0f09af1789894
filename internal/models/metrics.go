package models

import "time"

// SystemMetrics is a lightweight snapshot of runtime counters exposed to
// admin endpoints alongside the Prometheus registry.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	BookingsCreated          uint64    `json:"bookings_created"`
	BookingConflicts         uint64    `json:"booking_conflicts"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
