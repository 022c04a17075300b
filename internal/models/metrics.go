package models

import "time"

// SystemMetrics is a snapshot of service instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64           `json:"cache_hit_ratio"`
	CacheHits                uint64            `json:"cache_hits"`
	CacheMisses              uint64            `json:"cache_misses"`
	RequestsTotal            uint64            `json:"requests_total"`
	AverageRequestDurationMs float64           `json:"average_request_duration_ms"`
	DBQueryCount             uint64            `json:"db_query_count"`
	AverageDBQueryDurationMs float64           `json:"average_db_query_duration_ms"`
	Predictions              map[string]uint64 `json:"predictions"`
	ModelFallbacks           uint64            `json:"model_fallbacks"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generated_at"`
}

// InsightScope identifies whose records a data-access call returns.
type InsightScope struct {
	TenantID  string
	StudentID string
}
