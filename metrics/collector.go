// Package metrics provides the Collector interface for aggregating metrics.
package metrics

// Collector defines the interface for recording and querying pipeline
// metrics. Implementations must be concurrency-safe and return zero values
// for metrics that have not been recorded yet.
type Collector interface {
	// RecordStage logs a completed pipeline stage execution.
	RecordStage(record StageRecord)

	// GetStageMetrics returns aggregated stage statistics.
	GetStageMetrics() StageMetrics

	// GetRecentStages returns the N most recent stage records, newest first.
	GetRecentStages(limit int) []StageRecord

	// UpdateCacheMetrics records the latest texture cache snapshot.
	UpdateCacheMetrics(cache CacheMetrics)

	// GetCacheMetrics returns the latest texture cache snapshot.
	GetCacheMetrics() CacheMetrics

	// UpdateProviderStatus records the availability of one provider.
	UpdateProviderStatus(status ProviderStatus)

	// GetProviderStatus returns the status of the named provider.
	GetProviderStatus(name string) (ProviderStatus, bool)

	// GetAllProviderStatuses returns the status of every known provider.
	GetAllProviderStatuses() []ProviderStatus

	// GetSystemStatus returns the overall pipeline health.
	GetSystemStatus() SystemStatus
}
