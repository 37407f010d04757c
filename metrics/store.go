package metrics

import (
	"sync"
	"time"
)

// Store is the in-memory metrics organism. It implements Collector with a
// circular buffer for stage history and thread-safe aggregation.
//
// Usage:
//
//	store := NewStore(DefaultStoreConfig(), time.Now())
//	store.RecordStage(record)
//	stats := store.GetStageMetrics()
type Store struct {
	mu sync.RWMutex

	// Stage history (circular buffer)
	stageHistory []StageRecord
	stageCap     int
	stageHead    int
	stageSize    int

	// Stage aggregation
	totalStages  int64
	totalSuccess int64
	totalErrors  int64
	byStage      map[string]*stageStats

	// Texture cache snapshot
	cacheMetrics CacheMetrics

	// Provider statuses keyed by name
	providerStatuses map[string]ProviderStatus

	startTime time.Time
	version   string
}

type stageStats struct {
	count         int64
	successCount  int64
	totalDuration time.Duration
}

// StoreConfig configures the Store.
type StoreConfig struct {
	// StageHistoryCapacity is the max number of stage records to retain
	StageHistoryCapacity int
	// Version is the application version string
	Version string
}

// DefaultStoreConfig returns a default configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		StageHistoryCapacity: 100,
		Version:              "0.0.0",
	}
}

// NewStore creates a Store. startTime is used to calculate uptime.
func NewStore(config StoreConfig, startTime time.Time) *Store {
	capacity := config.StageHistoryCapacity
	if capacity < 1 {
		capacity = 100
	}

	return &Store{
		stageHistory:     make([]StageRecord, capacity),
		stageCap:         capacity,
		byStage:          make(map[string]*stageStats),
		providerStatuses: make(map[string]ProviderStatus),
		startTime:        startTime,
		version:          config.Version,
	}
}

// RecordStage logs a completed stage execution.
func (s *Store) RecordStage(record StageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stageHistory[s.stageHead] = record
	s.stageHead = (s.stageHead + 1) % s.stageCap
	if s.stageSize < s.stageCap {
		s.stageSize++
	}

	s.totalStages++
	switch record.Status {
	case StageStatusSuccess:
		s.totalSuccess++
	case StageStatusError:
		s.totalErrors++
	}

	stats, ok := s.byStage[record.Stage]
	if !ok {
		stats = &stageStats{}
		s.byStage[record.Stage] = stats
	}
	stats.count++
	if record.Status == StageStatusSuccess {
		stats.successCount++
	}
	stats.totalDuration += record.Duration
}

// GetStageMetrics returns aggregated stage statistics.
func (s *Store) GetStageMetrics() StageMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := StageMetrics{
		TotalProcessed: s.totalStages,
		TotalSuccess:   s.totalSuccess,
		TotalErrors:    s.totalErrors,
		ByStage:        make(map[string]*StageTypeMetrics),
	}

	for stage, stats := range s.byStage {
		var successRate float64
		var avgDuration time.Duration
		if stats.count > 0 {
			successRate = float64(stats.successCount) / float64(stats.count) * 100
			avgDuration = stats.totalDuration / time.Duration(stats.count)
		}
		result.ByStage[stage] = &StageTypeMetrics{
			Count:       stats.count,
			SuccessRate: successRate,
			AvgDuration: avgDuration,
		}
	}
	return result
}

// GetRecentStages returns the N most recent stage records, oldest of the
// window first. A limit beyond what is stored returns everything stored.
func (s *Store) GetRecentStages(limit int) []StageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || s.stageSize == 0 {
		return []StageRecord{}
	}
	if limit > s.stageSize {
		limit = s.stageSize
	}

	result := make([]StageRecord, limit)
	for i := 0; i < limit; i++ {
		idx := (s.stageHead - limit + i + s.stageCap) % s.stageCap
		result[i] = s.stageHistory[idx]
	}
	return result
}

// UpdateCacheMetrics records the latest texture cache snapshot.
func (s *Store) UpdateCacheMetrics(cache CacheMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheMetrics = cache
}

// GetCacheMetrics returns the latest texture cache snapshot.
func (s *Store) GetCacheMetrics() CacheMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cacheMetrics
}

// UpdateProviderStatus records the availability of one provider.
func (s *Store) UpdateProviderStatus(status ProviderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providerStatuses[status.Name] = status
}

// GetProviderStatus returns the status of the named provider.
func (s *Store) GetProviderStatus(name string) (ProviderStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.providerStatuses[name]
	return status, ok
}

// GetAllProviderStatuses returns the status of every known provider.
func (s *Store) GetAllProviderStatuses() []ProviderStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ProviderStatus, 0, len(s.providerStatuses))
	for _, status := range s.providerStatuses {
		result = append(result, status)
	}
	return result
}

// GetSystemStatus returns the overall pipeline health. The pipeline is
// degraded when providers are registered but none is available; analysis
// still works through the synthetic fallback in that state.
func (s *Store) GetSystemStatus() SystemStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	health := SystemHealthRunning
	if len(s.providerStatuses) > 0 {
		anyAvailable := false
		for _, status := range s.providerStatuses {
			if status.Available {
				anyAvailable = true
				break
			}
		}
		if !anyAvailable {
			health = SystemHealthDegraded
		}
	}

	return SystemStatus{
		Health:    health,
		Version:   s.version,
		Uptime:    time.Since(s.startTime),
		LastCheck: time.Now(),
	}
}

var _ Collector = (*Store)(nil)
