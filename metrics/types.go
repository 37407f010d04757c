// Package metrics provides in-memory operational metrics for the asset
// pipeline: per-stage execution records, aggregated stage statistics,
// texture cache snapshots, and provider availability status.
// This file contains atom-level type definitions with no behavior.
package metrics

import "time"

// StageRecord represents a single pipeline stage execution.
type StageRecord struct {
	// ID is the unique identifier for this execution
	ID string `json:"id"`

	// Stage identifies the pipeline stage (e.g., "analysis", "render")
	Stage string `json:"stage"`

	// SessionID identifies which pipeline session this execution belongs to
	SessionID string `json:"session_id"`

	// Status indicates the current state: "success", "error", "processing"
	Status string `json:"status"`

	// StartTime is when the stage began execution
	StartTime time.Time `json:"start_time"`

	// EndTime is when the stage completed (zero value if still processing)
	EndTime time.Time `json:"end_time,omitempty"`

	// Duration is the total execution time
	Duration time.Duration `json:"duration"`

	// ErrorMsg contains error details if Status is "error"
	ErrorMsg string `json:"error_msg,omitempty"`
}

// CacheMetrics is a snapshot of texture cache effectiveness.
type CacheMetrics struct {
	// Hits is the number of loads served from a completed entry
	Hits int64 `json:"hits"`

	// Misses is the number of loads that triggered a fetch
	Misses int64 `json:"misses"`

	// Coalesced is the number of loads that waited on an in-flight fetch
	Coalesced int64 `json:"coalesced"`

	// Entries is the number of textures currently cached
	Entries int `json:"entries"`
}

// ProviderStatus represents the availability of one AI provider backend.
type ProviderStatus struct {
	// Name is the provider's registered name
	Name string `json:"name"`

	// Available is the result of the last availability probe
	Available bool `json:"available"`

	// Selected indicates this provider is the current analysis backend
	Selected bool `json:"selected"`

	// LastProbe is when availability was last checked
	LastProbe time.Time `json:"last_probe"`

	// Failures is the count of failed calls against this provider
	Failures int64 `json:"failures"`
}

// SystemStatus represents the overall pipeline health.
type SystemStatus struct {
	// Health indicates the system state: "running", "degraded", "stopped"
	Health string `json:"health"`

	// Version is the application version string
	Version string `json:"version"`

	// Uptime is the duration since the application started
	Uptime time.Duration `json:"uptime"`

	// LastCheck is the timestamp of the last health check
	LastCheck time.Time `json:"last_check"`
}

// StageMetrics represents aggregated stage processing statistics.
type StageMetrics struct {
	// TotalProcessed is the total number of stage executions
	TotalProcessed int64 `json:"total_processed"`

	// TotalSuccess is the count of successful executions
	TotalSuccess int64 `json:"total_success"`

	// TotalErrors is the count of failed executions
	TotalErrors int64 `json:"total_errors"`

	// ByStage contains per-stage statistics
	ByStage map[string]*StageTypeMetrics `json:"by_stage"`
}

// StageTypeMetrics represents statistics for one pipeline stage.
type StageTypeMetrics struct {
	// Count is the total number of executions of this stage
	Count int64 `json:"count"`

	// SuccessRate is the percentage of successful executions (0-100)
	SuccessRate float64 `json:"success_rate"`

	// AvgDuration is the average execution time for this stage
	AvgDuration time.Duration `json:"avg_duration"`
}

// Status constants for StageRecord
const (
	StageStatusSuccess    = "success"
	StageStatusError      = "error"
	StageStatusProcessing = "processing"
)

// Health constants for SystemStatus
const (
	SystemHealthRunning  = "running"
	SystemHealthDegraded = "degraded"
	SystemHealthStopped  = "stopped"
)

// Pipeline stage constants
const (
	StageAnalysis  = "analysis"
	StagePDF       = "pdf_extraction"
	StageBuild     = "scene_build"
	StageMaterials = "material_apply"
	StageRender    = "render"
)
