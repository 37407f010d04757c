// Package render turns completed scene models into rendered images. The
// orchestrator processes viewpoints sequentially with incremental progress
// and partial-failure reporting; the actual rasterization sits behind the
// Engine seam so an external 3D engine can replace the built-in software
// preview renderer.
package render

import (
	"time"

	"planforge/scene"
)

// Resolution is the output image size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Resolution bounds enforced on every render request.
const (
	MinResolution = 256
	MaxResolution = 4096
)

// Request asks for one render of a model from one viewpoint.
type Request struct {
	ModelID    string     `json:"modelId"`
	Viewpoint  string     `json:"viewpoint"`
	Lighting   string     `json:"lighting"`
	Resolution Resolution `json:"resolution"`
	Quality    string     `json:"quality"`
}

// ResultMetadata carries measurement data about one produced render.
// Checksum fingerprints the output bytes; identical inputs render to
// identical checksums.
type ResultMetadata struct {
	Resolution     Resolution    `json:"resolution"`
	FileSizeBytes  int64         `json:"fileSize"`
	Checksum       string        `json:"checksum"`
	ProcessingTime time.Duration `json:"processingTime"`
}

// Result is one produced render. Immutable once created; the per-session
// result set is append-only.
type Result struct {
	ID        string         `json:"id"`
	URL       string         `json:"url"`
	Format    string         `json:"format"`
	Viewpoint string         `json:"viewpoint"`
	Lighting  string         `json:"lighting"`
	CreatedAt time.Time      `json:"createdAt"`
	Metadata  ResultMetadata `json:"metadata"`
}

// Failure records one viewpoint that could not be rendered. Failures never
// abort the remaining viewpoints in a batch.
type Failure struct {
	Viewpoint string `json:"viewpoint"`
	Err       error  `json:"-"`
	Message   string `json:"message"`
}

// Outcome aggregates a batch render: successes in input viewpoint order
// plus isolated per-viewpoint failures. A partially failed batch is a
// success-with-caveats, not a hard failure.
type Outcome struct {
	Results  []Result  `json:"results"`
	Failures []Failure `json:"failures"`
}

// ProgressFunc receives the completed/total progress fraction after each
// viewpoint settles.
type ProgressFunc func(completed, total int)

// Viewpoint is a named camera position/target/field-of-view triple.
type Viewpoint struct {
	Name     string     `json:"name"`
	Position scene.Vec3 `json:"position"`
	Target   scene.Vec3 `json:"target"`
	FOV      float64    `json:"fov"`
}

// LightingPreset is a named light configuration.
type LightingPreset struct {
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Intensity float64    `json:"intensity"`
	Color     string     `json:"color"`
	Direction scene.Vec3 `json:"direction"`
	Shadows   bool       `json:"shadows"`
}

// Quality is a named render quality tier.
type Quality struct {
	Name    string `json:"name"`
	Samples int    `json:"samples"`
}
