// Package aiprovider defines the capability-negotiated abstraction over AI
// backends used by the asset pipeline, plus the Manager organism that
// handles provider registration, availability probing and failover.
//
// The package composes:
//   - Provider interface: the seam any concrete vision/text backend plugs into
//   - Manager organism: registry, current pointer, failover order
//   - Error taxonomy: closed classification driving retry/backoff decisions
//   - retry molecule: bounded exponential backoff for retryable categories
package aiprovider

import (
	"context"
	"time"
)

// Meta describes a single provider call: which backend and model served it,
// how long it took, and token usage when the backend reports it.
// Every successful result embeds a Meta.
type Meta struct {
	Model          string        `json:"model"`
	Provider       string        `json:"provider"`
	ProcessingTime time.Duration `json:"processing_time"`
	TokensUsed     int           `json:"tokens_used,omitempty"`
}

// ImageAnalysisRequest asks a provider to analyze an image.
type ImageAnalysisRequest struct {
	// ImageData is the raw image bytes. Upload validation (MIME allow-list,
	// size limits) happens before a request is built; providers may assume
	// the data passed gate checks.
	ImageData []byte

	// MimeType is the validated MIME type of ImageData.
	MimeType string

	// Prompt is the analysis instruction sent alongside the image.
	Prompt string

	// Temperature controls sampling. Structured-output callers should use a
	// low value (the floor plan analyzer uses 0.1).
	Temperature float32

	// MaxTokens bounds the response length. Zero uses the provider default.
	MaxTokens int
}

// VisionResult is the outcome of an image analysis call. Content is the
// model's raw response text; parsing into structured records is the
// caller's concern (the compatibility seam is parse-and-fall-back).
type VisionResult struct {
	Content string
	Meta    Meta
}

// TextRequest asks a provider for a text completion.
type TextRequest struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// TextResult is the outcome of a text generation call.
type TextResult struct {
	Content string
	Meta    Meta
}

// MaterialAnalysisRequest asks a provider to suggest library materials for
// named model sections.
type MaterialAnalysisRequest struct {
	// SectionNames are the section ids needing material suggestions.
	SectionNames []string

	// AvailableMaterials are the library keys the provider may choose from.
	AvailableMaterials []string

	// Style is an optional free-form style hint ("scandinavian", "industrial").
	Style string
}

// MaterialSuggestion pairs a section with a suggested library material.
type MaterialSuggestion struct {
	Section      string `json:"section"`
	MaterialName string `json:"material"`
	Reason       string `json:"reason,omitempty"`
}

// MaterialResult is the outcome of a material analysis call.
type MaterialResult struct {
	Suggestions []MaterialSuggestion
	Meta        Meta
}

// ModelGenerationRequest asks a provider to generate 3D model data from a
// text description.
type ModelGenerationRequest struct {
	Description string
	Format      string
}

// ModelGenerationResult is the outcome of a 3D model generation call.
type ModelGenerationResult struct {
	Data   []byte
	Format string
	Meta   Meta
}

// Provider is the contract every AI backend implements. All blocking
// operations take a context; implementations must enforce a per-call
// timeout and surface timeouts as retryable network errors (see errors.go).
//
// Providers advertise what they can do via Capabilities; callers must not
// invoke an operation the provider does not advertise. Operations outside a
// provider's capability set return an Error with CategoryModelUnavailable.
type Provider interface {
	// Name returns the unique registry name of this provider.
	Name() string

	// Capabilities returns the set of operations this provider supports.
	Capabilities() CapabilitySet

	// IsAvailable probes whether the backend is currently reachable and
	// usable. Probes should be cheap; the Manager calls this on every
	// best-available selection.
	IsAvailable(ctx context.Context) bool

	// AnalyzeImage runs vision analysis over an image.
	AnalyzeImage(ctx context.Context, req ImageAnalysisRequest) (*VisionResult, error)

	// GenerateText runs a plain text completion.
	GenerateText(ctx context.Context, req TextRequest) (*TextResult, error)

	// AnalyzeMaterials suggests library materials for model sections.
	AnalyzeMaterials(ctx context.Context, req MaterialAnalysisRequest) (*MaterialResult, error)

	// Generate3DModel generates encoded 3D model data from a description.
	Generate3DModel(ctx context.Context, req ModelGenerationRequest) (*ModelGenerationResult, error)
}
