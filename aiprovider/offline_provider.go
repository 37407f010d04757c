package aiprovider

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// OfflineName is the registry name of the built-in offline provider.
const OfflineName = "offline"

// offlineModel is the pseudo-model name reported in result metadata.
const offlineModel = "offline-deterministic-v1"

// OfflineProvider is a deterministic, always-available provider. It answers
// every request from fixed rules instead of a remote model, which keeps the
// whole pipeline operable with zero configuration and gives tests a provider
// with fully predictable output.
//
// Determinism contract: identical requests always produce identical results.
type OfflineProvider struct{}

// NewOfflineProvider creates the offline provider.
func NewOfflineProvider() *OfflineProvider {
	return &OfflineProvider{}
}

// Name returns the registry name.
func (p *OfflineProvider) Name() string {
	return OfflineName
}

// Capabilities returns every capability; offline answers are canned, so
// nothing is out of reach.
func (p *OfflineProvider) Capabilities() CapabilitySet {
	return NewCapabilitySet(
		CapabilityVisionAnalysis,
		CapabilityTextGeneration,
		CapabilityMaterialSuggestion,
		CapabilityModelGeneration,
	)
}

// IsAvailable always reports true; there is no backend to probe.
func (p *OfflineProvider) IsAvailable(ctx context.Context) bool {
	return true
}

// AnalyzeImage returns a canned two-room floor plan analysis. The content is
// shaped like a vision model response so downstream parsing takes the same
// path as with a live provider.
func (p *OfflineProvider) AnalyzeImage(ctx context.Context, req ImageAnalysisRequest) (*VisionResult, error) {
	if len(req.ImageData) == 0 {
		return nil, NewError(OfflineName, CategoryConfig, "image data cannot be empty")
	}

	start := time.Now()
	analysis := map[string]any{
		"elements": []map[string]any{
			{"type": "wall", "id": "wall_1", "start": map[string]float64{"x": 0, "y": 0}, "end": map[string]float64{"x": 10, "y": 0}, "thickness": 0.2, "height": 2.7},
			{"type": "wall", "id": "wall_2", "start": map[string]float64{"x": 10, "y": 0}, "end": map[string]float64{"x": 10, "y": 8}, "thickness": 0.2, "height": 2.7},
			{"type": "wall", "id": "wall_3", "start": map[string]float64{"x": 10, "y": 8}, "end": map[string]float64{"x": 0, "y": 8}, "thickness": 0.2, "height": 2.7},
			{"type": "wall", "id": "wall_4", "start": map[string]float64{"x": 0, "y": 8}, "end": map[string]float64{"x": 0, "y": 0}, "thickness": 0.2, "height": 2.7},
			{"type": "wall", "id": "wall_5", "start": map[string]float64{"x": 5, "y": 0}, "end": map[string]float64{"x": 5, "y": 8}, "thickness": 0.15, "height": 2.7},
			{"type": "door", "id": "door_1", "position": map[string]float64{"x": 5, "y": 4}, "width": 0.9, "wall_id": "wall_5"},
			{"type": "window", "id": "window_1", "position": map[string]float64{"x": 2.5, "y": 0}, "width": 1.2, "wall_id": "wall_1"},
		},
		"rooms": []map[string]any{
			{"name": "Living Room", "bounds": map[string]float64{"x": 0, "y": 0, "width": 5, "height": 8}},
			{"name": "Bedroom", "bounds": map[string]float64{"x": 5, "y": 0, "width": 5, "height": 8}},
		},
		"scale": 1.0,
	}

	content, err := json.Marshal(analysis)
	if err != nil {
		return nil, NewError(OfflineName, CategoryConfig, "failed to encode canned analysis")
	}

	return &VisionResult{
		Content: string(content),
		Meta: Meta{
			Model:          offlineModel,
			Provider:       OfflineName,
			ProcessingTime: time.Since(start),
		},
	}, nil
}

// GenerateText echoes a deterministic acknowledgement of the prompt.
func (p *OfflineProvider) GenerateText(ctx context.Context, req TextRequest) (*TextResult, error) {
	if req.Prompt == "" {
		return nil, NewError(OfflineName, CategoryConfig, "prompt cannot be empty")
	}

	start := time.Now()
	return &TextResult{
		Content: "Offline response for prompt: " + req.Prompt,
		Meta: Meta{
			Model:          offlineModel,
			Provider:       OfflineName,
			ProcessingTime: time.Since(start),
		},
	}, nil
}

// AnalyzeMaterials pairs each section with a material by keyword, falling
// back to the first available material. Output order follows the request
// order, so results are fully deterministic.
func (p *OfflineProvider) AnalyzeMaterials(ctx context.Context, req MaterialAnalysisRequest) (*MaterialResult, error) {
	if len(req.SectionNames) == 0 {
		return nil, NewError(OfflineName, CategoryConfig, "section names cannot be empty")
	}

	start := time.Now()
	suggestions := make([]MaterialSuggestion, 0, len(req.SectionNames))
	for _, section := range req.SectionNames {
		name, reason := matchMaterial(section, req.AvailableMaterials)
		if name == "" {
			continue
		}
		suggestions = append(suggestions, MaterialSuggestion{
			Section:      section,
			MaterialName: name,
			Reason:       reason,
		})
	}

	return &MaterialResult{
		Suggestions: suggestions,
		Meta: Meta{
			Model:          offlineModel,
			Provider:       OfflineName,
			ProcessingTime: time.Since(start),
		},
	}, nil
}

// Generate3DModel returns a minimal JSON-encoded box model description.
func (p *OfflineProvider) Generate3DModel(ctx context.Context, req ModelGenerationRequest) (*ModelGenerationResult, error) {
	if req.Description == "" {
		return nil, NewError(OfflineName, CategoryConfig, "description cannot be empty")
	}

	start := time.Now()
	format := req.Format
	if format == "" {
		format = "json"
	}

	payload := map[string]any{
		"description": req.Description,
		"primitive":   "box",
		"dimensions":  map[string]float64{"width": 1, "height": 1, "depth": 1},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, NewError(OfflineName, CategoryConfig, "failed to encode model payload")
	}

	return &ModelGenerationResult{
		Data:   data,
		Format: format,
		Meta: Meta{
			Model:          offlineModel,
			Provider:       OfflineName,
			ProcessingTime: time.Since(start),
		},
	}, nil
}

// matchMaterial picks the first available material whose name shares a
// keyword with the section name, else the first available material.
func matchMaterial(section string, available []string) (name, reason string) {
	if len(available) == 0 {
		return "", ""
	}

	lowerSection := strings.ToLower(section)
	for _, m := range available {
		for _, word := range strings.FieldsFunc(strings.ToLower(m), func(r rune) bool {
			return r == ' ' || r == '_' || r == '-'
		}) {
			if len(word) >= 4 && strings.Contains(lowerSection, word) {
				return m, "keyword match on " + word
			}
		}
	}
	return available[0], "default assignment"
}

// Ensure OfflineProvider implements Provider at compile time.
var _ Provider = (*OfflineProvider)(nil)
