package render

import (
	"errors"
	"fmt"
	"strings"

	"planforge/core"
	"planforge/scene"
)

// ValidateRequest checks one render request against the registry and the
// resolution bounds. Violations return a core.ValidationError and reject
// only this request, never the rest of a batch.
func ValidateRequest(registry *Registry, req Request) error {
	if req.ModelID == "" {
		return core.NewValidationError("modelId", "model id is required")
	}
	if req.Viewpoint == "" {
		return core.NewValidationError("viewpoint", "viewpoint is required")
	}
	if _, ok := registry.Viewpoint(req.Viewpoint); !ok {
		return core.NewValidationError("viewpoint",
			"unknown viewpoint %q (available: %v)", req.Viewpoint, registry.ViewpointNames())
	}
	if req.Lighting == "" {
		return core.NewValidationError("lighting", "lighting preset is required")
	}
	if _, ok := registry.Lighting(req.Lighting); !ok {
		return core.NewValidationError("lighting", "unknown lighting preset %q", req.Lighting)
	}
	if req.Quality != "" {
		if _, ok := registry.Quality(req.Quality); !ok {
			return core.NewValidationError("quality", "unknown quality tier %q", req.Quality)
		}
	}
	for _, dim := range []struct {
		name  string
		value int
	}{
		{"resolution.width", req.Resolution.Width},
		{"resolution.height", req.Resolution.Height},
	} {
		if dim.value < MinResolution || dim.value > MaxResolution {
			return core.NewValidationError(dim.name,
				"%d out of bounds [%d,%d]", dim.value, MinResolution, MaxResolution)
		}
	}
	return nil
}

// Report is the outcome of the render-readiness gate. Issues is non-empty
// exactly when IsValid is false; callers surface the list for user
// remediation before allowing a render to start.
type Report struct {
	IsValid bool     `json:"isValid"`
	Issues  []string `json:"issues,omitempty"`
}

// ValidateModelForRendering gates a model before any render starts. A model
// is render-ready when it has at least one section, every section has a
// bound material, and the encoded data table is present and populated.
func ValidateModelForRendering(model *scene.Model) Report {
	var issues []string

	if model == nil {
		return Report{Issues: []string{"no model provided"}}
	}
	if model.Data == nil || len(model.Data.Nodes) == 0 {
		issues = append(issues, "model has no encoded scene data")
	}
	if len(model.Sections) == 0 {
		issues = append(issues, "model has no sections")
	}
	for _, s := range model.Sections {
		if s.Material == nil {
			issues = append(issues, fmt.Sprintf("section %q has no material", s.ID))
		}
	}

	return Report{IsValid: len(issues) == 0, Issues: issues}
}

// ValidationError carries the readiness issues of a model rejected by the
// render gate.
type ValidationError struct {
	ModelID string
	Issues  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("render: model %s is not render-ready: %s",
		e.ModelID, strings.Join(e.Issues, "; "))
}

// IsValidationError reports whether an error chain contains a render
// ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
