package render

import (
	"context"

	"go.uber.org/zap"

	"planforge/logging"
	"planforge/scene"
)

// BatchRequest asks for renders of one model from several viewpoints under
// a shared lighting preset and quality tier.
type BatchRequest struct {
	Viewpoints []string
	Lighting   string
	Quality    string
	Resolution Resolution
}

// DefaultResolution is used when a batch omits the resolution.
var DefaultResolution = Resolution{Width: 1024, Height: 768}

// Orchestrator runs render batches: readiness gate, per-request validation,
// sequential processing with progress reporting, and partial-failure
// aggregation.
type Orchestrator struct {
	engine   Engine
	registry *Registry
	logger   *logging.Logger
}

// NewOrchestrator creates an Orchestrator over the given engine and preset
// registry.
func NewOrchestrator(engine Engine, registry *Registry, logger *logging.Logger) *Orchestrator {
	if logger != nil {
		logger = logger.Named("render")
	}
	return &Orchestrator{engine: engine, registry: registry, logger: logger}
}

// RenderAll renders every viewpoint in the batch sequentially.
//
// The model must pass the render-readiness gate first; an unready model
// fails the whole call with a *ValidationError carrying the issues list.
// After the gate, each viewpoint is validated and rendered independently:
// an invalid or failed viewpoint is recorded as a Failure and processing
// continues with the next one. Result order matches input viewpoint order.
//
// progress, when non-nil, is called with (completed, total) after every
// viewpoint settles, success or failure. The returned error is non-nil only
// for whole-call problems (unready model, cancelled context), never for
// per-viewpoint failures.
func (o *Orchestrator) RenderAll(ctx context.Context, model *scene.Model, batch BatchRequest, progress ProgressFunc) (*Outcome, error) {
	report := ValidateModelForRendering(model)
	if !report.IsValid {
		modelID := ""
		if model != nil {
			modelID = model.ID
		}
		return nil, &ValidationError{ModelID: modelID, Issues: report.Issues}
	}

	resolution := batch.Resolution
	if resolution.Width == 0 && resolution.Height == 0 {
		resolution = DefaultResolution
	}

	outcome := &Outcome{}
	total := len(batch.Viewpoints)
	for i, viewpointName := range batch.Viewpoints {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		result, err := o.renderOne(ctx, model, Request{
			ModelID:    model.ID,
			Viewpoint:  viewpointName,
			Lighting:   batch.Lighting,
			Resolution: resolution,
			Quality:    batch.Quality,
		})
		if err != nil {
			outcome.Failures = append(outcome.Failures, Failure{
				Viewpoint: viewpointName,
				Err:       err,
				Message:   err.Error(),
			})
			if o.logger != nil {
				o.logger.Warn("viewpoint render failed",
					zap.String("model", model.ID),
					zap.String("viewpoint", viewpointName),
					zap.Error(err))
			}
		} else {
			outcome.Results = append(outcome.Results, *result)
			if o.logger != nil {
				o.logger.Info("viewpoint rendered",
					zap.String("model", model.ID),
					zap.String("viewpoint", viewpointName),
					zap.String("url", result.URL),
					zap.Duration("processing_time", result.Metadata.ProcessingTime))
			}
		}

		if progress != nil {
			progress(i+1, total)
		}
	}
	return outcome, nil
}

// renderOne validates and renders a single request.
func (o *Orchestrator) renderOne(ctx context.Context, model *scene.Model, req Request) (*Result, error) {
	if err := ValidateRequest(o.registry, req); err != nil {
		return nil, err
	}

	view, _ := o.registry.Viewpoint(req.Viewpoint)
	light, _ := o.registry.Lighting(req.Lighting)
	quality := Quality{Name: "standard", Samples: 32}
	if req.Quality != "" {
		quality, _ = o.registry.Quality(req.Quality)
	}

	return o.engine.Render(ctx, model, req, view, light, quality)
}
