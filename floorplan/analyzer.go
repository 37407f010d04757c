package floorplan

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"planforge/aiprovider"
	"planforge/core"
	"planforge/logging"
)

// analysisPrompt is the fixed instruction sent with every floor-plan image.
// The expected output schema matches what ParseAnalysisResponse consumes.
const analysisPrompt = `Analyze this 2D floor plan image and extract its architectural structure.
Respond with only a JSON object using this schema:
{
  "elements": [
    {"type": "wall", "id": "wall_1", "start": {"x": 0, "y": 0}, "end": {"x": 10, "y": 0}, "thickness": 0.2, "height": 2.7},
    {"type": "door", "id": "door_1", "position": {"x": 5, "y": 0}, "width": 0.9, "wall_id": "wall_1"},
    {"type": "window", "id": "window_1", "position": {"x": 2, "y": 0}, "width": 1.2, "wall_id": "wall_1"}
  ],
  "rooms": [
    {"name": "Living Room", "bounds": {"x": 0, "y": 0, "width": 5, "height": 4}, "walls": ["wall_1"]}
  ],
  "scale": 1.0,
  "total_width": 10,
  "total_height": 8
}
Coordinates are in meters. Use unique ids. Include every wall, door, window and room you can identify.`

// analysisTemperature favors deterministic structured output over creativity.
const analysisTemperature = 0.1

// Analyzer converts uploaded floor-plan images into FloorPlanAnalysis
// records. It is an organism composed of the upload gate, the provider
// manager, the response parser and the synthetic fallback.
//
// Failure policy: upload validation errors propagate to the caller; every
// provider-side failure is absorbed into the deterministic fallback so the
// returned analysis is always usable.
type Analyzer struct {
	cfg     *core.Config
	manager *aiprovider.Manager
	policy  aiprovider.RetryPolicy
	logger  *logging.Logger
}

// NewAnalyzer creates an Analyzer. The retry policy derives from the
// configured retry settings.
func NewAnalyzer(cfg *core.Config, manager *aiprovider.Manager, logger *logging.Logger) *Analyzer {
	policy := aiprovider.DefaultRetryPolicy()
	if cfg.MaxRetries > 0 {
		policy.MaxAttempts = cfg.MaxRetries
	}
	if cfg.RetryDelay > 0 {
		policy.BaseDelay = cfg.RetryDelay
	}
	if logger != nil {
		logger = logger.Named("floorplan")
	}
	return &Analyzer{
		cfg:     cfg,
		manager: manager,
		policy:  policy,
		logger:  logger,
	}
}

// Analyze runs the full analysis pipeline for one upload:
//
//  1. validate the upload (MIME allow-list, size cap) - violations reject
//     before any AI call
//  2. downscale oversized raster images to the provider-friendly bound
//  3. select the best available provider and request vision analysis with
//     retries on retryable errors
//  4. parse the response into typed records
//  5. fall back to the synthetic analysis when the provider is unavailable,
//     the call fails, or the parsed result carries zero elements
func (a *Analyzer) Analyze(ctx context.Context, upload ImageUpload) (*FloorPlanAnalysis, error) {
	if err := ValidateUpload(a.cfg, upload); err != nil {
		return nil, err
	}

	if upload.MimeType != "application/pdf" {
		prepared, err := PrepareForAnalysis(upload)
		if err != nil {
			// Send the original bytes; the provider call decides its fate.
			a.logWarn("image preprocessing failed, sending original", zap.Error(err))
		} else {
			upload = prepared
		}
	}

	provider, err := a.manager.GetBestAvailableProvider(ctx)
	if err != nil {
		a.logWarn("no provider available, using synthetic analysis", zap.Error(err))
		return SyntheticAnalysis(), nil
	}

	result, err := a.analyzeWithRetry(ctx, provider, upload)
	if err != nil {
		a.logWarn("vision analysis failed, using synthetic analysis",
			zap.String("provider", provider.Name()),
			zap.Error(fmt.Errorf("ai service error: %w", err)))
		return SyntheticAnalysis(), nil
	}

	analysis, err := ParseAnalysisResponse(result.Content)
	if err != nil {
		a.logWarn("unparseable analysis response, using synthetic analysis",
			zap.String("provider", provider.Name()),
			zap.Error(err))
		return SyntheticAnalysis(), nil
	}
	if len(analysis.Elements) == 0 {
		// No signal means no confidence; the fallback is more useful than
		// an empty scene.
		a.logWarn("analysis yielded zero elements, using synthetic analysis",
			zap.String("provider", provider.Name()))
		return SyntheticAnalysis(), nil
	}

	if a.logger != nil {
		a.logger.Info("floor plan analyzed",
			zap.String("provider", result.Meta.Provider),
			zap.String("model", result.Meta.Model),
			zap.Int("elements", len(analysis.Elements)),
			zap.Int("rooms", len(analysis.Rooms)),
			zap.Duration("processing_time", result.Meta.ProcessingTime))
	}
	return analysis, nil
}

// analyzeWithRetry issues the vision request under the retry policy.
func (a *Analyzer) analyzeWithRetry(ctx context.Context, provider aiprovider.Provider, upload ImageUpload) (*aiprovider.VisionResult, error) {
	var result *aiprovider.VisionResult
	err := aiprovider.Do(ctx, a.policy, a.logger, provider.Name(), func(ctx context.Context) error {
		res, err := provider.AnalyzeImage(ctx, aiprovider.ImageAnalysisRequest{
			ImageData:   upload.Data,
			MimeType:    upload.MimeType,
			Prompt:      analysisPrompt,
			Temperature: analysisTemperature,
			MaxTokens:   2000,
		})
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (a *Analyzer) logWarn(msg string, fields ...zap.Field) {
	if a.logger != nil {
		a.logger.Warn(msg, fields...)
	}
}
