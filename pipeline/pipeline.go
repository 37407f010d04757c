// Package pipeline composes the asset pipeline stages into one run:
// floor-plan analysis, scene building, material application and batch
// rendering, with session state persisted between stages. A run degrades
// rather than dies: analysis falls back to the synthetic plan, PDF
// annotation extraction is best-effort, and per-viewpoint render failures
// leave the rest of the batch intact.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"planforge/aiprovider"
	"planforge/core"
	"planforge/db"
	"planforge/floorplan"
	"planforge/logging"
	"planforge/materials"
	"planforge/metrics"
	"planforge/pdfplan"
	"planforge/render"
	"planforge/scene"
)

// Request is one end-to-end pipeline run: an uploaded plan, the material
// selections to bind, and the render batch to produce.
type Request struct {
	Upload     floorplan.ImageUpload
	Selections []materials.Selection
	Render     render.BatchRequest

	// Progress, when non-nil, receives render progress updates.
	Progress render.ProgressFunc
}

// Result is the output of one completed run.
type Result struct {
	SessionID string
	Analysis  *floorplan.FloorPlanAnalysis
	Model     *scene.Model
	Renders   *render.Outcome
}

// Deps are the collaborators a Pipeline composes. Repo and Collector may
// be nil; persistence and instrumentation are then skipped.
type Deps struct {
	Config       *core.Config
	Analyzer     *floorplan.Analyzer
	Applicator   *materials.Applicator
	Orchestrator *render.Orchestrator
	Providers    *aiprovider.Manager
	Repo         *db.Repository
	Collector    metrics.Collector
	Logger       *logging.Logger
}

// Pipeline runs uploads through analysis, scene building, material
// application and rendering. Safe for concurrent use; each run owns its
// session and model.
type Pipeline struct {
	cfg          *core.Config
	analyzer     *floorplan.Analyzer
	applicator   *materials.Applicator
	orchestrator *render.Orchestrator
	providers    *aiprovider.Manager
	repo         *db.Repository
	collector    metrics.Collector
	logger       *logging.Logger
}

// New creates a Pipeline from its collaborators.
func New(deps Deps) *Pipeline {
	logger := deps.Logger
	if logger != nil {
		logger = logger.Named("pipeline")
	}
	return &Pipeline{
		cfg:          deps.Config,
		analyzer:     deps.Analyzer,
		applicator:   deps.Applicator,
		orchestrator: deps.Orchestrator,
		providers:    deps.Providers,
		repo:         deps.Repo,
		collector:    deps.Collector,
		logger:       logger,
	}
}

// Process runs one upload through every stage.
//
// Analysis never fails the run: provider trouble degrades to the synthetic
// plan. Material application is transactional; a rejected batch fails the
// run with the session marked failed and no renders attempted. Render
// failures are per-viewpoint and reported in the outcome, not as an error.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	session := &db.Session{
		ID:             core.NewID(),
		SourceFilename: req.Upload.Filename,
		Status:         db.StatusCreated,
	}
	p.createSession(session)

	p.logInfo("pipeline run started",
		zap.String("session_id", session.ID),
		zap.String("filename", req.Upload.Filename),
		zap.String("mime_type", req.Upload.MimeType))

	analysis, err := p.analyzeStage(ctx, session, req.Upload)
	if err != nil {
		p.failSession(session, err)
		return nil, err
	}

	model, err := p.buildStage(session, analysis)
	if err != nil {
		p.failSession(session, err)
		return nil, err
	}

	model, err = p.materializeStage(ctx, session, model, req.Selections)
	if err != nil {
		p.failSession(session, err)
		return nil, fmt.Errorf("pipeline: material application rejected: %w", err)
	}

	outcome, err := p.renderStage(ctx, session, model, req)
	if err != nil {
		p.failSession(session, err)
		return nil, err
	}

	session.Status = db.StatusComplete
	p.updateSession(session)

	p.logInfo("pipeline run complete",
		zap.String("session_id", session.ID),
		zap.Int("elements", session.ElementCount),
		zap.Int("sections", session.SectionCount),
		zap.Int("renders", len(outcome.Results)),
		zap.Int("render_failures", len(outcome.Failures)))

	return &Result{
		SessionID: session.ID,
		Analysis:  analysis,
		Model:     model,
		Renders:   outcome,
	}, nil
}

// analyzeStage validates and analyzes the upload. PDF uploads additionally
// go through text-layer annotation extraction to recover room names the
// vision path cannot see.
func (p *Pipeline) analyzeStage(ctx context.Context, session *db.Session, upload floorplan.ImageUpload) (*floorplan.FloorPlanAnalysis, error) {
	session.Status = db.StatusAnalyzing
	p.updateSession(session)

	start := time.Now()
	analysis, err := p.analyzer.Analyze(ctx, upload)
	p.recordStage(metrics.StageAnalysis, session.ID, start, err)
	if err != nil {
		return nil, err
	}

	if p.providers != nil {
		sel := p.providers.LastSelection()
		session.Provider = sel.Provider
		p.recordProviderStatuses(sel)
	}
	session.ElementCount = len(analysis.Elements)

	if upload.MimeType == "application/pdf" {
		p.enrichFromPDF(ctx, session.ID, upload, analysis)
	}
	return analysis, nil
}

// enrichFromPDF extracts text annotations from a PDF upload and applies
// room names to the analysis. Failures are logged and swallowed; the
// analysis is already valid without them.
func (p *Pipeline) enrichFromPDF(ctx context.Context, sessionID string, upload floorplan.ImageUpload, analysis *floorplan.FloorPlanAnalysis) {
	start := time.Now()

	path, err := p.writeTempPDF(sessionID, upload.Data)
	if err != nil {
		p.recordStage(metrics.StagePDF, sessionID, start, err)
		p.logWarn("could not stage PDF for extraction", zap.Error(err))
		return
	}
	defer os.Remove(path)

	select {
	case <-ctx.Done():
		p.recordStage(metrics.StagePDF, sessionID, start, ctx.Err())
		return
	default:
	}

	ann, err := pdfplan.ExtractAnnotations(path)
	p.recordStage(metrics.StagePDF, sessionID, start, err)
	if err != nil {
		p.logWarn("PDF annotation extraction failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}

	renamed := pdfplan.EnrichAnalysis(analysis, ann)
	if renamed > 0 {
		p.logInfo("rooms renamed from PDF annotations",
			zap.String("session_id", sessionID),
			zap.Int("renamed", renamed))
	}
}

// writeTempPDF stages upload bytes as a temp file so the PDF reader can
// open them by path. The file lives in the work directory and is removed
// after extraction; the shutdown sweep catches leftovers.
func (p *Pipeline) writeTempPDF(sessionID string, data []byte) (string, error) {
	workDir := "work"
	if p.cfg != nil && p.cfg.WorkDir != "" {
		workDir = p.cfg.WorkDir
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("pipeline: create work dir: %w", err)
	}
	path := filepath.Join(workDir, "temp_"+sessionID+".pdf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("pipeline: stage PDF: %w", err)
	}
	return path, nil
}

func (p *Pipeline) buildStage(session *db.Session, analysis *floorplan.FloorPlanAnalysis) (*scene.Model, error) {
	session.Status = db.StatusBuilding
	p.updateSession(session)

	start := time.Now()
	model := scene.Build(analysis)
	err := model.Validate()
	p.recordStage(metrics.StageBuild, session.ID, start, err)
	if err != nil {
		return nil, fmt.Errorf("pipeline: built model failed validation: %w", err)
	}

	session.ModelID = model.ID
	session.SectionCount = len(model.Sections)
	return model, nil
}

func (p *Pipeline) materializeStage(ctx context.Context, session *db.Session, model *scene.Model, selections []materials.Selection) (*scene.Model, error) {
	if len(selections) == 0 {
		return model, nil
	}

	session.Status = db.StatusMaterializing
	p.updateSession(session)

	start := time.Now()
	applied, err := p.applicator.Apply(ctx, model, selections)
	p.recordStage(metrics.StageMaterials, session.ID, start, err)
	if err != nil {
		return nil, err
	}
	return applied, nil
}

func (p *Pipeline) renderStage(ctx context.Context, session *db.Session, model *scene.Model, req Request) (*render.Outcome, error) {
	if len(req.Render.Viewpoints) == 0 {
		return &render.Outcome{}, nil
	}

	session.Status = db.StatusRendering
	p.updateSession(session)

	start := time.Now()
	outcome, err := p.orchestrator.RenderAll(ctx, model, req.Render, req.Progress)
	p.recordStage(metrics.StageRender, session.ID, start, err)
	if err != nil {
		return nil, err
	}

	for i := range outcome.Results {
		p.persistRender(session.ID, &outcome.Results[i])
	}
	return outcome, nil
}

// persistRender appends one render to the session's history. Persistence
// is best-effort; the render itself already exists on disk.
func (p *Pipeline) persistRender(sessionID string, result *render.Result) {
	if p.repo == nil {
		return
	}
	record := &db.RenderRecord{
		SessionID:        sessionID,
		ResultID:         result.ID,
		Viewpoint:        result.Viewpoint,
		Lighting:         result.Lighting,
		URL:              result.URL,
		Format:           result.Format,
		Width:            result.Metadata.Resolution.Width,
		Height:           result.Metadata.Resolution.Height,
		FileSizeBytes:    result.Metadata.FileSizeBytes,
		ProcessingTimeMS: result.Metadata.ProcessingTime.Milliseconds(),
	}
	if err := p.repo.AppendRenderRecord(record); err != nil {
		p.logWarn("failed to persist render record",
			zap.String("session_id", sessionID),
			zap.String("viewpoint", result.Viewpoint),
			zap.Error(err))
	}
}

// recordProviderStatuses publishes the probe results from the latest
// provider selection. Failure counts accumulate across selections.
func (p *Pipeline) recordProviderStatuses(sel aiprovider.Selection) {
	if p.collector == nil {
		return
	}
	for _, probe := range sel.Probes {
		status := metrics.ProviderStatus{
			Name:      probe.Provider,
			Available: probe.Available,
			Selected:  probe.Provider == sel.Provider,
			LastProbe: sel.At,
		}
		if prev, ok := p.collector.GetProviderStatus(probe.Provider); ok {
			status.Failures = prev.Failures
		}
		if !probe.Available {
			status.Failures++
		}
		p.collector.UpdateProviderStatus(status)
	}
}

func (p *Pipeline) recordStage(stage, sessionID string, start time.Time, err error) {
	if p.collector == nil {
		return
	}
	end := time.Now()
	record := metrics.StageRecord{
		ID:        core.NewID(),
		Stage:     stage,
		SessionID: sessionID,
		Status:    metrics.StageStatusSuccess,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
	}
	if err != nil {
		record.Status = metrics.StageStatusError
		record.ErrorMsg = err.Error()
	}
	p.collector.RecordStage(record)
}

func (p *Pipeline) createSession(session *db.Session) {
	if p.repo == nil {
		return
	}
	if err := p.repo.CreateSession(session); err != nil {
		p.logWarn("failed to create session record",
			zap.String("session_id", session.ID),
			zap.Error(err))
	}
}

func (p *Pipeline) updateSession(session *db.Session) {
	if p.repo == nil {
		return
	}
	if err := p.repo.UpdateSession(session); err != nil {
		p.logWarn("failed to update session record",
			zap.String("session_id", session.ID),
			zap.String("status", session.Status),
			zap.Error(err))
	}
}

func (p *Pipeline) failSession(session *db.Session, cause error) {
	session.Status = db.StatusFailed
	session.Error = cause.Error()
	p.updateSession(session)

	p.logError("pipeline run failed",
		zap.String("session_id", session.ID),
		zap.Error(cause))
}

func (p *Pipeline) logInfo(msg string, fields ...zap.Field) {
	if p.logger != nil {
		p.logger.Info(msg, fields...)
	}
}

func (p *Pipeline) logWarn(msg string, fields ...zap.Field) {
	if p.logger != nil {
		p.logger.Warn(msg, fields...)
	}
}

func (p *Pipeline) logError(msg string, fields ...zap.Field) {
	if p.logger != nil {
		p.logger.Error(msg, fields...)
	}
}
