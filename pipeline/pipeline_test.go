package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"planforge/aiprovider"
	"planforge/core"
	"planforge/db"
	"planforge/floorplan"
	"planforge/materials"
	"planforge/metrics"
	"planforge/render"
)

func testConfig(t *testing.T) *core.Config {
	t.Helper()
	return &core.Config{
		MaxRetries:         0,
		RetryDelay:         time.Millisecond,
		AITimeout:          5 * time.Second,
		MaxUploadBytes:     8 << 20,
		AllowedUploadTypes: core.DefaultAllowedUploadTypes,
		RendersDir:         t.TempDir(),
		RenderLatency:      time.Millisecond,
		WorkDir:            t.TempDir(),
	}
}

func testRepository(t *testing.T) *db.Repository {
	t.Helper()
	database, err := db.NewDatabase(filepath.Join(t.TempDir(), "test.db"), "file://../db/migrations")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db.NewRepository(database.DB(), nil, nil)
}

func testPipeline(t *testing.T, cfg *core.Config, repo *db.Repository, collector metrics.Collector) *Pipeline {
	t.Helper()

	manager := aiprovider.NewManager(nil, nil)
	if err := manager.Register(aiprovider.NewOfflineProvider()); err != nil {
		t.Fatalf("register offline provider: %v", err)
	}

	library, err := materials.NewLibrary("")
	if err != nil {
		t.Fatalf("load material library: %v", err)
	}

	engine, err := render.NewPreviewEngine(cfg)
	if err != nil {
		t.Fatalf("create render engine: %v", err)
	}

	return New(Deps{
		Config:       cfg,
		Analyzer:     floorplan.NewAnalyzer(cfg, manager, nil),
		Applicator:   materials.NewApplicator(library, nil, nil),
		Orchestrator: render.NewOrchestrator(engine, render.DefaultRegistry(), nil),
		Providers:    manager,
		Repo:         repo,
		Collector:    collector,
	})
}

func pngUpload(t *testing.T) floorplan.ImageUpload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return floorplan.ImageUpload{
		Data:     buf.Bytes(),
		MimeType: "image/png",
		Filename: "plan.png",
	}
}

func TestProcessEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	repo := testRepository(t)
	pipe := testPipeline(t, cfg, repo, nil)

	result, err := pipe.Process(context.Background(), Request{
		Upload: pngUpload(t),
		Selections: []materials.Selection{
			{SectionID: "wall_1", MaterialName: "white_plaster"},
			{SectionID: "floor", MaterialName: "polished_concrete"},
		},
		Render: render.BatchRequest{
			Viewpoints: []string{"front", "top"},
			Lighting:   "daylight",
			Quality:    "draft",
		},
	})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if result.SessionID == "" {
		t.Error("result should carry a session id")
	}
	if len(result.Renders.Results) != 2 {
		t.Errorf("expected 2 renders, got %d", len(result.Renders.Results))
	}
	if len(result.Renders.Failures) != 0 {
		t.Errorf("expected no render failures, got %v", result.Renders.Failures)
	}

	wall, ok := result.Model.Section("wall_1")
	if !ok {
		t.Fatal("model should contain section wall_1")
	}
	if wall.Material == nil || wall.Material.Name != "white_plaster" {
		t.Errorf("wall_1 material = %+v, want white_plaster", wall.Material)
	}

	session, err := repo.GetSession(result.SessionID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if session.Status != db.StatusComplete {
		t.Errorf("session status = %q, want %q", session.Status, db.StatusComplete)
	}
	if session.Provider != aiprovider.OfflineName {
		t.Errorf("session provider = %q, want %q", session.Provider, aiprovider.OfflineName)
	}
	if session.ElementCount == 0 || session.SectionCount == 0 {
		t.Errorf("session counts = %d elements, %d sections, want nonzero",
			session.ElementCount, session.SectionCount)
	}

	records, err := repo.ListRenderRecords(result.SessionID)
	if err != nil {
		t.Fatalf("list render records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 render records, got %d", len(records))
	}
	if records[0].Viewpoint != "front" || records[1].Viewpoint != "top" {
		t.Errorf("render records out of order: %q, %q", records[0].Viewpoint, records[1].Viewpoint)
	}
}

func TestProcessRejectsUnknownMaterial(t *testing.T) {
	cfg := testConfig(t)
	repo := testRepository(t)
	pipe := testPipeline(t, cfg, repo, nil)

	result, err := pipe.Process(context.Background(), Request{
		Upload: pngUpload(t),
		Selections: []materials.Selection{
			{SectionID: "wall_1", MaterialName: "unobtainium"},
		},
		Render: render.BatchRequest{Viewpoints: []string{"front"}},
	})
	if err == nil {
		t.Fatal("Process should fail for an unknown material")
	}
	if result != nil {
		t.Error("failed run should not return a result")
	}

	sessions, listErr := repo.ListSessions(1)
	if listErr != nil {
		t.Fatalf("list sessions: %v", listErr)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Status != db.StatusFailed {
		t.Errorf("session status = %q, want %q", sessions[0].Status, db.StatusFailed)
	}
	if sessions[0].Error == "" {
		t.Error("failed session should record the cause")
	}

	records, recErr := repo.ListRenderRecords(sessions[0].ID)
	if recErr != nil {
		t.Fatalf("list render records: %v", recErr)
	}
	if len(records) != 0 {
		t.Errorf("rejected run should produce no renders, got %d", len(records))
	}
}

func TestProcessRejectsBadUpload(t *testing.T) {
	cfg := testConfig(t)
	pipe := testPipeline(t, cfg, nil, nil)

	_, err := pipe.Process(context.Background(), Request{
		Upload: floorplan.ImageUpload{
			Data:     []byte("not an image"),
			MimeType: "text/plain",
			Filename: "plan.txt",
		},
	})
	if err == nil {
		t.Fatal("Process should reject a disallowed MIME type")
	}
}

func TestProcessWithoutSelectionsOrRenders(t *testing.T) {
	cfg := testConfig(t)
	repo := testRepository(t)
	pipe := testPipeline(t, cfg, repo, nil)

	result, err := pipe.Process(context.Background(), Request{Upload: pngUpload(t)})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(result.Renders.Results) != 0 {
		t.Errorf("expected no renders, got %d", len(result.Renders.Results))
	}
	for _, s := range result.Model.Sections {
		if s.Material != nil {
			t.Errorf("section %q should have no material bound", s.ID)
		}
	}

	session, err := repo.GetSession(result.SessionID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if session.Status != db.StatusComplete {
		t.Errorf("session status = %q, want %q", session.Status, db.StatusComplete)
	}
}

func TestProcessRecordsStageMetrics(t *testing.T) {
	cfg := testConfig(t)
	store := metrics.NewStore(metrics.DefaultStoreConfig(), time.Now())
	pipe := testPipeline(t, cfg, nil, store)

	_, err := pipe.Process(context.Background(), Request{
		Upload: pngUpload(t),
		Render: render.BatchRequest{
			Viewpoints: []string{"front"},
			Lighting:   "daylight",
			Quality:    "draft",
		},
	})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	stages := make(map[string]int)
	for _, rec := range store.GetRecentStages(100) {
		stages[rec.Stage]++
		if rec.Status != metrics.StageStatusSuccess {
			t.Errorf("stage %s recorded status %q", rec.Stage, rec.Status)
		}
	}
	for _, want := range []string{metrics.StageAnalysis, metrics.StageBuild, metrics.StageRender} {
		if stages[want] == 0 {
			t.Errorf("no %s stage recorded, got %v", want, stages)
		}
	}
}

func TestProcessRecordsProviderStatuses(t *testing.T) {
	cfg := testConfig(t)
	store := metrics.NewStore(metrics.DefaultStoreConfig(), time.Now())
	pipe := testPipeline(t, cfg, nil, store)

	if _, err := pipe.Process(context.Background(), Request{Upload: pngUpload(t)}); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	status, ok := store.GetProviderStatus(aiprovider.OfflineName)
	if !ok {
		t.Fatalf("no status recorded for %q after a run", aiprovider.OfflineName)
	}
	if !status.Available {
		t.Error("offline provider should probe available")
	}
	if !status.Selected {
		t.Error("offline provider should be marked selected")
	}
	if status.LastProbe.IsZero() {
		t.Error("status should carry the probe time")
	}
	if status.Failures != 0 {
		t.Errorf("Failures = %d, want 0", status.Failures)
	}

	if all := store.GetAllProviderStatuses(); len(all) == 0 {
		t.Error("GetAllProviderStatuses returned nothing")
	}
	if health := store.GetSystemStatus().Health; health != metrics.SystemHealthRunning {
		t.Errorf("system health = %q, want %q", health, metrics.SystemHealthRunning)
	}
}

func TestProcessPDFExtractionFailureIsNonFatal(t *testing.T) {
	cfg := testConfig(t)
	repo := testRepository(t)
	pipe := testPipeline(t, cfg, repo, nil)

	result, err := pipe.Process(context.Background(), Request{
		Upload: floorplan.ImageUpload{
			Data:     []byte("%PDF-1.4 truncated garbage"),
			MimeType: "application/pdf",
			Filename: "plan.pdf",
		},
	})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	session, err := repo.GetSession(result.SessionID)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if session.Status != db.StatusComplete {
		t.Errorf("session status = %q, want %q", session.Status, db.StatusComplete)
	}

	// The staged temp file must not outlive the run.
	leftovers, err := filepath.Glob(filepath.Join(cfg.WorkDir, "temp_*"))
	if err != nil {
		t.Fatalf("glob work dir: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp files left in work dir: %v", leftovers)
	}
}
