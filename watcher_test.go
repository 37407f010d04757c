package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"planforge/aiprovider"
	"planforge/core"
	"planforge/db"
	"planforge/floorplan"
	"planforge/logging"
	"planforge/materials"
	"planforge/pipeline"
	"planforge/render"
	"planforge/shutdown"
)

func testWatcherConfig(t *testing.T) *core.Config {
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
		IntakeDir:          t.TempDir(),
		PollInterval:       25 * time.Millisecond,
		RenderViewpoints:   []string{"front"},
		RenderLighting:     "daylight",
		RenderQuality:      "draft",
	}
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(false, filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatalf("create logger: %v", err)
	}
	return logger
}

func buildWatcher(t *testing.T, cfg *core.Config) (*Watcher, *db.Repository) {
	t.Helper()

	database, err := db.NewDatabase(filepath.Join(t.TempDir(), "test.db"), "file://db/migrations")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := db.NewRepository(database.DB(), nil, nil)

	providers := aiprovider.NewManager(nil, nil)
	if err := providers.Register(aiprovider.NewOfflineProvider()); err != nil {
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

	pipe := pipeline.New(pipeline.Deps{
		Config:       cfg,
		Analyzer:     floorplan.NewAnalyzer(cfg, providers, nil),
		Applicator:   materials.NewApplicator(library, nil, nil),
		Orchestrator: render.NewOrchestrator(engine, render.DefaultRegistry(), nil),
		Providers:    providers,
		Repo:         repo,
	})

	return NewWatcher(cfg, pipe, shutdown.NewManager(nil), testLogger(t)), repo
}

// dropPlan writes a small PNG into the intake directory, backdated past the
// settle delay so the next scan picks it up.
func dropPlan(t *testing.T, dir, name string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	backdate(t, path)
}

func backdate(t *testing.T, path string) {
	t.Helper()
	old := time.Now().Add(-time.Minute)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("backdate %s: %v", path, err)
	}
}

// waitForFile polls until a file matching pattern exists or the deadline
// passes.
func waitForFile(t *testing.T, pattern string) []string {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			t.Fatalf("glob %s: %v", pattern, err)
		}
		if len(matches) > 0 {
			return matches
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("no file matching %s appeared", pattern)
	return nil
}

func TestWatcherProcessesIntakeFile(t *testing.T) {
	cfg := testWatcherConfig(t)
	watcher, repo := buildWatcher(t, cfg)

	dropPlan(t, cfg.IntakeDir, "house.png")
	sidecar := filepath.Join(cfg.IntakeDir, "house.png.materials.json")
	if err := os.WriteFile(sidecar, []byte(`[{"sectionId":"wall_1","materialName":"white_plaster"}]`), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go watcher.Start(ctx)
	defer func() {
		cancel()
		<-watcher.Done()
	}()

	moved := waitForFile(t, filepath.Join(cfg.IntakeDir, processedDir, "*house.png"))
	if len(moved) != 1 {
		t.Fatalf("expected 1 processed file, got %v", moved)
	}
	// The sidecar travels with the plan.
	if _, err := os.Stat(moved[0] + ".materials.json"); err != nil {
		t.Errorf("sidecar should be moved alongside the plan: %v", err)
	}

	sessions, err := repo.ListSessions(10)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Status != db.StatusComplete {
		t.Errorf("session status = %q, want %q", sessions[0].Status, db.StatusComplete)
	}
	records, err := repo.ListRenderRecords(sessions[0].ID)
	if err != nil {
		t.Fatalf("list render records: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 render record, got %d", len(records))
	}
}

func TestWatcherMovesFailedFilesAside(t *testing.T) {
	cfg := testWatcherConfig(t)
	watcher, repo := buildWatcher(t, cfg)

	dropPlan(t, cfg.IntakeDir, "bad.png")
	sidecar := filepath.Join(cfg.IntakeDir, "bad.png.materials.json")
	if err := os.WriteFile(sidecar, []byte(`[{"sectionId":"wall_1","materialName":"unobtainium"}]`), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go watcher.Start(ctx)
	defer func() {
		cancel()
		<-watcher.Done()
	}()

	waitForFile(t, filepath.Join(cfg.IntakeDir, failedDir, "*bad.png"))

	sessions, err := repo.ListSessions(10)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Status != db.StatusFailed {
		t.Errorf("expected one failed session, got %+v", sessions)
	}
}

func TestWatcherIgnoresUnknownExtensions(t *testing.T) {
	cfg := testWatcherConfig(t)
	watcher, _ := buildWatcher(t, cfg)

	path := filepath.Join(cfg.IntakeDir, "notes.txt")
	if err := os.WriteFile(path, []byte("not a plan"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	backdate(t, path)

	ctx, cancel := context.WithCancel(context.Background())
	go watcher.Start(ctx)

	time.Sleep(150 * time.Millisecond)
	cancel()
	<-watcher.Done()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("unknown file should stay in place: %v", err)
	}
}

func TestMarkSeen(t *testing.T) {
	cfg := testWatcherConfig(t)
	watcher, _ := buildWatcher(t, cfg)

	dropPlan(t, cfg.IntakeDir, "plan.png")
	info, err := os.Stat(filepath.Join(cfg.IntakeDir, "plan.png"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	if !watcher.markSeen("plan.png", info) {
		t.Error("first sighting should report new")
	}
	if watcher.markSeen("plan.png", info) {
		t.Error("unchanged file should not report new")
	}

	// A rewrite with different size is picked up again.
	path := filepath.Join(cfg.IntakeDir, "plan.png")
	if err := os.WriteFile(path, []byte("different content"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	info, err = os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !watcher.markSeen("plan.png", info) {
		t.Error("changed file should report new")
	}
}
