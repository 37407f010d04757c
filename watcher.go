package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"planforge/core"
	"planforge/floorplan"
	"planforge/logging"
	"planforge/materials"
	"planforge/pipeline"
	"planforge/render"
	"planforge/shutdown"
)

// processedDir and failedDir are subdirectories of the intake directory
// where handled files are moved after a run.
const (
	processedDir = "processed"
	failedDir    = "failed"
)

// settleDelay is how long a file must sit unchanged before it is picked
// up, so half-copied uploads are not processed.
const settleDelay = 2 * time.Second

// planExtensions maps intake file extensions to upload MIME types.
var planExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

// fileState remembers a file's identity so rewrites are re-processed and
// unchanged files are not.
type fileState struct {
	modTime time.Time
	size    int64
}

// Watcher polls the intake directory for plan files and runs each new one
// through the pipeline. Processed files are moved aside so the directory
// stays readable as a queue.
type Watcher struct {
	cfg      *core.Config
	pipe     *pipeline.Pipeline
	shutdown *shutdown.Manager
	logger   *logging.Logger

	done    chan struct{}
	seen    map[string]fileState
	seenMux sync.Mutex
}

// NewWatcher creates a Watcher over the configured intake directory.
// logger must be non-nil.
func NewWatcher(cfg *core.Config, pipe *pipeline.Pipeline, sd *shutdown.Manager, logger *logging.Logger) *Watcher {
	logger = logger.Named("intake")
	return &Watcher{
		cfg:      cfg,
		pipe:     pipe,
		shutdown: sd,
		logger:   logger,
		done:     make(chan struct{}),
		seen:     make(map[string]fileState),
	}
}

// Done returns a channel closed when the watcher has stopped.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Start polls the intake directory until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer close(w.done)

	if err := os.MkdirAll(w.cfg.IntakeDir, 0o755); err != nil {
		w.logger.Error("cannot create intake directory",
			zap.String("directory", w.cfg.IntakeDir),
			zap.Error(err))
		return
	}

	w.logger.Info("watching intake directory",
		zap.String("directory", w.cfg.IntakeDir),
		zap.Duration("poll_interval", w.cfg.PollInterval))

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("intake watcher stopping")
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

// scan picks up every new, settled plan file in the intake directory.
func (w *Watcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.IntakeDir)
	if err != nil {
		w.logger.Error("failed to read intake directory", zap.Error(err))
		return
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		mime, ok := planExtensions[strings.ToLower(filepath.Ext(name))]
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) < settleDelay {
			continue
		}
		if !w.markSeen(name, info) {
			continue
		}

		w.processFile(ctx, name, mime)
	}
}

// markSeen records the file state and reports whether it is new or changed
// since the last scan.
func (w *Watcher) markSeen(name string, info os.FileInfo) bool {
	w.seenMux.Lock()
	defer w.seenMux.Unlock()

	prev, exists := w.seen[name]
	state := fileState{modTime: info.ModTime(), size: info.Size()}
	if exists && prev == state {
		return false
	}
	w.seen[name] = state
	return true
}

// processFile runs one intake file through the pipeline and moves it to
// the processed or failed subdirectory.
func (w *Watcher) processFile(ctx context.Context, name, mime string) {
	path := filepath.Join(w.cfg.IntakeDir, name)
	log := w.logger.With(zap.String("correlation_id", core.NewCorrelationID()))

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("failed to read intake file",
			zap.String("file", name),
			zap.Error(err))
		return
	}

	req := pipeline.Request{
		Upload: floorplan.ImageUpload{
			Data:     data,
			MimeType: mime,
			Filename: name,
		},
		Selections: w.loadSelections(name),
		Render: render.BatchRequest{
			Viewpoints: w.cfg.RenderViewpoints,
			Lighting:   w.cfg.RenderLighting,
			Quality:    w.cfg.RenderQuality,
		},
		Progress: func(completed, total int) {
			log.Debug("render progress",
				zap.String("file", name),
				zap.Int("completed", completed),
				zap.Int("total", total))
		},
	}

	runErr := w.shutdown.WrapOperation(ctx, "process-"+name, func(ctx context.Context) error {
		result, err := w.pipe.Process(ctx, req)
		if err != nil {
			return err
		}
		log.Info("intake file processed",
			zap.String("file", name),
			zap.String("session_id", result.SessionID),
			zap.Int("renders", len(result.Renders.Results)),
			zap.Int("render_failures", len(result.Renders.Failures)))
		return nil
	})

	if runErr != nil {
		log.Error("intake file failed",
			zap.String("file", name),
			zap.Error(runErr))
		w.moveFile(name, failedDir)
		return
	}
	w.moveFile(name, processedDir)
}

// loadSelections reads an optional "<file>.materials.json" sidecar that
// lists material selections for the plan. A missing or malformed sidecar
// means no materials are applied.
func (w *Watcher) loadSelections(planName string) []materials.Selection {
	sidecar := filepath.Join(w.cfg.IntakeDir, planName+".materials.json")
	data, err := os.ReadFile(sidecar)
	if err != nil {
		return nil
	}

	var selections []materials.Selection
	if err := json.Unmarshal(data, &selections); err != nil {
		w.logger.Warn("ignoring malformed materials sidecar",
			zap.String("file", filepath.Base(sidecar)),
			zap.Error(err))
		return nil
	}
	return selections
}

// moveFile relocates a handled intake file (and its sidecar, if any) into
// the named subdirectory.
func (w *Watcher) moveFile(name, subdir string) {
	dir := filepath.Join(w.cfg.IntakeDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.logger.Error("cannot create intake subdirectory",
			zap.String("directory", dir),
			zap.Error(err))
		return
	}

	src := filepath.Join(w.cfg.IntakeDir, name)
	dst := filepath.Join(dir, fmt.Sprintf("%s_%s", time.Now().Format("20060102T150405"), name))
	if err := os.Rename(src, dst); err != nil {
		w.logger.Error("failed to move intake file",
			zap.String("file", name),
			zap.Error(err))
		return
	}

	sidecar := filepath.Join(w.cfg.IntakeDir, name+".materials.json")
	if _, err := os.Stat(sidecar); err == nil {
		os.Rename(sidecar, dst+".materials.json")
	}

	w.seenMux.Lock()
	delete(w.seen, name)
	w.seenMux.Unlock()
}
