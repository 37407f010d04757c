package shutdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCleanupTempUploads(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "temp_plan1.pdf"))
	writeFile(t, filepath.Join(dir, "temp_plan2.pdf"))
	writeFile(t, filepath.Join(dir, "keep.png"))

	fn := CleanupTempUploads(nil, dir)
	if err := fn(context.Background()); err != nil {
		t.Fatalf("cleanup returned error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "keep.png" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("remaining files = %v, want [keep.png]", names)
	}
}

func TestCleanupTempUploads_EmptyDir(t *testing.T) {
	fn := CleanupTempUploads(nil, t.TempDir())
	if err := fn(context.Background()); err != nil {
		t.Errorf("cleanup of empty dir returned error: %v", err)
	}
}

func TestCleanupTempUploads_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "temp_plan.pdf"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fn := CleanupTempUploads(nil, dir)
	if err := fn(ctx); err != nil {
		t.Errorf("cleanup with cancelled context returned error: %v", err)
	}
	// The file may remain; the sweep must simply not block shutdown.
}

func TestCleanupWorkDir(t *testing.T) {
	base := t.TempDir()
	workDir := filepath.Join(base, "work")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(workDir, "temp_plan.pdf"))
	writeFile(t, filepath.Join(workDir, "scene.json"))

	fn := CleanupWorkDir(nil, workDir)
	if err := fn(context.Background()); err != nil {
		t.Fatalf("cleanup returned error: %v", err)
	}

	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Errorf("work directory should be removed, stat err = %v", err)
	}
}

func TestCleanupWorkDir_MissingDir(t *testing.T) {
	fn := CleanupWorkDir(nil, filepath.Join(t.TempDir(), "never-created"))
	if err := fn(context.Background()); err != nil {
		t.Errorf("cleanup of missing dir returned error: %v", err)
	}
}
