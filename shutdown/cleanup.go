package shutdown

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"planforge/core"
	"planforge/logging"
)

// CleanupTempUploads returns a shutdown function that removes temporary
// upload files from the work directory. The pipeline writes uploaded PDFs
// to "temp_*" files so the text extractor can open them by path; this
// sweeps up whatever a crash or cancellation left behind.
//
// Priority recommendation: 40+ (after services and the database are down).
//
// The returned function never fails the shutdown sequence: removal errors
// are logged and nil is returned.
//
// Usage:
//
//	manager.Register("cleanup-uploads", 45, shutdown.CleanupTempUploads(logger, cfg.WorkDir))
func CleanupTempUploads(logger *logging.Logger, workDir string) core.ShutdownFunc {
	return func(ctx context.Context) error {
		return removeTempFiles(ctx, logger, workDir)
	}
}

// CleanupWorkDir returns a shutdown function that removes temporary upload
// files and then the work directory itself. Use it when the work directory
// is transient and should not survive between runs.
//
// Priority recommendation: 45+ (very last).
//
// Usage:
//
//	manager.Register("cleanup-workdir", 50, shutdown.CleanupWorkDir(logger, cfg.WorkDir))
func CleanupWorkDir(logger *logging.Logger, workDir string) core.ShutdownFunc {
	return func(ctx context.Context) error {
		if err := removeTempFiles(ctx, logger, workDir); err != nil {
			logWarnNamed(logger, "temp file cleanup failed, still removing work directory",
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			logWarnNamed(logger, "shutdown deadline reached, keeping work directory")
			return nil
		default:
		}
		return removeWorkDir(logger, workDir)
	}
}

// removeTempFiles deletes "temp_*" files in workDir. Individual failures
// are logged and skipped; the sweep keeps going.
func removeTempFiles(ctx context.Context, logger *logging.Logger, workDir string) error {
	pattern := filepath.Join(workDir, "temp_*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		logErrorNamed(logger, "failed to list temporary upload files",
			zap.String("pattern", pattern),
			zap.Error(err))
		return nil
	}
	if len(matches) == 0 {
		return nil
	}

	logInfoNamed(logger, "removing temporary upload files",
		zap.Int("file_count", len(matches)))

	var removed, failed int
	for _, match := range matches {
		select {
		case <-ctx.Done():
			logWarnNamed(logger, "shutdown deadline reached during temp file cleanup",
				zap.Int("removed", removed),
				zap.Int("remaining", len(matches)-removed-failed))
			return nil
		default:
		}

		if err := os.Remove(match); err != nil {
			failed++
			logWarnNamed(logger, "failed to remove temporary upload file",
				zap.String("file", filepath.Base(match)),
				zap.Error(err))
			continue
		}
		removed++
	}

	logInfoNamed(logger, "temp file cleanup complete",
		zap.Int("removed", removed),
		zap.Int("failed", failed))
	return nil
}

// removeWorkDir removes the work directory and its contents. A missing
// directory is not an error.
func removeWorkDir(logger *logging.Logger, workDir string) error {
	info, err := os.Stat(workDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		logErrorNamed(logger, "failed to stat work directory",
			zap.String("directory", workDir),
			zap.Error(err))
		return nil
	}
	if !info.IsDir() {
		logWarnNamed(logger, "work path is not a directory",
			zap.String("path", workDir))
		return nil
	}

	if err := os.RemoveAll(workDir); err != nil {
		logErrorNamed(logger, "failed to remove work directory",
			zap.String("directory", workDir),
			zap.Error(err))
		return nil
	}

	logInfoNamed(logger, "removed work directory", zap.String("directory", workDir))
	return nil
}

func logInfoNamed(logger *logging.Logger, msg string, fields ...zap.Field) {
	if logger != nil {
		logger.Info(msg, fields...)
	}
}

func logWarnNamed(logger *logging.Logger, msg string, fields ...zap.Field) {
	if logger != nil {
		logger.Warn(msg, fields...)
	}
}

func logErrorNamed(logger *logging.Logger, msg string, fields ...zap.Field) {
	if logger != nil {
		logger.Error(msg, fields...)
	}
}
