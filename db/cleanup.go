package db

import (
	"context"
	"fmt"
	"time"
)

// CleanupResult holds statistics from one retention pass.
type CleanupResult struct {
	// SessionsDeleted is the number of expired sessions removed
	SessionsDeleted int64
	// RenderRecordsDeleted is the number of render records removed with them
	RenderRecordsDeleted int64
	// Duration is how long the cleanup took
	Duration time.Duration
}

// Cleanup deletes sessions older than retentionDays along with their render
// records, then runs VACUUM to reclaim disk space. Render outputs on disk
// are not touched here; the renders directory has its own lifecycle.
func (d *Database) Cleanup(retentionDays int) (CleanupResult, error) {
	return d.CleanupWithContext(context.Background(), retentionDays)
}

// CleanupWithContext is the context-aware version of Cleanup. The deletes
// run in one transaction; cancellation rolls back any pending changes.
func (d *Database) CleanupWithContext(ctx context.Context, retentionDays int) (CleanupResult, error) {
	start := time.Now()
	result := CleanupResult{}

	if retentionDays < 0 {
		return result, fmt.Errorf("retentionDays must be non-negative, got %d", retentionDays)
	}

	select {
	case <-ctx.Done():
		return result, ctx.Err()
	default:
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return result, fmt.Errorf("database connection is closed")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	cutoff := fmt.Sprintf("datetime('now', '-%d days')", retentionDays)

	// Render records first so the count is observable; the FK cascade would
	// otherwise delete them silently.
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM render_records
		WHERE session_id IN (SELECT id FROM sessions WHERE created_at < %s)`, cutoff))
	if err != nil {
		return result, fmt.Errorf("failed to delete expired render records: %w", err)
	}
	if result.RenderRecordsDeleted, err = res.RowsAffected(); err != nil {
		return result, fmt.Errorf("failed to count deleted render records: %w", err)
	}

	res, err = tx.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM sessions WHERE created_at < %s", cutoff))
	if err != nil {
		return result, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	if result.SessionsDeleted, err = res.RowsAffected(); err != nil {
		return result, fmt.Errorf("failed to count deleted sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit cleanup: %w", err)
	}
	tx = nil

	select {
	case <-ctx.Done():
		// Deletes committed, VACUUM skipped. Acceptable partial success.
		result.Duration = time.Since(start)
		return result, ctx.Err()
	default:
	}

	// VACUUM must run outside the transaction. Its failure is not critical,
	// the data is already gone.
	if _, err := d.db.ExecContext(ctx, "VACUUM"); err != nil {
		result.Duration = time.Since(start)
		return result, fmt.Errorf("cleanup succeeded but VACUUM failed: %w", err)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// CleanupSchedulerConfig configures the periodic retention pass.
type CleanupSchedulerConfig struct {
	// RetentionDays is how many days of sessions to keep
	RetentionDays int
	// Interval is how often to run cleanup
	Interval time.Duration
	// OnCleanup is called after each run (optional), for logging or metrics
	OnCleanup func(result CleanupResult, err error)
}

// DefaultCleanupSchedulerConfig keeps 30 days of sessions, cleaning daily.
func DefaultCleanupSchedulerConfig() CleanupSchedulerConfig {
	return CleanupSchedulerConfig{
		RetentionDays: 30,
		Interval:      24 * time.Hour,
	}
}

// StartCleanupScheduler runs Cleanup immediately and then at every interval
// until the context is cancelled.
func (d *Database) StartCleanupScheduler(ctx context.Context, config CleanupSchedulerConfig) {
	go func() {
		result, err := d.CleanupWithContext(ctx, config.RetentionDays)
		if config.OnCleanup != nil {
			config.OnCleanup(result, err)
		}

		ticker := time.NewTicker(config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				result, err := d.CleanupWithContext(ctx, config.RetentionDays)
				if config.OnCleanup != nil {
					config.OnCleanup(result, err)
				}
			}
		}
	}()
}
