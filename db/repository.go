package db

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"planforge/logging"
)

// Session statuses follow the pipeline stages in order. A session ends in
// either StatusComplete or StatusFailed.
const (
	StatusCreated       = "created"
	StatusAnalyzing     = "analyzing"
	StatusBuilding      = "building"
	StatusMaterializing = "materializing"
	StatusRendering     = "rendering"
	StatusComplete      = "complete"
	StatusFailed        = "failed"
)

// Session is one run of the asset pipeline: a floor plan upload and
// everything derived from it.
type Session struct {
	ID             string
	SourceFilename string
	// Provider is the AI backend that produced the analysis ("offline" for
	// the deterministic fallback, empty until analysis completes).
	Provider     string
	ModelID      string
	Status       string
	ElementCount int
	SectionCount int
	// Error holds the failure message when Status is StatusFailed.
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RenderRecord is one completed render output. Records are append-only:
// a render that happened is history and is never updated or deleted
// individually (retention cleanup removes whole sessions).
type RenderRecord struct {
	ID               int64
	SessionID        string
	ResultID         string
	Viewpoint        string
	Lighting         string
	URL              string
	Format           string
	Width            int
	Height           int
	FileSizeBytes    int64
	ProcessingTimeMS int64
	CreatedAt        time.Time
}

// Repository provides data access for sessions and render records.
//
// Render record appends can go through an optional AsyncWriter so the render
// loop never blocks on disk; when the writer is absent or its queue is full
// the append falls back to a synchronous insert.
type Repository struct {
	db     *sql.DB
	writer *AsyncWriter
	logger *logging.Logger
}

// NewRepository creates a repository over the given connection.
// writer and logger may be nil.
func NewRepository(db *sql.DB, writer *AsyncWriter, logger *logging.Logger) *Repository {
	if logger != nil {
		logger = logger.Named("db")
	}
	return &Repository{db: db, writer: writer, logger: logger}
}

// NewAsyncRenderWriter creates an AsyncWriter whose handler inserts render
// records against the given connection. Wire its result into NewRepository
// and call Start before rendering begins.
func NewAsyncRenderWriter(db *sql.DB, logger *logging.Logger) *AsyncWriter {
	return NewAsyncWriter(func(op WriteOperation) error {
		record, ok := op.Data.(*RenderRecord)
		if !ok {
			return fmt.Errorf("unexpected async payload %T", op.Data)
		}
		if err := insertRenderRecord(db, record); err != nil {
			if logger != nil {
				logger.Error("async render record insert failed",
					zap.String("session_id", record.SessionID),
					zap.Error(err))
			}
			return err
		}
		return nil
	})
}

// CreateSession inserts a new session. CreatedAt and UpdatedAt are set to
// the current time if zero.
func (r *Repository) CreateSession(s *Session) error {
	if s.ID == "" {
		return fmt.Errorf("session id is required")
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	if s.Status == "" {
		s.Status = StatusCreated
	}

	_, err := r.db.Exec(`
		INSERT INTO sessions (id, source_filename, provider, model_id, status,
		                      element_count, section_count, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.SourceFilename, s.Provider, s.ModelID, s.Status,
		s.ElementCount, s.SectionCount, s.Error, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", s.ID, err)
	}
	return nil
}

// UpdateSession persists the mutable fields of a session and refreshes
// UpdatedAt.
func (r *Repository) UpdateSession(s *Session) error {
	s.UpdatedAt = time.Now().UTC()

	result, err := r.db.Exec(`
		UPDATE sessions
		SET provider = ?, model_id = ?, status = ?, element_count = ?,
		    section_count = ?, error = ?, updated_at = ?
		WHERE id = ?`,
		s.Provider, s.ModelID, s.Status, s.ElementCount,
		s.SectionCount, s.Error, s.UpdatedAt, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", s.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of session %s: %w", s.ID, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateSessionStatus sets just the status (and error message, which may be
// empty) of a session.
func (r *Repository) UpdateSessionStatus(id, status, errorMessage string) error {
	result, err := r.db.Exec(`
		UPDATE sessions SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		status, errorMessage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update status of session %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of session %s: %w", id, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetSession returns the session with the given id, or sql.ErrNoRows.
func (r *Repository) GetSession(id string) (*Session, error) {
	row := r.db.QueryRow(`
		SELECT id, source_filename, provider, model_id, status,
		       element_count, section_count, error, created_at, updated_at
		FROM sessions WHERE id = ?`, id)

	s := &Session{}
	err := row.Scan(&s.ID, &s.SourceFilename, &s.Provider, &s.ModelID, &s.Status,
		&s.ElementCount, &s.SectionCount, &s.Error, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return s, nil
}

// ListSessions returns the most recent sessions, newest first.
// limit <= 0 means no limit.
func (r *Repository) ListSessions(limit int) ([]*Session, error) {
	query := `
		SELECT id, source_filename, provider, model_id, status,
		       element_count, section_count, error, created_at, updated_at
		FROM sessions ORDER BY created_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = r.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s := &Session{}
		if err := rows.Scan(&s.ID, &s.SourceFilename, &s.Provider, &s.ModelID, &s.Status,
			&s.ElementCount, &s.SectionCount, &s.Error, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// AppendRenderRecord records one completed render. With an async writer the
// append is queued and this returns immediately; without one, or when the
// queue is full, the insert happens synchronously.
func (r *Repository) AppendRenderRecord(record *RenderRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if r.writer != nil && r.writer.IsStarted() {
		if r.writer.Write(record) {
			return nil
		}
		if r.logger != nil {
			r.logger.Warn("async write queue full, falling back to sync insert",
				zap.String("session_id", record.SessionID))
		}
	}
	return insertRenderRecord(r.db, record)
}

// insertRenderRecord is the shared insert used by both the sync and async
// paths.
func insertRenderRecord(db *sql.DB, record *RenderRecord) error {
	result, err := db.Exec(`
		INSERT INTO render_records (session_id, result_id, viewpoint, lighting, url,
		                            format, width, height, file_size_bytes,
		                            processing_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.SessionID, record.ResultID, record.Viewpoint, record.Lighting, record.URL,
		record.Format, record.Width, record.Height, record.FileSizeBytes,
		record.ProcessingTimeMS, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert render record for session %s: %w",
			record.SessionID, err)
	}
	if id, err := result.LastInsertId(); err == nil {
		record.ID = id
	}
	return nil
}

// ListRenderRecords returns every render record for a session in insertion
// order.
func (r *Repository) ListRenderRecords(sessionID string) ([]*RenderRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, session_id, result_id, viewpoint, lighting, url,
		       format, width, height, file_size_bytes, processing_time_ms, created_at
		FROM render_records WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list render records for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var records []*RenderRecord
	for rows.Next() {
		rec := &RenderRecord{}
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.ResultID, &rec.Viewpoint, &rec.Lighting,
			&rec.URL, &rec.Format, &rec.Width, &rec.Height, &rec.FileSizeBytes,
			&rec.ProcessingTimeMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan render record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountRenderRecords returns how many renders a session has recorded.
func (r *Repository) CountRenderRecords(sessionID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM render_records WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count render records for session %s: %w", sessionID, err)
	}
	return count, nil
}
