package db

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"
)

func newTestRepository(t *testing.T) (*Repository, *Database) {
	t.Helper()
	database := newTestDatabase(t)
	return NewRepository(database.DB(), nil, nil), database
}

func sampleSession(id string) *Session {
	return &Session{
		ID:             id,
		SourceFilename: "plan.png",
		Status:         StatusCreated,
	}
}

func TestSessionLifecycle(t *testing.T) {
	repo, _ := newTestRepository(t)

	session := sampleSession("sess-1")
	if err := repo.CreateSession(session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := repo.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.SourceFilename != "plan.png" {
		t.Errorf("SourceFilename = %q, want plan.png", got.SourceFilename)
	}
	if got.Status != StatusCreated {
		t.Errorf("Status = %q, want %q", got.Status, StatusCreated)
	}

	got.Provider = "offline"
	got.ModelID = "model-1"
	got.Status = StatusRendering
	got.ElementCount = 7
	got.SectionCount = 6
	if err := repo.UpdateSession(got); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	updated, err := repo.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession after update failed: %v", err)
	}
	if updated.ModelID != "model-1" || updated.ElementCount != 7 || updated.SectionCount != 6 {
		t.Errorf("update not persisted: %+v", updated)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Error("UpdatedAt should not precede CreatedAt")
	}

	if err := repo.UpdateSessionStatus("sess-1", StatusFailed, "render engine crashed"); err != nil {
		t.Fatalf("UpdateSessionStatus failed: %v", err)
	}
	failed, err := repo.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession after status update failed: %v", err)
	}
	if failed.Status != StatusFailed || failed.Error != "render engine crashed" {
		t.Errorf("status update not persisted: status=%q error=%q", failed.Status, failed.Error)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	repo, _ := newTestRepository(t)
	if _, err := repo.GetSession("missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("error = %v, want sql.ErrNoRows", err)
	}
}

func TestUpdateMissingSession(t *testing.T) {
	repo, _ := newTestRepository(t)
	if err := repo.UpdateSessionStatus("missing", StatusComplete, ""); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("error = %v, want sql.ErrNoRows", err)
	}
}

func TestCreateSessionRequiresID(t *testing.T) {
	repo, _ := newTestRepository(t)
	if err := repo.CreateSession(&Session{}); err == nil {
		t.Error("expected error for missing session id")
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	repo, _ := newTestRepository(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		s := sampleSession(fmt.Sprintf("sess-%d", i))
		s.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		s.UpdatedAt = s.CreatedAt
		if err := repo.CreateSession(s); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	sessions, err := repo.ListSessions(0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("sessions = %d, want 3", len(sessions))
	}
	if sessions[0].ID != "sess-2" || sessions[2].ID != "sess-0" {
		t.Errorf("order = [%s %s %s], want newest first",
			sessions[0].ID, sessions[1].ID, sessions[2].ID)
	}

	limited, err := repo.ListSessions(2)
	if err != nil {
		t.Fatalf("ListSessions with limit failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited sessions = %d, want 2", len(limited))
	}
}

func TestRenderRecordsAppendOnly(t *testing.T) {
	repo, _ := newTestRepository(t)

	if err := repo.CreateSession(sampleSession("sess-r")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	viewpoints := []string{"front", "back", "top"}
	for _, v := range viewpoints {
		err := repo.AppendRenderRecord(&RenderRecord{
			SessionID: "sess-r",
			ResultID:  "result-" + v,
			Viewpoint: v,
			Lighting:  "daylight",
			URL:       "renders/" + v + ".png",
			Format:    "png",
			Width:     1024,
			Height:    768,
		})
		if err != nil {
			t.Fatalf("AppendRenderRecord(%s) failed: %v", v, err)
		}
	}

	records, err := repo.ListRenderRecords("sess-r")
	if err != nil {
		t.Fatalf("ListRenderRecords failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	for i, v := range viewpoints {
		if records[i].Viewpoint != v {
			t.Errorf("record %d viewpoint = %q, want %q (insertion order)", i, records[i].Viewpoint, v)
		}
	}

	count, err := repo.CountRenderRecords("sess-r")
	if err != nil {
		t.Fatalf("CountRenderRecords failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestAppendRenderRecordAsync(t *testing.T) {
	database := newTestDatabase(t)

	writer := NewAsyncRenderWriter(database.DB(), nil)
	writer.Start()
	repo := NewRepository(database.DB(), writer, nil)

	if err := repo.CreateSession(sampleSession("sess-a")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		err := repo.AppendRenderRecord(&RenderRecord{
			SessionID: "sess-a",
			ResultID:  fmt.Sprintf("result-%d", i),
			Viewpoint: "front",
			Lighting:  "daylight",
			URL:       fmt.Sprintf("renders/%d.png", i),
			Format:    "png",
			Width:     512,
			Height:    512,
		})
		if err != nil {
			t.Fatalf("AppendRenderRecord failed: %v", err)
		}
	}

	// Stop drains the queue before returning.
	writer.Stop()

	count, err := repo.CountRenderRecords("sess-a")
	if err != nil {
		t.Fatalf("CountRenderRecords failed: %v", err)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5 after drain", count)
	}
}

func TestRenderRecordRequiresSession(t *testing.T) {
	repo, _ := newTestRepository(t)

	// Foreign keys are on; an orphan record must be rejected.
	err := repo.AppendRenderRecord(&RenderRecord{
		SessionID: "no-such-session",
		ResultID:  "r1",
		Viewpoint: "front",
		Lighting:  "daylight",
		URL:       "renders/x.png",
		Format:    "png",
		Width:     256,
		Height:    256,
	})
	if err == nil {
		t.Error("expected foreign key violation for orphan render record")
	}
}
