package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/raoulx24/camrelay/internal/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), config.LedgerConfig{Driver: "sqlite"}, t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	deadline := time.Date(2024, 5, 14, 12, 10, 0, 0, time.UTC)

	for i, status := range []string{StatusDelivered, StatusRetained} {
		err := s.Record(ctx, Entry{
			RunID:    "run-1",
			Deadline: deadline,
			FilePath: filepath.Join("/data", "cam1", string(rune('a'+i))+".png"),
			CameraID: "cam1",
			Region:   "1",
			Status:   status,
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 || entries[0].Status != StatusRetained {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if !entries[0].Deadline.Equal(deadline) || entries[0].RecordedAt.IsZero() {
		t.Fatalf("timestamps not round-tripped: %+v", entries[0])
	}
}

func TestRetainedUsesLatestOutcomePerFile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	record := func(path, status string) {
		t.Helper()
		if err := s.Record(ctx, Entry{RunID: "r", FilePath: path, CameraID: "cam1", Status: status, Error: "boom"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	record("/data/a.png", StatusRetained)
	record("/data/b.png", StatusRetained)
	record("/data/a.png", StatusDelivered)

	retained, err := s.Retained(ctx)
	if err != nil {
		t.Fatalf("Retained: %v", err)
	}
	if len(retained) != 1 || retained[0].FilePath != "/data/b.png" || retained[0].Error != "boom" {
		t.Fatalf("unexpected retained set %+v", retained)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.LedgerConfig{Driver: "mysql"}, t.TempDir()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: dialectPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("rebind = %q", got)
	}
	lite := &Store{dialect: dialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
}
