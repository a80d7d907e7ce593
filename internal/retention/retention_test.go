package retention

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raoulx24/camrelay/internal/config"
	"github.com/raoulx24/camrelay/internal/logging"
)

func newTestEngine(t *testing.T, root string) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = root
	cfg.Run.Timezone = "UTC"
	cfg.Run.JobType = config.JobSequential
	cfg.Registry.Cameras = []string{"cam1"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	e, err := New(&cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func mkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestSweepRemovesOnlyEmptyPastDays(t *testing.T) {
	root := t.TempDir()
	e := newTestEngine(t, root)
	now := time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)

	mkdir(t, filepath.Join(root, "cam1", "2024-05-12"))
	mkdir(t, filepath.Join(root, "cam1", "2024-05-13"))
	touch(t, filepath.Join(root, "cam1", "2024-05-13", "cam1_2024-05-13-10-00-00_1.png"))
	mkdir(t, filepath.Join(root, "cam1", "2024-05-14"))
	mkdir(t, filepath.Join(root, "cam1", "not-a-date"))

	removed, err := e.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	for dir, want := range map[string]bool{"2024-05-12": false, "2024-05-13": true, "2024-05-14": true, "not-a-date": true} {
		_, err := os.Stat(filepath.Join(root, "cam1", dir))
		if exists := err == nil; exists != want {
			t.Fatalf("%s exists=%v, want %v", dir, exists, want)
		}
	}
}

func TestMaybeSweepFollowsSchedule(t *testing.T) {
	root := t.TempDir()
	e := newTestEngine(t, root)
	now := time.Date(2024, 5, 14, 12, 10, 0, 0, time.UTC)

	mkdir(t, filepath.Join(root, "cam1", "2024-05-12"))
	if got := e.MaybeSweep(context.Background(), now); got != 1 {
		t.Fatalf("first sweep removed %d, want 1", got)
	}

	mkdir(t, filepath.Join(root, "cam1", "2024-05-11"))
	if got := e.MaybeSweep(context.Background(), now.Add(20*time.Minute)); got != 0 {
		t.Fatalf("sweep ran before the next hour: removed %d", got)
	}
	if got := e.MaybeSweep(context.Background(), now.Add(50*time.Minute)); got != 1 {
		t.Fatalf("scheduled sweep removed %d, want 1", got)
	}
}

func TestScanListsRegionImagesOldestFirst(t *testing.T) {
	root := t.TempDir()
	e := newTestEngine(t, root)

	mkdir(t, filepath.Join(root, "cam1", "2024-05-14"))
	mkdir(t, filepath.Join(root, "cam2", "2024-05-13"))
	touch(t, filepath.Join(root, "cam1", "2024-05-14", "cam1_2024-05-14-12-10-00_1.png"))
	touch(t, filepath.Join(root, "cam2", "2024-05-13", "cam2_2024-05-13-08-00-00_north.png"))
	touch(t, filepath.Join(root, "cam1", "cam1_raw.png"))
	touch(t, filepath.Join(root, "cam1", "2024-05-14", "notes.txt"))
	touch(t, filepath.Join(root, "ledger.db"))

	found, err := e.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("found %d images, want 2: %+v", len(found), found)
	}
	if found[0].Parsed.CameraID != "cam2" || found[0].Parsed.Region != "north" {
		t.Fatalf("unexpected first entry %+v", found[0])
	}
	if found[1].File.Name != "cam1_2024-05-14-12-10-00_1.png" {
		t.Fatalf("unexpected second entry %+v", found[1])
	}
}

func TestScanMissingRoot(t *testing.T) {
	e := newTestEngine(t, filepath.Join(t.TempDir(), "missing"))
	found, err := e.Scan()
	if err != nil || len(found) != 0 {
		t.Fatalf("Scan on missing root = %v, %v", found, err)
	}
}

func TestScanFindsRegionsWithUnderscores(t *testing.T) {
	root := t.TempDir()
	e := newTestEngine(t, root)

	day := filepath.Join(root, "cam1", "2025-01-01")
	mkdir(t, day)
	touch(t, filepath.Join(day, "cam1_2025-01-01-12-00-00_north_gate.png"))

	found, err := e.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(found) != 1 || found[0].Parsed.CameraID != "cam1" || found[0].Parsed.Region != "north_gate" {
		t.Fatalf("unexpected scan result %+v", found)
	}
}
