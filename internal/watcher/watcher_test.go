package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raoulx24/camrelay/internal/config"
	"github.com/raoulx24/camrelay/internal/logging"
	"github.com/raoulx24/camrelay/internal/mailbox"
	"github.com/raoulx24/camrelay/internal/registry"
)

const oneCamera = `{"cam1": {"link": "https://cams.example/1", "play_element": "p", "element_type": "ID",
  "dimensions": {"1": {"x1": 0, "x2": 10, "y1": 0, "y2": 10}}}}`

const twoCameras = `{"cam1": {"link": "https://cams.example/1b", "play_element": "p", "element_type": "ID",
  "dimensions": {"1": {"x1": 0, "x2": 10, "y1": 0, "y2": 10}}},
 "cam2": {"link": "https://cams.example/2", "play_element": "p", "element_type": "ID",
  "dimensions": {"1": {"x1": 0, "x2": 10, "y1": 0, "y2": 10}}}}`

func writeRegistry(t *testing.T, path, doc string, mod time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func newTestWatcher(t *testing.T, ids []string, check CheckFunc) (*Watcher, string, *mailbox.Mailbox[[]registry.Camera]) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cameras.json")
	writeRegistry(t, path, oneCamera, time.Now().Add(-time.Hour))

	mb := mailbox.New[[]registry.Camera]()
	cfg := config.RegistryConfig{
		Path:    path,
		Cameras: ids,
		Watch:   config.WatchConfig{Mode: "poll", PollInterval: 10 * time.Millisecond, StabilityWindow: time.Millisecond},
	}
	return New(cfg, logging.NewNop(), mb, check), path, mb
}

func TestDetectIgnoresUnchangedFile(t *testing.T) {
	w, _, mb := newTestWatcher(t, []string{"cam1"}, nil)
	w.detect()
	if mb.Pending() {
		t.Fatal("unchanged registry must not be published")
	}
}

func TestDetectPublishesChangedRegistry(t *testing.T) {
	w, path, mb := newTestWatcher(t, []string{"cam1", "cam2"}, nil)
	writeRegistry(t, path, twoCameras, time.Now())

	w.detect()
	got := mb.TryTake()
	if got == nil {
		t.Fatal("expected reloaded camera set")
	}
	cams := *got
	if len(cams) != 2 || cams[0].ID != "cam1" || cams[0].Link != "https://cams.example/1b" {
		t.Fatalf("unexpected camera set %+v", cams)
	}
}

func TestDetectRejectsInvalidReload(t *testing.T) {
	w, path, mb := newTestWatcher(t, []string{"cam1"}, nil)
	writeRegistry(t, path, `{"cam1": {"link": ""}}`, time.Now())

	w.detect()
	if mb.Pending() {
		t.Fatal("invalid registry must not be published")
	}
}

func TestDetectRejectsMissingSelection(t *testing.T) {
	w, path, mb := newTestWatcher(t, []string{"cam1", "cam9"}, nil)
	writeRegistry(t, path, twoCameras, time.Now())

	w.detect()
	if mb.Pending() {
		t.Fatal("registry without a selected camera must not be published")
	}
}

func TestDetectAppliesCheck(t *testing.T) {
	reject := func([]registry.Camera) error { return errors.New("too many cameras") }
	w, path, mb := newTestWatcher(t, []string{"cam1", "cam2"}, reject)
	writeRegistry(t, path, twoCameras, time.Now())

	w.detect()
	if mb.Pending() {
		t.Fatal("camera set failing the check must not be published")
	}
}

func TestStartPollingPicksUpChange(t *testing.T) {
	w, path, mb := newTestWatcher(t, []string{"cam1", "cam2"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	writeRegistry(t, path, twoCameras, time.Now())

	deadline := time.Now().Add(2 * time.Second)
	for !mb.Pending() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if !mb.Pending() {
		t.Fatal("poller did not publish the change")
	}
}

func TestStartRejectsUnknownMode(t *testing.T) {
	w, _, _ := newTestWatcher(t, []string{"cam1"}, nil)
	w.mode = "inotify"
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestStartFsNotifyDebouncesChanges(t *testing.T) {
	w, path, mb := newTestWatcher(t, []string{"cam1", "cam2"}, nil)
	w.mode = "fsnotify"
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	writeRegistry(t, path, twoCameras, time.Now())

	deadline := time.Now().Add(3 * time.Second)
	for !mb.Pending() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	cams := mb.TryTake()
	if cams == nil || len(*cams) != 2 {
		t.Fatalf("fsnotify watcher did not publish the reloaded set: %v", cams)
	}
}
