package fsprobe

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestProbeRejectsMissingDirectory(t *testing.T) {
	res := Probe(filepath.Join(t.TempDir(), "missing"), 50*time.Millisecond)
	if res.FsnotifySupported || res.Reason == "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestProbeRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if res := Probe(path, 50*time.Millisecond); res.FsnotifySupported {
		t.Fatalf("a file cannot be watched as a directory: %+v", res)
	}
}

func TestProbeLeavesNoFilesBehind(t *testing.T) {
	dir := t.TempDir()
	Probe(dir, DefaultTimeout)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("probe left %d entries behind", len(entries))
	}
}
