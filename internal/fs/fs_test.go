package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func TestWriteFileIsAtomicAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cam1_raw.png")
	o := New()

	if err := o.WriteFile(context.Background(), path, []byte("first")); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	if err := o.WriteFile(context.Background(), path, []byte("second")); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "second" {
		t.Fatalf("read back %q, %v", data, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left behind, found %d entries", len(entries))
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.png")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	o := New()
	if err := o.Remove(context.Background(), path); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if err := o.Remove(context.Background(), path); err != nil {
		t.Fatalf("second Remove returned error: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file still present: %v", err)
	}
}

func TestMkdirAllKeepsExistingContent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cam1", "2024-05-14")
	o := New()
	if err := o.MkdirAll(dir); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(dir, "keep.png")
	if err := os.WriteFile(keep, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := o.MkdirAll(dir); err != nil {
		t.Fatalf("second MkdirAll returned error: %v", err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("existing file lost: %v", err)
	}
}

func TestRemoveEmptyDir(t *testing.T) {
	root := t.TempDir()
	empty := filepath.Join(root, "empty")
	full := filepath.Join(root, "full")
	_ = os.Mkdir(empty, 0o755)
	_ = os.Mkdir(full, 0o755)
	_ = os.WriteFile(filepath.Join(full, "a"), nil, 0o644)

	o := New()
	if removed, err := o.RemoveEmptyDir(empty); err != nil || !removed {
		t.Fatalf("empty dir: removed=%v err=%v", removed, err)
	}
	if removed, err := o.RemoveEmptyDir(full); err != nil || removed {
		t.Fatalf("full dir: removed=%v err=%v", removed, err)
	}
	if removed, err := o.RemoveEmptyDir(filepath.Join(root, "missing")); err != nil || removed {
		t.Fatalf("missing dir: removed=%v err=%v", removed, err)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := retry(context.Background(), "op", func() error {
		calls++
		return os.ErrPermission
	})
	if err == nil || calls != 1 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func TestRetryRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := retry(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return syscall.EBUSY
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}
