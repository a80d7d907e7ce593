// Package artifact describes cropped images awaiting delivery and where they
// live on disk.
package artifact

import (
	"os"
	"path/filepath"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	TimeLayout  = "15-04-05"
	StampLayout = "2006-01-02-15-04-05"
)

// Descriptor is one cropped region image plus the metadata sent with it.
// It is handed from a capture worker to the drainer through the result queue.
type Descriptor struct {
	FilePath    string
	CameraAlias string
	CaptureDate string
	CaptureTime string

	// Context for logs and the delivery ledger; not sent to the backend.
	CameraID string
	Region   string
	Deadline time.Time
}

// NewDescriptor stamps a region image with the capture time.
func NewDescriptor(path, cameraID, region, alias string, captured time.Time) Descriptor {
	if alias == "" {
		alias = region
	}
	return Descriptor{
		FilePath:    path,
		CameraAlias: alias,
		CaptureDate: captured.Format(DateLayout),
		CaptureTime: captured.Format(TimeLayout),
		CameraID:    cameraID,
		Region:      region,
		Deadline:    captured,
	}
}

// Name is the file name without directories.
func (d Descriptor) Name() string {
	return filepath.Base(d.FilePath)
}

// File describes an artifact found on disk.
type File struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// FromFileInfo constructs a File from a path and os.FileInfo.
func FromFileInfo(path string, info os.FileInfo) File {
	return File{
		Path:    path,
		Name:    filepath.Base(path),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}
