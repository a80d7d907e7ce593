package artifact

import (
	"path/filepath"
	"strings"
	"time"
)

const rawSuffix = "_raw"

// Layout maps cameras and capture times onto the storage tree:
//
//	<root>/<camera>/<camera>_raw<format>                          raw screenshot
//	<root>/<camera>/<YYYY-MM-DD>/<camera>_<stamp>_<region><format> cropped region
type Layout struct {
	Root   string
	Format string
}

func (l Layout) CameraDir(camera string) string {
	return filepath.Join(l.Root, camera)
}

func (l Layout) DayDir(camera string, t time.Time) string {
	return filepath.Join(l.Root, camera, t.Format(DateLayout))
}

// RawPath is where the uncropped screenshot of camera is written. Each camera
// owns its own raw file so concurrent workers never share one.
func (l Layout) RawPath(camera string) string {
	return filepath.Join(l.CameraDir(camera), camera+rawSuffix+l.Format)
}

// BaseName is the path prefix shared by every region cropped from one
// capture.
func (l Layout) BaseName(camera string, t time.Time) string {
	return filepath.Join(l.DayDir(camera, t), camera+"_"+t.Format(StampLayout))
}

// RegionPath appends the region name and format to a base name.
func (l Layout) RegionPath(base, region string) string {
	return base + "_" + region + l.Format
}

// Parsed is what a region file name encodes.
type Parsed struct {
	CameraID string
	Captured time.Time
	Region   string
}

// ParseName decodes a region file name produced by RegionPath. The name is
// split on the first "_<stamp>_" it contains, so camera ids and region names
// may both contain underscores. Raw screenshots and foreign files carry no
// stamp and are rejected.
func (l Layout) ParseName(name string, loc *time.Location) (Parsed, bool) {
	if !strings.HasSuffix(name, l.Format) {
		return Parsed{}, false
	}
	stem := strings.TrimSuffix(name, l.Format)
	if loc == nil {
		loc = time.Local
	}

	stampLen := len(StampLayout)
	for i := 1; i+stampLen+2 < len(stem); i++ {
		if stem[i] != '_' || stem[i+stampLen+1] != '_' {
			continue
		}
		captured, err := time.ParseInLocation(StampLayout, stem[i+1:i+1+stampLen], loc)
		if err != nil {
			continue
		}
		return Parsed{
			CameraID: stem[:i],
			Captured: captured,
			Region:   stem[i+stampLen+2:],
		}, true
	}
	return Parsed{}, false
}
