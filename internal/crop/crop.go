// Package crop defines how named regions are cut out of a raw screenshot.
// The OpenCV implementation lives in crop/opencv so that callers which only
// need the contract build without cgo.
package crop

import (
	"image"

	"github.com/raoulx24/camrelay/internal/registry"
)

// Output is one region image written to disk.
type Output struct {
	Region string
	Alias  string
	Path   string
}

// Cropper writes one image per region next to base and reports which ones
// were produced. A region that cannot be cut is omitted and reported in the
// returned error; the other regions are still written.
type Cropper interface {
	Crop(rawPath, base, format string, regions map[string]registry.Region) ([]Output, error)
}

// Clamp intersects a region with the frame. ok is false when nothing of the
// region is left.
func Clamp(r registry.Region, frame image.Rectangle) (image.Rectangle, bool) {
	rect := image.Rect(r.X1, r.Y1, r.X2, r.Y2).Intersect(frame)
	return rect, !rect.Empty()
}

// RegionPath is the file a region of base is written to.
func RegionPath(base, region, format string) string {
	return base + "_" + region + format
}

// OutputFor builds the Output of a written region, falling back to the
// region name when it has no alias.
func OutputFor(name string, r registry.Region, path string) Output {
	alias := r.Alias
	if alias == "" {
		alias = name
	}
	return Output{Region: name, Alias: alias, Path: path}
}
