// Package opencv is the gocv-backed crop.Cropper.
package opencv

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/raoulx24/camrelay/internal/crop"
	"github.com/raoulx24/camrelay/internal/errs"
	"github.com/raoulx24/camrelay/internal/registry"
)

type Cropper struct{}

func New() *Cropper {
	return &Cropper{}
}

// Crop implements crop.Cropper. Regions are processed in name order;
// rectangles are clamped to the frame.
func (Cropper) Crop(rawPath, base, format string, regions map[string]registry.Region) ([]crop.Output, error) {
	img := gocv.IMRead(rawPath, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, errs.Wrap(errs.ErrCrop, "crop", "read", rawPath, errors.New("image is empty or unreadable"))
	}

	frame := image.Rect(0, 0, img.Cols(), img.Rows())
	names := registry.Camera{Regions: regions}.RegionNames()

	var (
		out      []crop.Output
		failures []error
	)
	for _, name := range names {
		r := regions[name]
		rect, ok := crop.Clamp(r, frame)
		if !ok {
			failures = append(failures, errs.Wrap(errs.ErrCrop, "crop", "region", name,
				fmt.Errorf("rectangle x1=%d x2=%d y1=%d y2=%d outside frame %dx%d", r.X1, r.X2, r.Y1, r.Y2, frame.Dx(), frame.Dy())))
			continue
		}

		path := crop.RegionPath(base, name, format)
		sub := img.Region(rect)
		written := gocv.IMWrite(path, sub)
		sub.Close()
		if !written {
			failures = append(failures, errs.Wrap(errs.ErrCrop, "crop", "write", path, nil))
			continue
		}
		out = append(out, crop.OutputFor(name, r, path))
	}
	return out, errors.Join(failures...)
}
