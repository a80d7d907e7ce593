//go:build noopencv

package main

import (
	"errors"

	"github.com/raoulx24/camrelay/internal/crop"
	"github.com/raoulx24/camrelay/internal/errs"
	"github.com/raoulx24/camrelay/internal/registry"
)

// Builds tagged noopencv have no image backend; every capture keeps its raw
// screenshot uncropped and reports ErrCrop.
func newCropper() crop.Cropper {
	return unavailableCropper{}
}

type unavailableCropper struct{}

func (unavailableCropper) Crop(rawPath, _, _ string, _ map[string]registry.Region) ([]crop.Output, error) {
	return nil, errs.Wrap(errs.ErrCrop, "crop", "read", rawPath, errors.New("built without OpenCV (noopencv tag)"))
}
