//go:build !noopencv

package main

import (
	"github.com/raoulx24/camrelay/internal/crop"
	"github.com/raoulx24/camrelay/internal/crop/opencv"
)

func newCropper() crop.Cropper {
	return opencv.New()
}
