package gui

import (
	"image"

	"gocv.io/x/gocv"
)

// matToImage converts a BGR Mat into a Go image for display. Empty or
// unconvertible Mats yield a small gray placeholder so the canvas never
// holds a nil image.
func matToImage(m gocv.Mat) image.Image {
	if !m.Empty() {
		if img, err := m.ToImage(); err == nil {
			return img
		}
	}
	placeholder := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range placeholder.Pix {
		placeholder.Pix[i] = 0x30
	}
	return placeholder
}
