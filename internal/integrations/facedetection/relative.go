package facedetection

import (
	"image"

	"facesplit/internal/core/models"
)

// RelativeFromRect converts a pixel rectangle into a box relative to a
// width x height frame. Clamping to the unit square happens later in the
// box collector.
func RelativeFromRect(r image.Rectangle, width, height int) models.RelativeBox {
	if width <= 0 || height <= 0 {
		return models.RelativeBox{}
	}
	r = r.Canon()
	return models.RelativeBox{
		X:      float64(r.Min.X) / float64(width),
		Y:      float64(r.Min.Y) / float64(height),
		Width:  float64(r.Dx()) / float64(width),
		Height: float64(r.Dy()) / float64(height),
	}
}

// Limit trims a detection list to max entries. max <= 0 means no limit.
func Limit(d models.FrameDetection, max int) models.FrameDetection {
	if max > 0 && len(d) > max {
		return d[:max]
	}
	return d
}
