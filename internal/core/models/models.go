package models

import (
	"encoding/json"

	"facesplit/internal/util/timestamp"
)

// DisplayMode ist das Layout, das der Renderer für ein Segment verwenden soll
type DisplayMode string

const (
	// ModeCenter: eine Person, zentrierter Ausschnitt
	ModeCenter DisplayMode = "CENTER"
	// ModeSplit: zwei Personen, geteilter Bildschirm
	ModeSplit DisplayMode = "SPLIT"
)

// TimeRange is a segment window in seconds.
type TimeRange struct {
	Start float64
	End   float64
}

// Duration returns End-Start, which may be zero or negative for degenerate input.
func (r TimeRange) Duration() float64 {
	return r.End - r.Start
}

// RelativeBox ist ein Gesichtsbereich relativ zur Bildgröße (0-1)
type RelativeBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the box.
func (b RelativeBox) Center() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// FrameSample is one frame position chosen by the sampler.
type FrameSample struct {
	Index int     // absolute frame index in the video
	Time  float64 // seconds
}

// FrameDetection holds the faces found in one frame, in detector order.
// An empty slice means no face was visible.
type FrameDetection []RelativeBox

// SegmentSpec is one input segment descriptor. Missing fields are nil.
type SegmentSpec struct {
	Start *timestamp.Value `json:"start,omitempty"`
	End   *timestamp.Value `json:"end,omitempty"`
}

// SegmentResult ist das Ergebnis für genau ein Segment
type SegmentResult struct {
	SegmentIndex int             `json:"segment_index"`
	Start        timestamp.Value `json:"start"`
	End          timestamp.Value `json:"end"`
	FaceCount    int             `json:"face_count"`
	Mode         DisplayMode     `json:"mode"`
	Boxes        []RelativeBox   `json:"boxes"`
}

// MarshalJSON always writes boxes as an array, never null.
func (r SegmentResult) MarshalJSON() ([]byte, error) {
	type alias SegmentResult
	a := alias(r)
	if a.Boxes == nil {
		a.Boxes = []RelativeBox{}
	}
	return json.Marshal(a)
}
