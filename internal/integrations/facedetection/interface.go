package facedetection

import (
	"context"
	"errors"
	"image"

	"facesplit/internal/core/models"
)

// ProviderType definiert den Typ des Gesichtsdetektors
type ProviderType string

const (
	// ProviderHaar steht für die OpenCV Haar-Kaskade
	ProviderHaar ProviderType = "haar"

	// ProviderDNN steht für das OpenCV-DNN-Gesichtsmodell (SSD)
	ProviderDNN ProviderType = "dnn"

	// ProviderPigo steht für den reinen Go-Detektor pigo
	ProviderPigo ProviderType = "pigo"
)

// ErrEndOfStream signals a seek or read past the last frame.
var ErrEndOfStream = errors.New("end of stream")

// Detector definiert die Schnittstelle für Gesichtsdetektoren.
// Implementierungen müssen für parallele Aufrufe sicher sein.
type Detector interface {
	// GetProviderName gibt den Namen des Detektors zurück
	GetProviderName() ProviderType

	// DetectFaces findet Gesichter in einem Frame. Die Boxen sind relativ zur
	// Bildgröße; eine leere Liste bedeutet, dass kein Gesicht sichtbar ist.
	DetectFaces(ctx context.Context, frame image.Image) (models.FrameDetection, error)

	// Close gibt Modellressourcen frei
	Close() error
}

// VideoSource is one open, seekable handle on a video. Handles are not safe
// for concurrent use; every segment worker opens its own.
type VideoSource interface {
	// FPS returns the reported frame rate, <= 0 when unknown.
	FPS() float64

	// FrameSize returns the frame dimensions in pixels.
	FrameSize() (width, height int)

	// ReadFrame seeks to the absolute frame index and decodes it. Reads past
	// the end return ErrEndOfStream.
	ReadFrame(index int) (image.Image, error)

	Close() error
}

// VideoOpener opens video handles by path.
type VideoOpener interface {
	Open(path string) (VideoSource, error)
}

// VideoOpenerFunc adapts a plain function to VideoOpener.
type VideoOpenerFunc func(path string) (VideoSource, error)

// Open calls f(path).
func (f VideoOpenerFunc) Open(path string) (VideoSource, error) {
	return f(path)
}
