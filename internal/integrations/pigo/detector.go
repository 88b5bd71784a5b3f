// Package pigo adapts the pure-Go pigo cascade detector to the face detector
// interface. It needs no cgo and no OpenCV installation.
package pigo

import (
	"context"
	"fmt"
	"image"
	"os"
	"sort"

	"facesplit/config"
	"facesplit/internal/core/models"
	"facesplit/internal/integrations/facedetection"

	"github.com/disintegration/imaging"
	pigo "github.com/esimov/pigo/core"
	log "github.com/sirupsen/logrus"
)

const (
	shiftFactor = 0.1
	scaleFactor = 1.1
	maxFaceSize = 1000
)

// Detector runs the facefinder cascade on downscaled grayscale frames.
type Detector struct {
	classifier *pigo.Pigo
	cfg        config.DetectionConfig
}

// NewDetector reads and unpacks the cascade at cfg.PigoCascadePath.
func NewDetector(cfg config.DetectionConfig) (*Detector, error) {
	cascade, err := os.ReadFile(cfg.PigoCascadePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}
	return NewDetectorFromBytes(cascade, cfg)
}

// NewDetectorFromBytes unpacks a cascade already in memory.
func NewDetectorFromBytes(cascade []byte, cfg config.DetectionConfig) (*Detector, error) {
	if len(cascade) == 0 {
		return nil, fmt.Errorf("failed to unpack cascade: empty cascade")
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}

	log.Infof("Pigo face detector initialized (minSize: %d, qualityThreshold: %.1f)", cfg.MinSize, cfg.PigoQualityThreshold)
	return &Detector{classifier: classifier, cfg: cfg}, nil
}

// GetProviderName implements facedetection.Detector.
func (d *Detector) GetProviderName() facedetection.ProviderType {
	return facedetection.ProviderPigo
}

// DetectFaces finds faces in frame. RunCascade only reads the unpacked
// cascade, so concurrent calls need no lock.
func (d *Detector) DetectFaces(ctx context.Context, frame image.Image) (models.FrameDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := frame.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	src := frame
	if maxDim := d.cfg.MaxDimension; maxDim > 0 && (bounds.Dx() > maxDim || bounds.Dy() > maxDim) {
		src = imaging.Fit(frame, maxDim, maxDim, imaging.Linear)
	}

	nrgba := pigo.ImgToNRGBA(src)
	cols, rows := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()

	minSize := d.cfg.MinSize
	if minSize <= 0 {
		minSize = 20
	}

	params := pigo.CascadeParams{
		MinSize:     minSize,
		MaxSize:     maxFaceSize,
		ShiftFactor: shiftFactor,
		ScaleFactor: scaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(nrgba),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	// 0.0 = keine Rotation der Kaskade
	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.cfg.PigoIoUThreshold)

	faces := facesFromDetections(dets, cols, rows, d.cfg.PigoQualityThreshold)
	return facedetection.Limit(faces, d.cfg.MaxFaces), nil
}

// Close is a no-op; the cascade is plain Go memory.
func (d *Detector) Close() error {
	return nil
}

// facesFromDetections drops detections below minQuality and converts the
// rest, best first. Pigo reports a center (Row, Col) and a diameter (Scale).
func facesFromDetections(dets []pigo.Detection, width, height int, minQuality float64) models.FrameDetection {
	kept := make([]pigo.Detection, 0, len(dets))
	for _, det := range dets {
		if float64(det.Q) >= minQuality {
			kept = append(kept, det)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Q > kept[j].Q })

	faces := make(models.FrameDetection, 0, len(kept))
	for _, det := range kept {
		half := det.Scale / 2
		r := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half)
		faces = append(faces, facedetection.RelativeFromRect(r, width, height))
	}
	return faces
}
