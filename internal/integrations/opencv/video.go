package opencv

import (
	"fmt"
	"image"

	"facesplit/internal/integrations/facedetection"

	log "github.com/sirupsen/logrus"
	gocv "gocv.io/x/gocv"
)

// VideoSource ist ein geöffnetes Video über gocv.VideoCapture
type VideoSource struct {
	path       string
	capture    *gocv.VideoCapture
	fps        float64
	width      int
	height     int
	frameCount int
	frame      gocv.Mat
}

// OpenVideo öffnet eine Videodatei zum wahlfreien Lesen einzelner Frames
func OpenVideo(path string) (*VideoSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("konnte Video nicht öffnen: %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("konnte Video nicht öffnen: %s", path)
	}

	src := &VideoSource{
		path:       path,
		capture:    capture,
		fps:        capture.Get(gocv.VideoCaptureFPS),
		width:      int(capture.Get(gocv.VideoCaptureFrameWidth)),
		height:     int(capture.Get(gocv.VideoCaptureFrameHeight)),
		frameCount: int(capture.Get(gocv.VideoCaptureFrameCount)),
		frame:      gocv.NewMat(),
	}

	log.Debugf("Video %s geöffnet: %dx%d, %.2f fps, %d Frames", path, src.width, src.height, src.fps, src.frameCount)
	return src, nil
}

// NewVideoOpener returns an opener backed by OpenVideo.
func NewVideoOpener() facedetection.VideoOpener {
	return facedetection.VideoOpenerFunc(func(path string) (facedetection.VideoSource, error) {
		return OpenVideo(path)
	})
}

// FPS gibt die gemeldete Framerate zurück, 0 wenn unbekannt
func (s *VideoSource) FPS() float64 {
	return s.fps
}

// FrameSize gibt die Framegröße in Pixeln zurück
func (s *VideoSource) FrameSize() (int, int) {
	return s.width, s.height
}

// ReadFrame springt zum Frame index und dekodiert ihn
func (s *VideoSource) ReadFrame(index int) (image.Image, error) {
	if index < 0 {
		return nil, fmt.Errorf("invalid frame index %d", index)
	}
	// Containers without a frame count report 0 or less; then only Read decides.
	if s.frameCount > 0 && index >= s.frameCount {
		return nil, fmt.Errorf("frame %d of %d: %w", index, s.frameCount, facedetection.ErrEndOfStream)
	}

	s.capture.Set(gocv.VideoCapturePosFrames, float64(index))
	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		return nil, fmt.Errorf("frame %d: %w", index, facedetection.ErrEndOfStream)
	}

	img, err := s.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("frame %d konnte nicht konvertiert werden: %w", index, err)
	}
	return img, nil
}

// Close gibt das Video frei
func (s *VideoSource) Close() error {
	s.frame.Close()
	return s.capture.Close()
}
