package opencv

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"runtime"
	"strings"
	"sync"

	"facesplit/config"
	"facesplit/internal/core/models"
	"facesplit/internal/integrations/facedetection"

	log "github.com/sirupsen/logrus"
	gocv "gocv.io/x/gocv"
)

// DNN-Backend-Typen für die Konfiguration
const (
	BackendDefault = "default"
	BackendCUDA    = "cuda"
	BackendOpenCL  = "opencl"
	TargetDefault  = "default"
	TargetCPU      = "cpu"
	TargetCUDA     = "cuda"
	TargetOpenCL   = "opencl"
)

// Eingabegröße des res10-SSD-Gesichtsmodells
const (
	DefaultDNNWidth  = 300
	DefaultDNNHeight = 300
)

// FaceDetector implementiert die Gesichtserkennung mit OpenCV (Haar oder DNN)
type FaceDetector struct {
	cfg           config.DetectionConfig
	detectorType  facedetection.ProviderType
	classifier    gocv.CascadeClassifier // Haar-Kaskade
	dnnNet        gocv.Net               // SSD-Gesichtsmodell
	backend       gocv.NetBackendType
	target        gocv.NetTargetType
	minConfidence float64
	debugService  *DebugService // optional, nil = keine Visualisierung

	// CascadeClassifier und Net sind nicht threadsicher
	mutex  sync.Mutex
	closed bool
}

// NewHaarDetector lädt die Haar-Kaskade aus cfg.CascadePath
func NewHaarDetector(cfg config.DetectionConfig, debugSvc *DebugService) (*FaceDetector, error) {
	if !fileExists(cfg.CascadePath) {
		return nil, fmt.Errorf("Haar-Kaskade nicht gefunden: %s", cfg.CascadePath)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.CascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("konnte Haar-Kaskade nicht laden: %s", cfg.CascadePath)
	}

	log.Infof("Haar-Gesichtsdetektor initialisiert (%s)", cfg.CascadePath)
	return &FaceDetector{
		cfg:          cfg,
		detectorType: facedetection.ProviderHaar,
		classifier:   classifier,
		debugService: debugSvc,
	}, nil
}

// NewDNNDetector lädt das SSD-Gesichtsmodell aus cfg.ModelPath und cfg.ConfigPath
func NewDNNDetector(cfg config.DetectionConfig, debugSvc *DebugService) (*FaceDetector, error) {
	if !fileExists(cfg.ModelPath) || !fileExists(cfg.ConfigPath) {
		return nil, fmt.Errorf("DNN-Modelldateien nicht gefunden: %s oder %s", cfg.ModelPath, cfg.ConfigPath)
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("konnte DNN-Modell nicht laden: %s", cfg.ModelPath)
	}

	// Backend und Target basierend auf Konfiguration und Plattform wählen
	backend, target := getGPUBackend(cfg)
	if err := net.SetPreferableBackend(backend); err != nil {
		log.Warnf("DNN-Backend %d nicht verfügbar: %v", backend, err)
	}
	if err := net.SetPreferableTarget(target); err != nil {
		log.Warnf("DNN-Target %d nicht verfügbar: %v", target, err)
	}
	log.Infof("DNN-Gesichtsmodell geladen mit Backend %d und Target %d", backend, target)

	minConfidence := cfg.MinConfidence
	if minConfidence <= 0 {
		minConfidence = 0.5 // Standardwert, falls nicht konfiguriert
	}

	return &FaceDetector{
		cfg:           cfg,
		detectorType:  facedetection.ProviderDNN,
		dnnNet:        net,
		backend:       backend,
		target:        target,
		minConfidence: minConfidence,
		debugService:  debugSvc,
	}, nil
}

// getGPUBackend gibt das zu verwendende Backend und Target basierend auf der Konfiguration zurück
func getGPUBackend(cfg config.DetectionConfig) (gocv.NetBackendType, gocv.NetTargetType) {
	backend := gocv.NetBackendDefault
	target := gocv.NetTargetCPU

	if cfg.Backend == "" || cfg.Backend == BackendDefault {
		if !cfg.UseGPU {
			return backend, target
		}

		if haveNvidiaGPU() {
			log.Info("NVIDIA GPU erkannt, verwende CUDA-Backend")
			return gocv.NetBackendCUDA, gocv.NetTargetCUDA
		}

		// Für Apple Silicon ist derzeit die CPU-Variante am besten
		if runtime.GOOS == "darwin" && strings.HasPrefix(runtime.GOARCH, "arm") {
			log.Info("Apple Silicon erkannt, verwende CPU")
			return backend, target
		}

		log.Warn("GPU-Nutzung aktiviert, aber keine unterstützte GPU erkannt. Verwende CPU.")
		return backend, target
	}

	// Explizite Backend-Konfiguration
	switch cfg.Backend {
	case BackendCUDA:
		backend = gocv.NetBackendCUDA
	case BackendOpenCL:
		backend = gocv.NetBackendOpenCV
	default:
		log.Warnf("Unbekanntes Backend '%s' konfiguriert, verwende Standard", cfg.Backend)
	}

	switch cfg.Target {
	case TargetCUDA:
		target = gocv.NetTargetCUDA
	case TargetOpenCL:
		target = gocv.NetTargetFP32 // OpenCL-Target
	case TargetCPU, TargetDefault, "":
		target = gocv.NetTargetCPU
	default:
		log.Warnf("Unbekanntes Target '%s' konfiguriert, verwende CPU", cfg.Target)
	}

	return backend, target
}

// haveNvidiaGPU prüft, ob eine NVIDIA-GPU verfügbar ist
func haveNvidiaGPU() bool {
	if os.Getenv("NVIDIA_VISIBLE_DEVICES") != "" || os.Getenv("NVIDIA_DRIVER_CAPABILITIES") != "" {
		log.Debug("NVIDIA-Docker-Umgebung erkannt über Umgebungsvariablen")
		return true
	}

	paths := []string{
		"/usr/local/cuda/lib64/libcudart.so",
		"/usr/lib/x86_64-linux-gnu/libcuda.so",
		"/usr/lib/libcuda.so",
		"/usr/bin/nvidia-smi",
		"/usr/local/bin/nvidia-smi",
	}
	for _, path := range paths {
		if fileExists(path) {
			log.Debugf("CUDA-Komponente gefunden: %s", path)
			return true
		}
	}
	return false
}

// GetProviderName gibt den Namen des Detektors zurück
func (fd *FaceDetector) GetProviderName() facedetection.ProviderType {
	return fd.detectorType
}

// DetectFaces erkennt Gesichter in einem Frame
func (fd *FaceDetector) DetectFaces(ctx context.Context, frame image.Image) (models.FrameDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("frame konnte nicht konvertiert werden: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("leerer Frame")
	}

	imgWidth := img.Cols()
	imgHeight := img.Rows()

	// Bild für Performance skalieren wenn nötig
	processImg := img
	maxDimension := fd.cfg.MaxDimension
	if maxDimension > 0 && (imgWidth > maxDimension || imgHeight > maxDimension) {
		scale := float64(maxDimension) / float64(max(imgWidth, imgHeight))
		processImg = gocv.NewMat()
		defer processImg.Close()
		gocv.Resize(img, &processImg, image.Pt(int(float64(imgWidth)*scale), int(float64(imgHeight)*scale)), 0, 0, gocv.InterpolationLinear)
	}

	fd.mutex.Lock()
	defer fd.mutex.Unlock()
	if fd.closed {
		return nil, fmt.Errorf("detector %s is closed", fd.detectorType)
	}

	var rects []image.Rectangle
	switch fd.detectorType {
	case facedetection.ProviderHaar:
		rects = fd.detectHaar(processImg)
	case facedetection.ProviderDNN:
		rects = fd.detectDNN(processImg)
	}

	// Koordinaten beziehen sich auf das verkleinerte Bild
	faces := make(models.FrameDetection, 0, len(rects))
	for _, r := range rects {
		faces = append(faces, facedetection.RelativeFromRect(r, processImg.Cols(), processImg.Rows()))
	}
	faces = facedetection.Limit(faces, fd.cfg.MaxFaces)

	if fd.debugService != nil && len(rects) > 0 {
		fd.addDebugFrame(processImg, rects)
	}

	return faces, nil
}

func (fd *FaceDetector) detectHaar(img gocv.Mat) []image.Rectangle {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	gocv.EqualizeHist(gray, &gray)

	scale := fd.cfg.ScaleFactor
	if scale <= 1.0 {
		scale = 1.1
	}
	minSize := image.Pt(fd.cfg.MinSize, fd.cfg.MinSize)

	return fd.classifier.DetectMultiScaleWithParams(gray, scale, fd.cfg.MinNeighbors, 0, minSize, image.Pt(0, 0))
}

func (fd *FaceDetector) detectDNN(img gocv.Mat) []image.Rectangle {
	blob := gocv.BlobFromImage(
		img,
		1.0,
		image.Pt(DefaultDNNWidth, DefaultDNNHeight),
		gocv.NewScalar(104.0, 177.0, 123.0, 0), // Mittelwerte des res10-Modells
		false,
		false,
	)
	defer blob.Close()

	fd.dnnNet.SetInput(blob, "")
	prob := fd.dnnNet.Forward("")
	defer prob.Close()

	// Ausgabe [1, 1, N, 7]: pro Zeile img_id, class_id, confidence, left, top, right, bottom
	detections := gocv.GetBlobChannel(prob, 0, 0)
	defer detections.Close()

	width := float32(img.Cols())
	height := float32(img.Rows())

	var rects []image.Rectangle
	for r := 0; r < detections.Rows(); r++ {
		confidence := detections.GetFloatAt(r, 2)
		if float64(confidence) < fd.minConfidence {
			continue
		}
		left := int(detections.GetFloatAt(r, 3) * width)
		top := int(detections.GetFloatAt(r, 4) * height)
		right := int(detections.GetFloatAt(r, 5) * width)
		bottom := int(detections.GetFloatAt(r, 6) * height)
		rects = append(rects, image.Rect(left, top, right, bottom))
	}
	return rects
}

// addDebugFrame zeichnet die erkannten Gesichter ein und legt das Bild im Debug-Service ab
func (fd *FaceDetector) addDebugFrame(img gocv.Mat, rects []image.Rectangle) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Panic bei der Visualisierung: %v", r)
		}
	}()

	visImg := img.Clone()
	defer visImg.Close()

	red := color.RGBA{255, 0, 0, 0}
	green := color.RGBA{0, 255, 0, 0}
	for i, r := range rects {
		gocv.Rectangle(&visImg, r, red, 2)
		gocv.PutText(&visImg, fmt.Sprintf("Face %d", i+1), image.Pt(r.Min.X, r.Min.Y-5), gocv.FontHersheyPlain, 1.2, green, 2)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, visImg)
	if err != nil {
		log.Errorf("Konnte Debug-Bild nicht encodieren: %v", err)
		return
	}
	defer buf.Close()

	// GetBytes zeigt in nativen Speicher, der mit buf freigegeben wird
	data := append([]byte(nil), buf.GetBytes()...)
	fd.debugService.AddFrame(string(fd.detectorType), data, len(rects))
}

// Close gibt Ressourcen frei
func (fd *FaceDetector) Close() error {
	fd.mutex.Lock()
	defer fd.mutex.Unlock()

	if fd.closed {
		return nil
	}
	fd.closed = true

	switch fd.detectorType {
	case facedetection.ProviderHaar:
		return fd.classifier.Close()
	case facedetection.ProviderDNN:
		return fd.dnnNet.Close()
	}
	return nil
}

// Hilfsfunktion zur Überprüfung, ob eine Datei existiert
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
