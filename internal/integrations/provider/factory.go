package provider

import (
	"fmt"

	"facesplit/config"
	"facesplit/internal/integrations/facedetection"
	"facesplit/internal/integrations/opencv"
	"facesplit/internal/integrations/pigo"

	log "github.com/sirupsen/logrus"
)

// CreateDetector erstellt den konfigurierten Gesichtsdetektor.
// debugSvc darf nil sein; nur die OpenCV-Detektoren nutzen ihn.
func CreateDetector(cfg *config.Config, debugSvc *opencv.DebugService) (facedetection.Detector, error) {
	det := cfg.Detection

	switch det.Method {
	case config.MethodHaar:
		log.Info("Verwende OpenCV Haar-Kaskade als Gesichtsdetektor")
		return opencv.NewHaarDetector(det, debugSvc)
	case config.MethodDNN:
		log.Info("Verwende OpenCV DNN als Gesichtsdetektor")
		return opencv.NewDNNDetector(det, debugSvc)
	case config.MethodPigo:
		if debugSvc != nil {
			log.Debug("Debug-Frames werden vom pigo-Detektor nicht erzeugt")
		}
		log.Info("Verwende pigo als Gesichtsdetektor")
		return pigo.NewDetector(det)
	default:
		return nil, fmt.Errorf("unbekannter Detektor: %q", det.Method)
	}
}

// CreateVideoOpener liefert den Videozugriff über gocv
func CreateVideoOpener() facedetection.VideoOpener {
	return opencv.NewVideoOpener()
}
