package opencv

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// DebugFrame ist ein Frame mit eingezeichneten Gesichtsboxen
type DebugFrame struct {
	ID        string    // Eindeutige ID für das Bild
	Timestamp time.Time // Zeitstempel der Erkennung
	Detector  string    // haar oder dnn
	ImageData []byte    // JPEG mit eingezeichneten Erkennungen
	Faces     int       // Anzahl erkannter Gesichter
}

// DebugService speichert die letzten annotierten Frames im Speicher
type DebugService struct {
	frames     map[string]*DebugFrame // Map von Debug-Bildern, indiziert nach ID
	framesList []*DebugFrame          // Liste für zeitliche Sortierung
	maxFrames  int
	seq        int
	mutex      sync.RWMutex
}

// NewDebugService erstellt einen neuen Debug-Service
func NewDebugService(maxFrames int) *DebugService {
	if maxFrames <= 0 {
		maxFrames = 20 // Standardwert falls nicht angegeben
	}

	return &DebugService{
		frames:     make(map[string]*DebugFrame),
		framesList: make([]*DebugFrame, 0, maxFrames),
		maxFrames:  maxFrames,
	}
}

// AddFrame fügt ein neues Debug-Bild hinzu und gibt dessen ID zurück
func (s *DebugService) AddFrame(detector string, imgData []byte, faces int) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.seq++
	frame := &DebugFrame{
		ID:        fmt.Sprintf("frame-%d", s.seq),
		Timestamp: time.Now(),
		Detector:  detector,
		ImageData: imgData,
		Faces:     faces,
	}

	s.frames[frame.ID] = frame
	s.framesList = append(s.framesList, frame)

	// Liste auf maximale Größe begrenzen
	if len(s.framesList) > s.maxFrames {
		oldest := s.framesList[0]
		delete(s.frames, oldest.ID)
		s.framesList = s.framesList[1:]
	}

	log.Debugf("Debug-Bild hinzugefügt: %s mit %d Gesichtern", frame.ID, faces)
	return frame.ID
}

// GetLatestFrames gibt die neuesten Debug-Bilder zurück, älteste zuerst
func (s *DebugService) GetLatestFrames(count int) []*DebugFrame {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if count <= 0 || count > len(s.framesList) {
		count = len(s.framesList)
	}

	result := make([]*DebugFrame, count)
	copy(result, s.framesList[len(s.framesList)-count:])
	return result
}

// GetFrame gibt ein bestimmtes Bild anhand seiner ID zurück
func (s *DebugService) GetFrame(id string) *DebugFrame {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.frames[id]
}

// RegisterRoutes registriert die API-Routen für den Debug-Service
func (s *DebugService) RegisterRoutes(router gin.IRouter) {
	router.GET("/api/debug/frames", s.handleGetLatestFrames)
	router.GET("/api/debug/frames/:id", s.handleGetFrame)

	log.Infof("Debug-Routes registriert: /api/debug/frames, /api/debug/frames/:id")
}

// handleGetLatestFrames gibt die Metadaten der neuesten Debug-Bilder als JSON zurück
func (s *DebugService) handleGetLatestFrames(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", "10"))
	if err != nil {
		count = 10
	}

	type frameMetadata struct {
		ID        string    `json:"id"`
		Timestamp time.Time `json:"timestamp"`
		Detector  string    `json:"detector"`
		Faces     int       `json:"faces"`
		URL       string    `json:"url"`
	}

	frames := s.GetLatestFrames(count)
	metadata := make([]frameMetadata, len(frames))
	for i, f := range frames {
		metadata[i] = frameMetadata{
			ID:        f.ID,
			Timestamp: f.Timestamp,
			Detector:  f.Detector,
			Faces:     f.Faces,
			URL:       "/api/debug/frames/" + f.ID,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(metadata),
		"frames": metadata,
	})
}

// handleGetFrame gibt ein bestimmtes Bild als JPEG zurück
func (s *DebugService) handleGetFrame(c *gin.Context) {
	frame := s.GetFrame(c.Param("id"))
	if frame == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bild nicht gefunden", "requested_id": c.Param("id")})
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, "image/jpeg", frame.ImageData)
}
