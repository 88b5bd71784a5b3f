package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"facesplit/internal/core/models"
	"facesplit/internal/core/processor"
	"facesplit/internal/db/repository"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Analyzer runs one analysis. Implemented by *processor.SegmentProcessor.
type Analyzer interface {
	Analyze(ctx context.Context, videoPath string, specs []models.SegmentSpec) (*processor.Report, error)
}

// APIHandler behandelt API-Anfragen für das System
type APIHandler struct {
	analyzer Analyzer
	repo     repository.Repository // nil, wenn der Store deaktiviert ist
	pool     *processor.WorkerPool
}

// NewAPIHandler erstellt einen neuen API-Handler
func NewAPIHandler(analyzer Analyzer, repo repository.Repository, pool *processor.WorkerPool) *APIHandler {
	return &APIHandler{
		analyzer: analyzer,
		repo:     repo,
		pool:     pool,
	}
}

// RegisterRoutes registriert alle API-Routen
func (h *APIHandler) RegisterRoutes(router *gin.RouterGroup) {
	// Analyse
	router.POST("/analyze", h.Analyze)

	// Gespeicherte Läufe
	router.GET("/runs", h.ListRuns)
	router.GET("/runs/:id", h.GetRun)

	// System
	router.GET("/status", h.GetStatus)
}

// AnalyzeRequest ist der Body von POST /api/analyze
type AnalyzeRequest struct {
	VideoPath string               `json:"video_path"`
	Segments  []models.SegmentSpec `json:"segments"`
}

// Analyze führt eine Segmentanalyse synchron aus
func (h *APIHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, processor.SegmentsError(err))
		return
	}
	if req.VideoPath == "" {
		writeError(c, http.StatusBadRequest, processor.NewInputError(processor.CodeInvalidArguments, errors.New("video_path is required")))
		return
	}

	report, err := h.analyzer.Analyze(c.Request.Context(), req.VideoPath, req.Segments)
	if err != nil {
		var inputErr *processor.InputError
		if errors.As(err, &inputErr) {
			status := http.StatusBadRequest
			if inputErr.Code == processor.CodeVideoNotFound {
				status = http.StatusNotFound
			}
			writeError(c, status, inputErr)
			return
		}
		log.Errorf("Analysis of %s failed: %v", req.VideoPath, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results := report.Results
	if results == nil {
		results = []models.SegmentResult{}
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":  report.Run.ID,
		"results": results,
	})
}

func writeError(c *gin.Context, status int, err *processor.InputError) {
	c.JSON(status, gin.H{"error": err.Error(), "code": err.Code})
}

// RunResponse ist die JSON-Darstellung eines gespeicherten Laufs
type RunResponse struct {
	ID           uint              `json:"id"`
	VideoPath    string            `json:"video_path"`
	Detector     string            `json:"detector"`
	SegmentCount int               `json:"segment_count"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   *time.Time        `json:"finished_at,omitempty"`
	Segments     []SegmentResponse `json:"segments,omitempty"`
}

// SegmentResponse ist ein gespeichertes Segmentergebnis
type SegmentResponse struct {
	SegmentIndex int                  `json:"segment_index"`
	Start        float64              `json:"start"`
	End          float64              `json:"end"`
	FaceCount    int                  `json:"face_count"`
	Mode         string               `json:"mode"`
	Boxes        []models.RelativeBox `json:"boxes"`
}

func toRunResponse(run models.AnalysisRun) (RunResponse, error) {
	resp := RunResponse{
		ID:           run.ID,
		VideoPath:    run.VideoPath,
		Detector:     run.Detector,
		SegmentCount: run.SegmentCount,
		StartedAt:    run.StartedAt,
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		resp.FinishedAt = &finished
	}
	for _, s := range run.Segments {
		boxes, err := s.DecodeBoxes()
		if err != nil {
			return RunResponse{}, err
		}
		resp.Segments = append(resp.Segments, SegmentResponse{
			SegmentIndex: s.SegmentIndex,
			Start:        s.StartSeconds,
			End:          s.EndSeconds,
			FaceCount:    s.FaceCount,
			Mode:         s.Mode,
			Boxes:        boxes,
		})
	}
	return resp, nil
}

// ListRuns gibt eine Liste der gespeicherten Läufe zurück
func (h *APIHandler) ListRuns(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store is disabled"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	runs, total, err := h.repo.GetRuns(limit, offset)
	if err != nil {
		log.Errorf("Failed to list runs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list runs"})
		return
	}

	items := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		item, err := toRunResponse(run)
		if err != nil {
			log.Errorf("Failed to decode run %d: %v", run.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode run"})
			return
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":   items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetRun gibt einen Lauf mit allen Segmenten zurück
func (h *APIHandler) GetRun(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store is disabled"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run ID"})
		return
	}

	run, err := h.repo.GetRunByID(uint(id))
	if err != nil {
		log.Errorf("Failed to load run %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	resp, err := toRunResponse(*run)
	if err != nil {
		log.Errorf("Failed to decode run %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode run"})
		return
	}
	c.JSON(http.StatusOK, resp)
}
