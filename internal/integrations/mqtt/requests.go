package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"facesplit/internal/core/models"
	"facesplit/internal/core/processor"

	log "github.com/sirupsen/logrus"
)

// Analyzer runs one analysis. Implemented by *processor.SegmentProcessor.
type Analyzer interface {
	Analyze(ctx context.Context, videoPath string, specs []models.SegmentSpec) (*processor.Report, error)
}

// AnalyzeRequest ist ein Analyseauftrag über MQTT
type AnalyzeRequest struct {
	RequestID string               `json:"request_id,omitempty"`
	VideoPath string               `json:"video_path"`
	Segments  []models.SegmentSpec `json:"segments"`
}

// ErrorMessage is published to <topic>/error when a request fails.
type ErrorMessage struct {
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error"`
}

// AnalyzeHandler runs requests received on <topic>/analyze. Results reach
// the broker through the ResultPublisher sink of the analyzer.
type AnalyzeHandler struct {
	client   *Client
	analyzer Analyzer
	timeout  time.Duration
}

// NewAnalyzeHandler creates a handler. timeout <= 0 means no deadline.
func NewAnalyzeHandler(client *Client, analyzer Analyzer, timeout time.Duration) *AnalyzeHandler {
	return &AnalyzeHandler{client: client, analyzer: analyzer, timeout: timeout}
}

// HandleMessage implements MessageHandler.
func (h *AnalyzeHandler) HandleMessage(topic string, payload []byte) {
	if topic != h.client.Topic(AnalyzeSuffix) {
		return
	}

	var req AnalyzeRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		h.fail(req.RequestID, processor.SegmentsError(fmt.Errorf("invalid request: %w", err)))
		return
	}
	if req.VideoPath == "" {
		h.fail(req.RequestID, processor.NewInputError(processor.CodeInvalidArguments, errors.New("video_path is required")))
		return
	}

	ctx := context.Background()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	log.WithFields(log.Fields{"request_id": req.RequestID, "video": req.VideoPath}).Info("Received MQTT analyze request")
	if _, err := h.analyzer.Analyze(ctx, req.VideoPath, req.Segments); err != nil {
		h.fail(req.RequestID, err)
	}
}

func (h *AnalyzeHandler) fail(requestID string, err error) {
	log.WithField("request_id", requestID).Warnf("MQTT analyze request failed: %v", err)
	if pubErr := h.client.Publish(h.client.Topic(ErrorSuffix), ErrorMessage{RequestID: requestID, Error: err.Error()}); pubErr != nil {
		log.Errorf("Failed to publish error: %v", pubErr)
	}
}
