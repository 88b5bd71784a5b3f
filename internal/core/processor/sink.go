package processor

import (
	"context"
	"time"

	"facesplit/internal/core/models"
)

// RunInfo beschreibt einen Analyse-Lauf über ein Video
type RunInfo struct {
	ID           uint // wird vom Store gesetzt, sonst 0
	VideoPath    string
	Detector     string
	SegmentCount int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// ResultSink receives results as they are emitted. Calls for one run arrive
// from a single goroutine, in segment order. A sink error is logged and
// never stops the run.
type ResultSink interface {
	RunStarted(ctx context.Context, run *RunInfo) error
	SegmentDone(ctx context.Context, run *RunInfo, result models.SegmentResult) error
	RunFinished(ctx context.Context, run *RunInfo, results []models.SegmentResult) error
}

// Report is the outcome of one Analyze call.
type Report struct {
	Run     RunInfo
	Results []models.SegmentResult
}
