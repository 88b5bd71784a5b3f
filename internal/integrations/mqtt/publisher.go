package mqtt

import (
	"context"

	"facesplit/internal/core/models"
	"facesplit/internal/core/processor"
)

// RunSummary is published to <topic>/run when a run finishes.
type RunSummary struct {
	RunID        uint                       `json:"run_id,omitempty"`
	VideoPath    string                     `json:"video_path"`
	Detector     string                     `json:"detector"`
	SegmentCount int                        `json:"segment_count"`
	DurationMs   int64                      `json:"duration_ms"`
	Modes        map[models.DisplayMode]int `json:"modes"`
}

// SegmentMessage is published to <topic>/segment for every result.
type SegmentMessage struct {
	RunID     uint                 `json:"run_id,omitempty"`
	VideoPath string               `json:"video_path"`
	Result    models.SegmentResult `json:"result"`
}

// ResultPublisher sends results to the broker as they are emitted.
type ResultPublisher struct {
	client *Client
}

// NewResultPublisher creates a sink on top of a started client.
func NewResultPublisher(client *Client) *ResultPublisher {
	return &ResultPublisher{client: client}
}

// RunStarted implements processor.ResultSink.
func (p *ResultPublisher) RunStarted(ctx context.Context, run *processor.RunInfo) error {
	return nil
}

// SegmentDone implements processor.ResultSink.
func (p *ResultPublisher) SegmentDone(ctx context.Context, run *processor.RunInfo, result models.SegmentResult) error {
	return p.client.Publish(p.client.Topic(SegmentSuffix), SegmentMessage{
		RunID:     run.ID,
		VideoPath: run.VideoPath,
		Result:    result,
	})
}

// RunFinished implements processor.ResultSink.
func (p *ResultPublisher) RunFinished(ctx context.Context, run *processor.RunInfo, results []models.SegmentResult) error {
	summary := RunSummary{
		RunID:        run.ID,
		VideoPath:    run.VideoPath,
		Detector:     run.Detector,
		SegmentCount: len(results),
		DurationMs:   run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
		Modes:        map[models.DisplayMode]int{models.ModeCenter: 0, models.ModeSplit: 0},
	}
	for _, r := range results {
		summary.Modes[r.Mode]++
	}
	return p.client.PublishRetain(p.client.Topic(RunSuffix), summary)
}
