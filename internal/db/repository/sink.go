package repository

import (
	"context"
	"fmt"

	"facesplit/internal/core/models"
	"facesplit/internal/core/processor"
)

// StoreSink persists runs and their segment results.
type StoreSink struct {
	repo Repository
}

// NewStoreSink creates a result sink on top of repo.
func NewStoreSink(repo Repository) *StoreSink {
	return &StoreSink{repo: repo}
}

// RunStarted creates the run row and assigns run.ID.
func (s *StoreSink) RunStarted(ctx context.Context, run *processor.RunInfo) error {
	record := &models.AnalysisRun{
		VideoPath:    run.VideoPath,
		Detector:     run.Detector,
		SegmentCount: run.SegmentCount,
		StartedAt:    run.StartedAt,
	}
	if err := s.repo.CreateRun(record); err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}
	run.ID = record.ID
	return nil
}

// SegmentDone stores one result. Without a stored run it is skipped.
func (s *StoreSink) SegmentDone(ctx context.Context, run *processor.RunInfo, result models.SegmentResult) error {
	if run.ID == 0 {
		return fmt.Errorf("segment %d: run was not stored", result.SegmentIndex)
	}
	record, err := models.NewSegmentRecord(run.ID, result)
	if err != nil {
		return fmt.Errorf("failed to encode segment %d: %w", result.SegmentIndex, err)
	}
	if err := s.repo.SaveSegment(&record); err != nil {
		return fmt.Errorf("failed to store segment %d: %w", result.SegmentIndex, err)
	}
	return nil
}

// RunFinished records the finish time.
func (s *StoreSink) RunFinished(ctx context.Context, run *processor.RunInfo, results []models.SegmentResult) error {
	if run.ID == 0 {
		return nil
	}
	return s.repo.FinishRun(run.ID, run.FinishedAt)
}
