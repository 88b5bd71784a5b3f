package repository

import (
	"context"
	"testing"
	"time"

	"facesplit/internal/core/models"
	"facesplit/internal/core/processor"
	"facesplit/internal/db"
	"facesplit/internal/util/timestamp"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	conn, err := db.Open("file::memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return NewSQLiteRepository(conn)
}

func TestStoreSinkRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	sink := NewStoreSink(repo)
	ctx := context.Background()

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	run := &processor.RunInfo{VideoPath: "/videos/a.mp4", Detector: "haar", SegmentCount: 2, StartedAt: started}
	if err := sink.RunStarted(ctx, run); err != nil {
		t.Fatal(err)
	}
	if run.ID == 0 {
		t.Fatal("run id not assigned")
	}

	results := []models.SegmentResult{
		{SegmentIndex: 1, Start: timestamp.Seconds(10), End: timestamp.Seconds(20), FaceCount: 2, Mode: models.ModeSplit,
			Boxes: []models.RelativeBox{{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.3}, {X: 0.6, Y: 0.2, Width: 0.3, Height: 0.3}}},
		{SegmentIndex: 0, Start: timestamp.Seconds(0), End: timestamp.Seconds(10), FaceCount: 1, Mode: models.ModeCenter},
	}
	for _, r := range results {
		if err := sink.SegmentDone(ctx, run, r); err != nil {
			t.Fatal(err)
		}
	}
	run.FinishedAt = started.Add(time.Minute)
	if err := sink.RunFinished(ctx, run, results); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetRunByID(run.ID)
	if err != nil || got == nil {
		t.Fatalf("GetRunByID = %v, %v", got, err)
	}
	if got.VideoPath != "/videos/a.mp4" || got.SegmentCount != 2 || !got.FinishedAt.Equal(run.FinishedAt) {
		t.Errorf("run = %+v", got)
	}
	if len(got.Segments) != 2 || got.Segments[0].SegmentIndex != 0 || got.Segments[1].SegmentIndex != 1 {
		t.Fatalf("segments not ordered by index: %+v", got.Segments)
	}

	boxes, err := got.Segments[1].DecodeBoxes()
	if err != nil {
		t.Fatal(err)
	}
	if len(boxes) != 2 || boxes[1].X != 0.6 {
		t.Errorf("boxes = %+v", boxes)
	}
	if boxes, _ := got.Segments[0].DecodeBoxes(); boxes == nil || len(boxes) != 0 {
		t.Errorf("empty boxes = %#v", boxes)
	}
	if got.Segments[1].EndSeconds != 20 {
		t.Errorf("end = %v", got.Segments[1].EndSeconds)
	}

	stats, err := repo.GetStatistics()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Runs != 1 || stats.Segments != 2 || stats.SplitSegment != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestGetRunByIDUnknown(t *testing.T) {
	repo := newTestRepo(t)
	run, err := repo.GetRunByID(999)
	if err != nil || run != nil {
		t.Errorf("GetRunByID(999) = %v, %v, want nil, nil", run, err)
	}
	if err := repo.FinishRun(999, time.Now()); err == nil {
		t.Error("FinishRun on unknown run should fail")
	}
}

func TestGetRunsAndDeleteBefore(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		run := &models.AnalysisRun{VideoPath: "v.mp4", StartedAt: base.AddDate(0, 0, i*10)}
		if err := repo.CreateRun(run); err != nil {
			t.Fatal(err)
		}
		rec, err := models.NewSegmentRecord(run.ID, models.SegmentResult{Mode: models.ModeCenter, FaceCount: 1})
		if err != nil {
			t.Fatal(err)
		}
		if err := repo.SaveSegment(&rec); err != nil {
			t.Fatal(err)
		}
	}

	runs, total, err := repo.GetRuns(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(runs) != 2 || !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Errorf("GetRuns = %d of %d, newest first expected", len(runs), total)
	}

	deleted, err := repo.DeleteRunsBefore(base.AddDate(0, 0, 15))
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Errorf("deleted %d runs, want 2", deleted)
	}

	stats, err := repo.GetStatistics()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Runs != 1 || stats.Segments != 1 {
		t.Errorf("after cleanup stats = %+v", stats)
	}

	deleted, err = repo.DeleteRunsBefore(base)
	if err != nil || deleted != 0 {
		t.Errorf("second cleanup = %d, %v", deleted, err)
	}
}

func TestStoreSinkWithoutRun(t *testing.T) {
	sink := NewStoreSink(newTestRepo(t))
	err := sink.SegmentDone(context.Background(), &processor.RunInfo{}, models.SegmentResult{})
	if err == nil {
		t.Error("expected error for a run that was never stored")
	}
}
