package cleanup

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeDeleter struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (f *fakeDeleter) DeleteRunsBefore(cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	if f.err != nil {
		return 0, f.err
	}
	return 4, nil
}

func (f *fakeDeleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestNewServiceDisabled(t *testing.T) {
	if s := NewService(&fakeDeleter{}, 0, time.Hour); s != nil {
		t.Error("retention 0 should disable cleanup")
	}
	if s := NewService(nil, 30, time.Hour); s != nil {
		t.Error("nil repository should disable cleanup")
	}

	// nil receiver is safe
	var s *Service
	s.StartBackgroundCleanup()
	s.StopBackgroundCleanup()
	if n := s.RunCleanupCycle(); n != 0 {
		t.Errorf("nil service deleted %d", n)
	}
}

func TestRunCleanupCycleCutoff(t *testing.T) {
	repo := &fakeDeleter{}
	s := NewService(repo, 30, time.Hour)
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if n := s.RunCleanupCycle(); n != 4 {
		t.Errorf("deleted = %d, want 4", n)
	}
	want := time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC)
	if !repo.cutoffs[0].Equal(want) {
		t.Errorf("cutoff = %v, want %v", repo.cutoffs[0], want)
	}

	repo.err = errors.New("db locked")
	if n := s.RunCleanupCycle(); n != 0 {
		t.Errorf("failed cycle reported %d deletions", n)
	}
}

func TestBackgroundCleanupRunsAndStops(t *testing.T) {
	repo := &fakeDeleter{}
	s := NewService(repo, 7, 10*time.Millisecond)
	s.StartBackgroundCleanup()

	deadline := time.Now().Add(2 * time.Second)
	for repo.calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.StopBackgroundCleanup()
	s.StopBackgroundCleanup()

	if repo.calls() < 2 {
		t.Errorf("expected initial and scheduled cycle, got %d", repo.calls())
	}
}
