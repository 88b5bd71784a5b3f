package cleanup

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// RunDeleter removes stored runs started before a cutoff.
// Implemented by repository.SQLiteRepository.
type RunDeleter interface {
	DeleteRunsBefore(cutoff time.Time) (int64, error)
}

// Service handles the automatic cleanup of old analysis runs.
type Service struct {
	repo          RunDeleter
	retentionDays int
	checkInterval time.Duration
	now           func() time.Time
	stopChan      chan struct{} // Channel to signal stopping the background routine
}

// NewService creates a new cleanup service. It returns nil when cleanup is
// disabled; all methods accept a nil receiver.
func NewService(repo RunDeleter, retentionDays int, checkInterval time.Duration) *Service {
	if retentionDays <= 0 {
		log.Info("Automatic cleanup disabled (retention_days <= 0).")
		return nil
	}
	if repo == nil {
		log.Error("Cannot initialize cleanup service: repository is nil")
		return nil
	}
	if checkInterval <= 0 {
		checkInterval = 24 * time.Hour
	}
	log.Infof("Initializing cleanup service: RetentionDays=%d, CheckInterval=%s", retentionDays, checkInterval)
	return &Service{
		repo:          repo,
		retentionDays: retentionDays,
		checkInterval: checkInterval,
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}
}

// StartBackgroundCleanup starts a goroutine that periodically runs the cleanup cycle.
func (s *Service) StartBackgroundCleanup() {
	if s == nil {
		return // cleanup disabled
	}
	log.Info("Starting background cleanup routine...")

	ticker := time.NewTicker(s.checkInterval)

	go func() {
		defer ticker.Stop()

		// Run cleanup once immediately on start
		s.RunCleanupCycle()

		for {
			select {
			case <-ticker.C:
				log.Debug("Running scheduled cleanup cycle...")
				s.RunCleanupCycle()
			case <-s.stopChan:
				log.Info("Stopping background cleanup routine.")
				return
			}
		}
	}()
}

// StopBackgroundCleanup signals the background cleanup routine to stop.
func (s *Service) StopBackgroundCleanup() {
	if s == nil || s.stopChan == nil {
		return
	}
	select {
	case <-s.stopChan:
		// Already closed
	default:
		close(s.stopChan)
	}
}

// RunCleanupCycle deletes runs older than the retention period and returns
// how many were removed.
func (s *Service) RunCleanupCycle() int64 {
	if s == nil || s.retentionDays <= 0 {
		log.Debug("Skipping cleanup cycle: service not initialized or cleanup disabled.")
		return 0
	}

	cutoffTime := s.now().AddDate(0, 0, -s.retentionDays)
	log.Infof("Cleanup: Deleting runs started before %s", cutoffTime.Format(time.RFC3339))

	deleted, err := s.repo.DeleteRunsBefore(cutoffTime)
	if err != nil {
		log.Errorf("Cleanup: Failed to delete old runs: %v", err)
		return 0
	}

	if deleted == 0 {
		log.Info("Cleanup: No old runs found to delete.")
	} else {
		log.Infof("Cleanup cycle finished. Deleted %d run(s) with their segments", deleted)
	}
	return deleted
}
