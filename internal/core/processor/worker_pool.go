package processor

import (
	"context"
	"sync"
	"time"

	"facesplit/internal/core/models"

	log "github.com/sirupsen/logrus"
)

// WorkerPool verwaltet einen Pool von Worker-Goroutinen für die Segmentverarbeitung
type WorkerPool struct {
	processor       *SegmentProcessor
	jobs            chan *segmentJob
	workerCount     int
	activeJobs      int
	activeJobsMutex sync.Mutex
	shutdown        chan struct{}
	shutdownOnce    sync.Once
}

// segmentJob repräsentiert einen Segmentjob
type segmentJob struct {
	ctx       context.Context
	videoPath string
	input     segmentInput
	fps       float64
	resultCh  chan models.SegmentResult // Individueller Ergebniskanal pro Job
}

// NewWorkerPool erstellt einen neuen Worker-Pool mit workerCount Workern
func NewWorkerPool(processor *SegmentProcessor, workerCount int) *WorkerPool {
	workerCount = max(1, workerCount)

	log.Infof("Initializing segment worker pool with %d workers", workerCount)

	pool := &WorkerPool{
		processor:   processor,
		jobs:        make(chan *segmentJob, workerCount*2), // Puffer für Jobs
		workerCount: workerCount,
		shutdown:    make(chan struct{}),
	}

	pool.startWorkers()

	return pool
}

// startWorkers startet die Worker-Goroutinen
func (p *WorkerPool) startWorkers() {
	for i := 0; i < p.workerCount; i++ {
		go func(workerID int) {
			log.Debugf("Worker %d started", workerID)

			for {
				select {
				case <-p.shutdown:
					log.Debugf("Worker %d received shutdown signal", workerID)
					return
				default:
				}

				select {
				case job := <-p.jobs:
					p.activeJobsMutex.Lock()
					p.activeJobs++
					jobCount := p.activeJobs
					p.activeJobsMutex.Unlock()

					log.Debugf("Worker %d processing segment %d (active jobs: %d)",
						workerID, job.input.index, jobCount)

					startTime := time.Now()

					// ProcessSegment liefert immer ein Ergebnis
					result := p.processor.ProcessSegment(job.ctx, job.videoPath, job.input, job.fps)

					p.activeJobsMutex.Lock()
					p.activeJobs--
					p.activeJobsMutex.Unlock()

					// resultCh ist gepuffert, der Sender blockiert nie
					job.resultCh <- result

					log.Debugf("Worker %d completed segment %d in %v", workerID, job.input.index, time.Since(startTime))

				case <-p.shutdown:
					log.Debugf("Worker %d received shutdown signal", workerID)
					return
				}
			}
		}(i)
	}
}

// ProcessSegment verarbeitet ein Segment über den Worker-Pool und wartet auf das Ergebnis
func (p *WorkerPool) ProcessSegment(ctx context.Context, videoPath string, in segmentInput, fps float64) (models.SegmentResult, error) {
	job := &segmentJob{
		ctx:       ctx,
		videoPath: videoPath,
		input:     in,
		fps:       fps,
		resultCh:  make(chan models.SegmentResult, 1),
	}

	select {
	case <-p.shutdown:
		return models.SegmentResult{}, ErrPoolClosed
	default:
	}

	// Job an den Pool senden
	select {
	case p.jobs <- job:
	case <-p.shutdown:
		return models.SegmentResult{}, ErrPoolClosed
	case <-ctx.Done():
		return models.SegmentResult{}, ctx.Err()
	}

	// Auf Ergebnis warten
	select {
	case result := <-job.resultCh:
		return result, nil
	case <-ctx.Done():
		return models.SegmentResult{}, ctx.Err()
	}
}

// ActiveJobCount gibt die Anzahl der aktuell aktiven Jobs zurück
func (p *WorkerPool) ActiveJobCount() int {
	p.activeJobsMutex.Lock()
	defer p.activeJobsMutex.Unlock()
	return p.activeJobs
}

// GetWorkerCount gibt die Anzahl der Worker im Pool zurück
func (p *WorkerPool) GetWorkerCount() int {
	return p.workerCount
}

// GetQueueCapacity gibt die Kapazität der Job-Queue zurück
func (p *WorkerPool) GetQueueCapacity() int {
	return cap(p.jobs)
}

// Shutdown fährt den Worker-Pool herunter. Mehrfache Aufrufe sind erlaubt.
func (p *WorkerPool) Shutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}
