package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"facesplit/config"
	"facesplit/internal/core/decision"
	"facesplit/internal/core/models"
	"facesplit/internal/core/sampler"
	"facesplit/internal/integrations/facedetection"
	"facesplit/internal/util/timestamp"

	log "github.com/sirupsen/logrus"
)

// segmentInput is a normalized segment descriptor.
type segmentInput struct {
	index int
	start timestamp.Value
	end   timestamp.Value
	r     models.TimeRange
}

// SegmentProcessor bewertet Videosegmente und entscheidet pro Segment über
// Gesichtsanzahl, Darstellungsmodus und Boxen
type SegmentProcessor struct {
	cfg      *config.Config
	opener   facedetection.VideoOpener
	detector facedetection.Detector
	sinks    []ResultSink
	pool     *WorkerPool
}

// NewSegmentProcessor erstellt einen neuen Segmentprozessor. Bei mehr als
// einem konfigurierten Worker wird ein Worker-Pool gestartet.
func NewSegmentProcessor(cfg *config.Config, opener facedetection.VideoOpener, detector facedetection.Detector, sinks ...ResultSink) *SegmentProcessor {
	p := &SegmentProcessor{
		cfg:      cfg,
		opener:   opener,
		detector: detector,
		sinks:    sinks,
	}
	if cfg.Processing.Workers > 1 {
		p.pool = NewWorkerPool(p, cfg.Processing.Workers)
	}
	return p
}

// AddSink registers another result sink. Not safe while Analyze is running.
func (p *SegmentProcessor) AddSink(s ResultSink) {
	p.sinks = append(p.sinks, s)
}

// Pool returns the worker pool, nil in sequential mode.
func (p *SegmentProcessor) Pool() *WorkerPool {
	return p.pool
}

// Close stops the worker pool, if any.
func (p *SegmentProcessor) Close() {
	if p.pool != nil {
		p.pool.Shutdown()
	}
}

// normalizeSegments resolves every descriptor to seconds. Missing start is 0,
// missing end is start plus defaultLength.
func normalizeSegments(specs []models.SegmentSpec, defaultLength float64) ([]segmentInput, error) {
	inputs := make([]segmentInput, 0, len(specs))
	for i, spec := range specs {
		start := timestamp.Seconds(0)
		if spec.Start != nil {
			start = *spec.Start
		}
		end := timestamp.Seconds(start.Seconds() + defaultLength)
		if spec.End != nil {
			end = *spec.End
		}
		if start.Seconds() < 0 || end.Seconds() < 0 {
			return nil, fmt.Errorf("segment %d: %w: negative boundary", i, timestamp.ErrMalformedTimestamp)
		}
		inputs = append(inputs, segmentInput{
			index: i,
			start: start,
			end:   end,
			r:     models.TimeRange{Start: start.Seconds(), End: end.Seconds()},
		})
	}
	return inputs, nil
}

// Analyze verarbeitet alle Segmente eines Videos. Eingabefehler brechen ab,
// bevor ein Segment verarbeitet wird; Fehler innerhalb eines Segments führen
// nur zu einem Fallback-Ergebnis für dieses Segment.
func (p *SegmentProcessor) Analyze(ctx context.Context, videoPath string, specs []models.SegmentSpec) (*Report, error) {
	inputs, err := normalizeSegments(specs, p.cfg.Decision.DefaultSegmentLength)
	if err != nil {
		return nil, NewInputError(CodeMalformedTimestamp, err)
	}

	// 1. Überprüfen, ob die Datei existiert
	if _, err := os.Stat(videoPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewInputError(CodeVideoNotFound, fmt.Errorf("video file not found: %s", videoPath))
		}
		return nil, NewInputError(CodeVideoOpen, fmt.Errorf("failed to stat video %s: %w", videoPath, err))
	}

	// 2. Video einmal öffnen, um es zu validieren und die Framerate zu lesen
	src, err := p.opener.Open(videoPath)
	if err != nil {
		return nil, NewInputError(CodeVideoOpen, fmt.Errorf("failed to open video %s: %w", videoPath, err))
	}
	fps := sampler.EffectiveFPS(src.FPS(), p.cfg.Sampling)
	width, height := src.FrameSize()
	src.Close()

	log.WithFields(log.Fields{
		"video":    videoPath,
		"fps":      fps,
		"size":     fmt.Sprintf("%dx%d", width, height),
		"segments": len(inputs),
	}).Info("Starting segment analysis")

	run := &RunInfo{
		VideoPath:    videoPath,
		Detector:     string(p.detector.GetProviderName()),
		SegmentCount: len(inputs),
		StartedAt:    time.Now(),
	}
	p.notifyRunStarted(ctx, run)

	var results []models.SegmentResult
	if p.pool != nil && len(inputs) > 1 {
		results, err = p.analyzeParallel(ctx, run, videoPath, inputs, fps)
	} else {
		results, err = p.analyzeSequential(ctx, run, videoPath, inputs, fps)
	}
	if err != nil {
		return nil, err
	}

	run.FinishedAt = time.Now()
	p.notifyRunFinished(ctx, run, results)

	log.Infof("Segment analysis of %s finished in %v", videoPath, run.FinishedAt.Sub(run.StartedAt))
	return &Report{Run: *run, Results: results}, nil
}

func (p *SegmentProcessor) analyzeSequential(ctx context.Context, run *RunInfo, videoPath string, inputs []segmentInput, fps float64) ([]models.SegmentResult, error) {
	results := make([]models.SegmentResult, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := p.ProcessSegment(ctx, videoPath, in, fps)
		results = append(results, res)
		p.notifySegment(ctx, run, res)
	}
	return results, nil
}

// analyzeParallel fans segments out over the pool and emits them back in
// input order.
func (p *SegmentProcessor) analyzeParallel(ctx context.Context, run *RunInfo, videoPath string, inputs []segmentInput, fps float64) ([]models.SegmentResult, error) {
	type outcome struct {
		index  int
		result models.SegmentResult
		err    error
	}

	outcomes := make(chan outcome, len(inputs))
	for _, in := range inputs {
		go func(in segmentInput) {
			res, err := p.pool.ProcessSegment(ctx, videoPath, in, fps)
			outcomes <- outcome{index: in.index, result: res, err: err}
		}(in)
	}

	results := make([]models.SegmentResult, len(inputs))
	done := make([]bool, len(inputs))
	next := 0
	var firstErr error
	for range inputs {
		o := <-outcomes
		if o.err != nil {
			if firstErr == nil {
				firstErr = o.err
			}
			continue
		}
		results[o.index] = o.result
		done[o.index] = true

		// zusammenhängenden Anfang in Reihenfolge ausgeben
		for firstErr == nil && next < len(inputs) && done[next] {
			p.notifySegment(ctx, run, results[next])
			next++
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// ProcessSegment bewertet ein einzelnes Segment. Es liefert immer ein
// Ergebnis; Fehler und Panics werden als Warnung geloggt und durch das
// Fallback-Ergebnis ersetzt.
func (p *SegmentProcessor) ProcessSegment(ctx context.Context, videoPath string, in segmentInput, fps float64) (res models.SegmentResult) {
	logger := log.WithFields(log.Fields{
		"segment": in.index,
		"start":   in.r.Start,
		"end":     in.r.End,
	})

	defer func() {
		if r := recover(); r != nil {
			logger.Warnf("Segment processing panicked, using fallback: %v", r)
			res = p.fallbackResult(in)
		}
	}()

	res, err := p.evaluate(ctx, videoPath, in, fps)
	if err != nil {
		logger.WithError(err).Warn("Segment processing failed, using fallback")
		return p.fallbackResult(in)
	}

	logger.WithFields(log.Fields{
		"face_count": res.FaceCount,
		"mode":       res.Mode,
		"boxes":      len(res.Boxes),
	}).Info("Segment processed")
	return res
}

// evaluate runs sampling, detection, aggregation and the mode decision for
// one segment on its own video handle.
func (p *SegmentProcessor) evaluate(ctx context.Context, videoPath string, in segmentInput, fps float64) (models.SegmentResult, error) {
	src, err := p.opener.Open(videoPath)
	if err != nil {
		return models.SegmentResult{}, fmt.Errorf("failed to open video for segment %d: %w", in.index, err)
	}
	defer src.Close()

	if handleFPS := src.FPS(); handleFPS > 0 {
		fps = handleFPS
	}

	samples := sampler.Sample(in.r, fps, p.cfg.Sampling)

	var (
		counts        []int
		frames        []models.FrameDetection
		readFailures  int
		detectFailure error
		detectErrors  int
	)
	for _, s := range samples {
		frame, err := src.ReadFrame(s.Index)
		if err != nil {
			readFailures++
			log.WithFields(log.Fields{"segment": in.index, "frame": s.Index}).
				Debugf("Frame skipped: %v", fmt.Errorf("%w: %v", ErrFrameRead, err))
			continue
		}

		faces, err := p.detector.DetectFaces(ctx, frame)
		if err != nil {
			detectErrors++
			detectFailure = err
			log.WithFields(log.Fields{"segment": in.index, "frame": s.Index}).
				Warnf("Detection failed on frame: %v", err)
			continue
		}

		log.WithFields(log.Fields{"segment": in.index, "frame": s.Index}).
			Debugf("Detected %d face(s)", len(faces))
		counts = append(counts, len(faces))
		frames = append(frames, faces)
	}

	if detectErrors > 0 && len(counts) == 0 {
		return models.SegmentResult{}, fmt.Errorf("%w: all %d readable frames failed: %v", ErrDetection, detectErrors, detectFailure)
	}
	if len(samples) > 0 && readFailures == len(samples) {
		log.WithField("segment", in.index).Warnf("No sampled frame could be read (%d attempted)", len(samples))
	}

	faceCount := decision.AggregateFaceCount(counts, p.cfg.Decision.ZeroFaceFallback)
	limit := min(faceCount, p.cfg.Decision.MaxBoxes)
	boxes := decision.CollectBoxes(frames, limit)
	mode, boxes := decision.DecideMode(faceCount, boxes)

	return models.SegmentResult{
		SegmentIndex: in.index,
		Start:        in.start,
		End:          in.end,
		FaceCount:    faceCount,
		Mode:         mode,
		Boxes:        boxes,
	}, nil
}

// fallbackResult is emitted when a segment could not be evaluated.
func (p *SegmentProcessor) fallbackResult(in segmentInput) models.SegmentResult {
	return models.SegmentResult{
		SegmentIndex: in.index,
		Start:        in.start,
		End:          in.end,
		FaceCount:    p.cfg.Decision.ZeroFaceFallback,
		Mode:         models.ModeCenter,
		Boxes:        []models.RelativeBox{},
	}
}

func (p *SegmentProcessor) notifyRunStarted(ctx context.Context, run *RunInfo) {
	for _, s := range p.sinks {
		if err := s.RunStarted(ctx, run); err != nil {
			log.WithError(err).Warn("Result sink failed on run start")
		}
	}
}

func (p *SegmentProcessor) notifySegment(ctx context.Context, run *RunInfo, res models.SegmentResult) {
	for _, s := range p.sinks {
		if err := s.SegmentDone(ctx, run, res); err != nil {
			log.WithError(err).WithField("segment", res.SegmentIndex).Warn("Result sink failed")
		}
	}
}

func (p *SegmentProcessor) notifyRunFinished(ctx context.Context, run *RunInfo, results []models.SegmentResult) {
	for _, s := range p.sinks {
		if err := s.RunFinished(ctx, run, results); err != nil {
			log.WithError(err).Warn("Result sink failed on run finish")
		}
	}
}
