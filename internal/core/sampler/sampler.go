// Package sampler chooses which frames of a segment are sent to the face
// detector. Detection is the expensive step, so only a handful of frames per
// segment are examined.
package sampler

import (
	"math"

	"facesplit/config"
	"facesplit/internal/core/models"
)

// EffectiveFPS returns fps, or the configured default when the source
// reports a missing or non-positive rate.
func EffectiveFPS(fps float64, cfg config.SamplingConfig) float64 {
	if fps > 0 && !math.IsNaN(fps) && !math.IsInf(fps, 0) {
		return fps
	}
	if cfg.DefaultFPS > 0 {
		return cfg.DefaultFPS
	}
	return 30
}

// Sample returns the ordered frame positions to examine for r. The result is
// empty only when the segment has no positive duration.
func Sample(r models.TimeRange, fps float64, cfg config.SamplingConfig) []models.FrameSample {
	fps = EffectiveFPS(fps, cfg)
	if r.Duration() <= 0 {
		return nil
	}

	switch cfg.Policy {
	case config.PolicyFixedInterval:
		return fixedInterval(r, fps, cfg.Interval)
	default:
		return fixedCount(r, fps, cfg.FrameCount)
	}
}

// fixedCount spreads k offsets evenly over the segment's frame span, or takes
// every frame when the span is shorter than k.
func fixedCount(r models.TimeRange, fps float64, k int) []models.FrameSample {
	if k <= 0 {
		k = 5
	}

	total := int(r.Duration() * fps)
	if total < 1 {
		total = 1
	}
	startFrame := int(r.Start * fps)

	n := k
	if total <= k {
		n = total
	}

	samples := make([]models.FrameSample, 0, n)
	for i := 0; i < n; i++ {
		offset := i
		if total > k {
			offset = int(float64(i) * float64(total) / float64(k))
		}
		idx := startFrame + offset
		samples = append(samples, models.FrameSample{Index: idx, Time: float64(idx) / fps})
	}
	return samples
}

// fixedInterval steps from Start by interval seconds until End.
func fixedInterval(r models.TimeRange, fps, interval float64) []models.FrameSample {
	if interval <= 0 {
		interval = 1.0
	}

	var samples []models.FrameSample
	last := -1
	for i := 0; ; i++ {
		t := r.Start + float64(i)*interval
		if t >= r.End {
			break
		}
		idx := int(math.Round(t * fps))
		if idx == last {
			continue
		}
		last = idx
		samples = append(samples, models.FrameSample{Index: idx, Time: t})
	}
	return samples
}
