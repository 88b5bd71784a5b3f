package sampler

import (
	"math"
	"testing"

	"facesplit/config"
	"facesplit/internal/core/models"
)

func countCfg(k int) config.SamplingConfig {
	return config.SamplingConfig{Policy: config.PolicyFixedCount, FrameCount: k, DefaultFPS: 30}
}

func indices(samples []models.FrameSample) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = s.Index
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFixedCount(t *testing.T) {
	tests := []struct {
		name string
		r    models.TimeRange
		fps  float64
		want []int
	}{
		{"ten seconds at 30fps", models.TimeRange{Start: 0, End: 10}, 30, []int{0, 60, 120, 180, 240}},
		{"offset start", models.TimeRange{Start: 10, End: 20}, 30, []int{300, 360, 420, 480, 540}},
		{"fewer frames than k", models.TimeRange{Start: 1, End: 1.1}, 30, []int{30, 31, 32}},
		{"sub-frame segment", models.TimeRange{Start: 2, End: 2.01}, 30, []int{60}},
		{"missing fps uses default", models.TimeRange{Start: 0, End: 10}, 0, []int{0, 60, 120, 180, 240}},
		{"negative fps uses default", models.TimeRange{Start: 0, End: 10}, -1, []int{0, 60, 120, 180, 240}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := indices(Sample(tt.r, tt.fps, countCfg(5)))
			if !equalInts(got, tt.want) {
				t.Errorf("Sample = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFixedCountNoDuplicates(t *testing.T) {
	for _, end := range []float64{0.1, 0.2, 0.5, 1, 3.3, 60} {
		samples := Sample(models.TimeRange{Start: 0, End: end}, 24, countCfg(5))
		seen := map[int]bool{}
		for _, s := range samples {
			if seen[s.Index] {
				t.Fatalf("end=%v: duplicate frame %d in %v", end, s.Index, indices(samples))
			}
			seen[s.Index] = true
		}
		if len(samples) == 0 || len(samples) > 5 {
			t.Errorf("end=%v: got %d samples", end, len(samples))
		}
	}
}

func TestEmptyForNonPositiveDuration(t *testing.T) {
	for _, r := range []models.TimeRange{{Start: 5, End: 5}, {Start: 5, End: 3}} {
		if got := Sample(r, 30, countCfg(5)); len(got) != 0 {
			t.Errorf("Sample(%+v) = %v, want empty", r, got)
		}
		cfg := config.SamplingConfig{Policy: config.PolicyFixedInterval, Interval: 1, DefaultFPS: 30}
		if got := Sample(r, 30, cfg); len(got) != 0 {
			t.Errorf("interval Sample(%+v) = %v, want empty", r, got)
		}
	}
}

func TestFixedInterval(t *testing.T) {
	cfg := config.SamplingConfig{Policy: config.PolicyFixedInterval, Interval: 1.0, DefaultFPS: 30}
	got := Sample(models.TimeRange{Start: 2, End: 5}, 25, cfg)
	want := []int{50, 75, 100}
	if !equalInts(indices(got), want) {
		t.Errorf("Sample = %v, want %v", indices(got), want)
	}
	for _, s := range got {
		if int(math.Round(s.Time*25)) != s.Index {
			t.Errorf("sample %+v: index does not match round(time*fps)", s)
		}
	}
}

func TestFixedIntervalDropsRepeatedFrames(t *testing.T) {
	cfg := config.SamplingConfig{Policy: config.PolicyFixedInterval, Interval: 0.01, DefaultFPS: 30}
	got := indices(Sample(models.TimeRange{Start: 0, End: 0.1}, 30, cfg))
	for i := 1; i < len(got); i++ {
		if got[i] == got[i-1] {
			t.Fatalf("repeated frame index in %v", got)
		}
	}
}

func TestEffectiveFPS(t *testing.T) {
	cfg := config.SamplingConfig{DefaultFPS: 25}
	if got := EffectiveFPS(math.NaN(), cfg); got != 25 {
		t.Errorf("NaN fps -> %v, want 25", got)
	}
	if got := EffectiveFPS(59.94, cfg); got != 59.94 {
		t.Errorf("got %v, want 59.94", got)
	}
	if got := EffectiveFPS(0, config.SamplingConfig{}); got != 30 {
		t.Errorf("no default -> %v, want 30", got)
	}
}
