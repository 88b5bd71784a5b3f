package decision

import (
	"testing"

	"facesplit/internal/core/models"
)

func TestAggregateFaceCount(t *testing.T) {
	tests := []struct {
		name     string
		counts   []int
		fallback int
		want     int
	}{
		{"constant one", []int{1, 1, 1, 1, 1}, 1, 1},
		{"constant two", []int{2, 2, 2, 2, 2}, 1, 2},
		{"constant three", []int{3, 3, 3}, 1, 3},
		{"plurality", []int{1, 2, 2, 1, 2}, 1, 2},
		{"tie prefers larger", []int{1, 1, 2, 2}, 1, 2},
		{"tie order independent", []int{2, 2, 1, 1}, 1, 2},
		{"three-way tie", []int{3, 1, 2}, 1, 3},
		{"all zero falls back", []int{0, 0, 0, 0, 0}, 1, 1},
		{"all zero falls back to zero", []int{0, 0, 0}, 0, 0},
		{"zero plurality falls back", []int{0, 0, 0, 2, 2}, 1, 1},
		{"zero tie resolves to faces", []int{0, 0, 2, 2}, 1, 2},
		{"empty", nil, 1, 1},
		{"empty with zero fallback", []int{}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateFaceCount(tt.counts, tt.fallback); got != tt.want {
				t.Errorf("AggregateFaceCount(%v, %d) = %d, want %d", tt.counts, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestAggregateTieDeterministic(t *testing.T) {
	// map iteration order varies between runs, the result must not
	for i := 0; i < 200; i++ {
		if got := AggregateFaceCount([]int{1, 1, 2, 2}, 1); got != 2 {
			t.Fatalf("run %d: got %d, want 2", i, got)
		}
	}
}

func TestClampBox(t *testing.T) {
	b := ClampBox(models.RelativeBox{X: 0.95, Y: 0.1, Width: 0.2, Height: 0.2})
	if b.X+b.Width != 1.0 {
		t.Errorf("x+width = %v, want exactly 1.0", b.X+b.Width)
	}

	b = ClampBox(models.RelativeBox{X: 0.1, Y: 0.9, Width: 0.1, Height: 0.5})
	if b.Y+b.Height != 1.0 {
		t.Errorf("y+height = %v, want exactly 1.0", b.Y+b.Height)
	}

	b = ClampBox(models.RelativeBox{X: -0.1, Y: -0.2, Width: 0.3, Height: 0.4})
	if b.X != 0 || b.Y != 0 {
		t.Errorf("origin = (%v, %v), want (0, 0)", b.X, b.Y)
	}
	if b.Width <= 0 || b.Width > 0.2+1e-9 || b.Height > 0.2+1e-9 {
		t.Errorf("negative origin not trimmed: %+v", b)
	}

	b = ClampBox(models.RelativeBox{X: 1.5, Y: 0.5, Width: 0.2, Height: 0.2})
	if b.X != 1 || b.Width != 0 {
		t.Errorf("out of frame box = %+v", b)
	}

	in := models.RelativeBox{X: 0.4, Y: 0.3, Width: 0.2, Height: 0.2}
	if got := ClampBox(in); got != in {
		t.Errorf("in-bounds box changed: %+v", got)
	}
}

func TestBoxCollectorDedup(t *testing.T) {
	a := models.RelativeBox{X: 0.4, Y: 0.3, Width: 0.2, Height: 0.2}

	c := NewBoxCollector(2)
	c.Add(a)
	c.Add(a)
	if got := c.Boxes(); len(got) != 1 {
		t.Fatalf("identical box kept %d times, want 1", len(got))
	}

	// same grid cell, slightly shifted
	c.Add(models.RelativeBox{X: 0.41, Y: 0.31, Width: 0.2, Height: 0.2})
	if got := c.Boxes(); len(got) != 1 || got[0] != a {
		t.Errorf("near duplicate not merged, first occurrence must win: %+v", got)
	}
}

func TestBoxCollectorLimitAndOrder(t *testing.T) {
	a := models.RelativeBox{X: 0.1, Y: 0.3, Width: 0.2, Height: 0.2}
	b := models.RelativeBox{X: 0.6, Y: 0.3, Width: 0.2, Height: 0.2}
	c := models.RelativeBox{X: 0.4, Y: 0.7, Width: 0.1, Height: 0.1}

	frames := []models.FrameDetection{{a}, {a, b}, {b, c}}
	got := CollectBoxes(frames, 2)
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("CollectBoxes = %+v, want [a b]", got)
	}

	got = CollectBoxes(frames, 1)
	if len(got) != 1 || got[0] != a {
		t.Errorf("CollectBoxes limit 1 = %+v, want [a]", got)
	}

	if got := CollectBoxes(nil, 2); got == nil || len(got) != 0 {
		t.Errorf("no boxes observed = %#v, want empty slice", got)
	}

	col := NewBoxCollector(2)
	if full := col.Add(a, b, c); !full {
		t.Error("collector should report full after two unique boxes")
	}
}

func TestBoxCollectorClampsBeforeKeying(t *testing.T) {
	got := CollectBoxes([]models.FrameDetection{{{X: 0.95, Y: 0, Width: 0.2, Height: 0.1}}}, 1)
	if len(got) != 1 || got[0].X+got[0].Width != 1.0 {
		t.Errorf("collected box not clamped: %+v", got)
	}
}

func TestDecideMode(t *testing.T) {
	a := models.RelativeBox{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2}
	b := models.RelativeBox{X: 0.6, Y: 0.1, Width: 0.2, Height: 0.2}
	c := models.RelativeBox{X: 0.4, Y: 0.6, Width: 0.2, Height: 0.2}
	all := []models.RelativeBox{a, b, c}

	for fc := 0; fc <= 6; fc++ {
		for n := 0; n <= len(all); n++ {
			mode, boxes := DecideMode(fc, all[:n])
			wantMode := models.ModeCenter
			if fc >= 2 {
				wantMode = models.ModeSplit
			}
			if mode != wantMode {
				t.Errorf("DecideMode(%d) mode = %s, want %s", fc, mode, wantMode)
			}
			if limit := min(fc, 2); len(boxes) > limit {
				t.Errorf("DecideMode(%d, %d boxes) returned %d boxes, limit %d", fc, n, len(boxes), limit)
			}
			if boxes == nil {
				t.Errorf("DecideMode(%d, %d boxes) returned nil slice", fc, n)
			}
			if len(boxes) > 0 && boxes[0] != a {
				t.Errorf("first box not preserved: %+v", boxes)
			}
		}
	}

	_, boxes := DecideMode(1, all)
	if len(boxes) != 1 {
		t.Errorf("CENTER keeps %d boxes, want 1", len(boxes))
	}
	_, boxes = DecideMode(3, all)
	if len(boxes) != 2 || boxes[1] != b {
		t.Errorf("SPLIT boxes = %+v, want [a b]", boxes)
	}
}
