package decision

import (
	"math"

	"facesplit/internal/core/models"
)

// gridCells is the resolution of the dedup grid per axis (one decimal place).
const gridCells = 10

// ClampBox clips b to the unit square. A box that sticks out of the frame is
// cut at the edge, never dropped.
func ClampBox(b models.RelativeBox) models.RelativeBox {
	if math.IsNaN(b.X) || math.IsNaN(b.Y) || math.IsNaN(b.Width) || math.IsNaN(b.Height) {
		return models.RelativeBox{}
	}

	if b.X < 0 {
		b.Width += b.X
		b.X = 0
	}
	if b.Y < 0 {
		b.Height += b.Y
		b.Y = 0
	}
	b.X = math.Min(b.X, 1)
	b.Y = math.Min(b.Y, 1)

	b.Width = clampExtent(b.Width, 1-b.X)
	b.Height = clampExtent(b.Height, 1-b.Y)
	return b
}

func clampExtent(v, limit float64) float64 {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}

type cell struct{ x, y int }

func cellOf(b models.RelativeBox) cell {
	cx, cy := b.Center()
	return cell{
		x: int(math.Round(cx * gridCells)),
		y: int(math.Round(cy * gridCells)),
	}
}

// BoxCollector gathers boxes across the sampled frames of one segment and
// keeps the first box seen in each grid cell, up to a limit.
type BoxCollector struct {
	limit int
	seen  map[cell]struct{}
	boxes []models.RelativeBox
}

// NewBoxCollector returns a collector that keeps at most limit boxes.
func NewBoxCollector(limit int) *BoxCollector {
	if limit < 0 {
		limit = 0
	}
	return &BoxCollector{
		limit: limit,
		seen:  make(map[cell]struct{}),
	}
}

// Add offers boxes in scan order and reports whether the collector is full.
func (c *BoxCollector) Add(boxes ...models.RelativeBox) bool {
	for _, b := range boxes {
		if c.Full() {
			break
		}
		b = ClampBox(b)
		key := cellOf(b)
		if _, dup := c.seen[key]; dup {
			continue
		}
		c.seen[key] = struct{}{}
		c.boxes = append(c.boxes, b)
	}
	return c.Full()
}

// Full reports whether limit unique boxes have been collected.
func (c *BoxCollector) Full() bool {
	return len(c.boxes) >= c.limit
}

// Boxes returns the collected boxes, never nil.
func (c *BoxCollector) Boxes() []models.RelativeBox {
	out := make([]models.RelativeBox, len(c.boxes))
	copy(out, c.boxes)
	return out
}

// CollectBoxes is a one-shot helper over per-frame detections.
func CollectBoxes(frames []models.FrameDetection, limit int) []models.RelativeBox {
	c := NewBoxCollector(limit)
	for _, f := range frames {
		if c.Add(f...) {
			break
		}
	}
	return c.Boxes()
}
