package decision

import "facesplit/internal/core/models"

// maxSplitBoxes is the number of regions a split layout can show.
const maxSplitBoxes = 2

// DecideMode maps a face count to a display mode and trims boxes to what the
// mode can use: at most one for CENTER, at most two for SPLIT, and never more
// than faceCount.
func DecideMode(faceCount int, boxes []models.RelativeBox) (models.DisplayMode, []models.RelativeBox) {
	mode := models.ModeCenter
	keep := 1
	if faceCount >= 2 {
		mode = models.ModeSplit
		keep = maxSplitBoxes
	}
	if faceCount < keep {
		keep = max(faceCount, 0)
	}
	if len(boxes) < keep {
		keep = len(boxes)
	}

	out := make([]models.RelativeBox, keep)
	copy(out, boxes[:keep])
	return mode, out
}
