package model

import (
	"sort"

	"github.com/chewxy/math32"
)

// candidate is one decoded prediction in letterbox pixel space, x1 y1 x2 y2.
type candidate struct {
	box   [4]float32
	score float32
	class int
}

// decodeYOLOv5 reads the [rows, 5+classes] output of a YOLOv5 export.
// Each row is cx, cy, w, h, objectness, then per-class scores; the final
// score is objectness times the best class score.
func decodeYOLOv5(out []float32, rowLen int, conf float32) []candidate {
	if rowLen <= 5 {
		return nil
	}

	rows := len(out) / rowLen
	var cands []candidate

	for i := 0; i < rows; i++ {
		row := out[i*rowLen : (i+1)*rowLen]

		obj := row[4]
		if obj < conf {
			continue
		}

		best, bestScore := 0, float32(0)
		for c, s := range row[5:] {
			if s > bestScore {
				best, bestScore = c, s
			}
		}

		score := obj * bestScore
		if score < conf {
			continue
		}

		cx, cy, w, h := row[0], row[1], row[2], row[3]
		cands = append(cands, candidate{
			box:   [4]float32{cx - w/2, cy - h/2, cx + w/2, cy + h/2},
			score: score,
			class: best,
		})
	}

	return cands
}

// nonMaxSuppression keeps the highest scoring box of every overlapping group
// of the same class. At most limit boxes are returned, best first.
func nonMaxSuppression(cands []candidate, iouThreshold float32, limit int) []candidate {
	if len(cands) == 0 {
		return nil
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	kept := make([]candidate, 0, len(cands))
	suppressed := make([]bool, len(cands))

	for i := range cands {
		if suppressed[i] {
			continue
		}
		kept = append(kept, cands[i])
		if limit > 0 && len(kept) == limit {
			break
		}

		for j := i + 1; j < len(cands); j++ {
			if suppressed[j] || cands[j].class != cands[i].class {
				continue
			}
			if iou(cands[i].box, cands[j].box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}

	return kept
}

func iou(a, b [4]float32) float32 {
	ix1 := math32.Max(a[0], b[0])
	iy1 := math32.Max(a[1], b[1])
	ix2 := math32.Min(a[2], b[2])
	iy2 := math32.Min(a[3], b[3])

	inter := math32.Max(0, ix2-ix1) * math32.Max(0, iy2-iy1)
	if inter == 0 {
		return 0
	}

	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])

	return inter / (areaA + areaB - inter)
}

func clamp(v, lo, hi float32) float32 {
	return math32.Min(math32.Max(v, lo), hi)
}
