package onnx

import (
	"fmt"
	"math"
	"sort"

	"github.com/DivyaMaddipati/currency-vision-assistant/internal/detection"
)

// IouThreshold is the overlap above which a weaker box of the same class is
// suppressed
const IouThreshold = 0.45

type candidate struct {
	x1, y1, x2, y2 float32
	score          float32
	classID        int
}

// decodeOutput reads a YOLO output tensor laid out as [1, 4+C, N]: rows 0-3
// hold cx, cy, w, h in input pixels and rows 4.. hold per-class scores.
// Candidates scoring below minScore are dropped.
func decodeOutput(out []float32, numClasses, numAnchors int, minScore float32) ([]candidate, error) {
	rows := 4 + numClasses
	if len(out) != rows*numAnchors {
		return nil, fmt.Errorf("unexpected output length: got %d, want %d", len(out), rows*numAnchors)
	}

	cands := make([]candidate, 0, 64)
	for i := 0; i < numAnchors; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < numClasses; c++ {
			if s := out[(4+c)*numAnchors+i]; s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < minScore {
			continue
		}

		cx := out[i]
		cy := out[numAnchors+i]
		w := out[2*numAnchors+i]
		h := out[3*numAnchors+i]
		cands = append(cands, candidate{
			x1:      cx - w/2,
			y1:      cy - h/2,
			x2:      cx + w/2,
			y2:      cy + h/2,
			score:   bestScore,
			classID: best,
		})
	}
	return cands, nil
}

// nms runs per-class non-maximum suppression and returns the survivors
// ordered by descending score
func nms(cands []candidate, iouThreshold float64) []candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	kept := make([]candidate, 0, len(cands))
	for _, c := range cands {
		suppressed := false
		for _, k := range kept {
			if k.classID == c.classID && iou(k, c) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}

func iou(a, b candidate) float64 {
	x1 := math.Max(float64(a.x1), float64(b.x1))
	y1 := math.Max(float64(a.y1), float64(b.y1))
	x2 := math.Min(float64(a.x2), float64(b.x2))
	y2 := math.Min(float64(a.y2), float64(b.y2))

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	areaA := float64(a.x2-a.x1) * float64(a.y2-a.y1)
	areaB := float64(b.x2-b.x1) * float64(b.y2-b.y1)
	return intersection / (areaA + areaB - intersection)
}

// toDetections scales boxes from the square model input back to frame
// pixels, clamped to the frame
func toDetections(cands []candidate, inputSize, frameWidth, frameHeight int, labels []string) []detection.Detection {
	scaleX := float32(frameWidth) / float32(inputSize)
	scaleY := float32(frameHeight) / float32(inputSize)
	fw, fh := float32(frameWidth), float32(frameHeight)

	dets := make([]detection.Detection, 0, len(cands))
	for _, c := range cands {
		dets = append(dets, detection.Detection{
			Box: detection.BoundingBox{
				X1: int(clamp(c.x1*scaleX, 0, fw)),
				Y1: int(clamp(c.y1*scaleY, 0, fh)),
				X2: int(clamp(c.x2*scaleX, 0, fw)),
				Y2: int(clamp(c.y2*scaleY, 0, fh)),
			},
			ClassID:    c.classID,
			ClassName:  className(labels, c.classID),
			Confidence: float64(c.score),
		})
	}
	return dets
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
