package inference

import (
	"sort"

	"github.com/shelfvision/shelfeval/images"
)

// Detection is one candidate box produced by the model, in absolute
// corner-form pixel coordinates of the original image.
type Detection struct {
	Box   images.Rect
	Score float32
	Class int
}

// DecodeOutput extracts detection candidates from a raw YOLO output
// tensor laid out as [1, 4+numClasses, numCandidates]: four center-form
// box rows followed by one score row per class, each numCandidates
// wide.
//
// Candidates scoring below confThreshold are dropped. Box coordinates
// are converted from model-input space (inputSize x inputSize) to the
// original image's pixel space using origWidth and origHeight.
func DecodeOutput(output []float32, numClasses, numCandidates int, confThreshold float32, inputSize, origWidth, origHeight int) []Detection {
	detections := make([]Detection, 0, numCandidates)

	scaleX := float32(origWidth) / float32(inputSize)
	scaleY := float32(origHeight) / float32(inputSize)

	for idx := 0; idx < numCandidates; idx++ {
		// Best class score for this candidate.
		score := float32(-1)
		class := 0
		for c := 0; c < numClasses; c++ {
			if s := output[numCandidates*(c+4)+idx]; s > score {
				score = s
				class = c
			}
		}
		if score < confThreshold {
			continue
		}

		cx := output[idx]
		cy := output[numCandidates+idx]
		w := output[2*numCandidates+idx]
		h := output[3*numCandidates+idx]

		detections = append(detections, Detection{
			Box: images.Rect{
				X1: (cx - w/2) * scaleX,
				Y1: (cy - h/2) * scaleY,
				X2: (cx + w/2) * scaleX,
				Y2: (cy + h/2) * scaleY,
			},
			Score: score,
			Class: class,
		})
	}

	return detections
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression:
// candidates are visited in descending score order and each kept box
// suppresses every remaining box overlapping it above iouThreshold.
func ApplyGreedyNMS(detections []Detection, iouThreshold float32) []Detection {
	n := len(detections)
	if n == 0 {
		return nil
	}

	sorted := make([]Detection, n)
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	kept := make([]Detection, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := sorted[i]
		kept = append(kept, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if images.CalculateIoU(anchor.Box, sorted[j].Box) > iouThreshold {
				used[j] = true
			}
		}
	}

	return kept
}
