// Package eval - Detection evaluation engine: greedy ground-truth
// matching, per-image metrics and the batch evaluation runner.
package eval

import "github.com/shelfvision/shelfeval/images"

// DefaultIoUThreshold is the overlap a detection must strictly exceed
// against a ground-truth box to count as a hit.
const DefaultIoUThreshold = 0.5

// Match pairs one ground-truth box with one detection, together with
// the IoU that produced the pairing. Each ground-truth index and each
// detection index appears in at most one match.
type Match struct {
	GroundTruth int
	Detection   int
	IoU         float32
}

// MatchGreedy resolves overlapping ground-truth and detection boxes for
// one image into a one-to-one assignment.
//
// The scan is greedy and ground-truth-first: for each ground-truth box
// in list order, the unused detection with the highest IoU is selected
// and, if that IoU strictly exceeds iouThreshold, permanently claimed.
// Ties go to the first-scanned detection. Earlier assignments are never
// revisited, so the result is not a globally optimal bipartite
// matching; the approximation is intentional and must stay as is to
// keep evaluation output comparable across runs.
func MatchGreedy(groundTruth, detections []images.Rect, iouThreshold float32) []Match {
	var matches []Match
	used := make([]bool, len(detections))

	for i, gt := range groundTruth {
		var bestIoU float32
		bestDet := -1

		for j, det := range detections {
			if used[j] {
				continue
			}
			if iou := images.CalculateIoU(gt, det); iou > bestIoU {
				bestIoU = iou
				bestDet = j
			}
		}

		if bestIoU > iouThreshold {
			matches = append(matches, Match{GroundTruth: i, Detection: bestDet, IoU: bestIoU})
			used[bestDet] = true
		}
	}

	return matches
}
