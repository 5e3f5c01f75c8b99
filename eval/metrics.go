package eval

// ImageMetrics holds the detection counts and rates for exactly one
// evaluated image. Precision and recall default to 0 when their
// denominator is 0.
type ImageMetrics struct {
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
}

// ComputeImageMetrics derives per-image metrics from the ground-truth
// count, the prediction count and the number of accepted matches.
func ComputeImageMetrics(groundTruth, predictions, matched int) ImageMetrics {
	m := ImageMetrics{
		TruePositives:  matched,
		FalsePositives: predictions - matched,
		FalseNegatives: groundTruth - matched,
	}

	if predictions > 0 {
		m.Precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}
	if groundTruth > 0 {
		m.Recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	return m
}

// DatasetMetrics accumulates per-image results across a run. It is
// owned and mutated only by the Runner.
type DatasetMetrics struct {
	precisionSum float64
	recallSum    float64
	valid        int
}

// Add folds one evaluated image's metrics into the running sums.
func (m *DatasetMetrics) Add(im ImageMetrics) {
	m.precisionSum += im.Precision
	m.recallSum += im.Recall
	m.valid++
}

// Valid returns the number of images folded in so far.
func (m *DatasetMetrics) Valid() int {
	return m.valid
}

// Summary is the finalized dataset-level result of a run.
type Summary struct {
	MeanPrecision float64 `json:"mean_precision"`
	MeanRecall    float64 `json:"mean_recall"`
	ValidImages   int     `json:"valid_images"`
}

// Summarize computes the arithmetic means over all evaluated images.
// With no valid images both means stay 0.
func (m *DatasetMetrics) Summarize() Summary {
	s := Summary{ValidImages: m.valid}
	if m.valid > 0 {
		s.MeanPrecision = m.precisionSum / float64(m.valid)
		s.MeanRecall = m.recallSum / float64(m.valid)
	}
	return s
}
