package eval

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/pkg/errors"

	"github.com/shelfvision/shelfeval/dataset"
	"github.com/shelfvision/shelfeval/images"
	"github.com/shelfvision/shelfeval/labels"
)

// Status is the terminal state of one image's evaluation. Terminal
// states never transition further; the runner always advances to the
// next image regardless of outcome.
type Status int

const (
	// StatusEvaluated means the full pipeline ran and produced metrics.
	StatusEvaluated Status = iota
	// StatusSkippedNoLabel means no label file exists for the image.
	StatusSkippedNoLabel
	// StatusSkippedEmptyLabel means the label file parsed to zero records.
	StatusSkippedEmptyLabel
	// StatusSkippedDecodeFailure means the image payload could not be decoded.
	StatusSkippedDecodeFailure
	// StatusFailed means an unexpected error was isolated to this image.
	StatusFailed
)

// String returns a short human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusEvaluated:
		return "evaluated"
	case StatusSkippedNoLabel:
		return "skipped(no-label)"
	case StatusSkippedEmptyLabel:
		return "skipped(empty-label)"
	case StatusSkippedDecodeFailure:
		return "skipped(decode-failure)"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is the tagged per-image result consumed by the runner.
// Metrics is meaningful only when Status is StatusEvaluated, Err only
// when Status is StatusFailed.
type Outcome struct {
	Image   string
	Status  Status
	Metrics ImageMetrics
	Err     error
}

// Detector produces predicted boxes for one decoded frame, in absolute
// corner-form pixel coordinates of the original image. All returned
// boxes participate in matching; the runner applies no class or
// confidence filtering of its own.
type Detector interface {
	Detect(frame *images.Frame) ([]images.Rect, error)
}

// Config holds the runner parameters.
type Config struct {
	// LabelsDir is the directory holding <stem>.txt ground-truth files.
	LabelsDir string `json:"labels_dir"`
	// BatchSize is the number of images per batch. The last batch may
	// be smaller. Defaults to 5.
	BatchSize int `json:"batch_size"`
	// IoUThreshold is the match acceptance threshold. Defaults to
	// DefaultIoUThreshold.
	IoUThreshold float32 `json:"iou_threshold"`
}

// Runner drives the per-image evaluation pipeline across a dataset in
// fixed-size batches, strictly sequentially: one image is fully
// processed before the next begins, so resource reclamation at image
// and batch boundaries never races outstanding work.
type Runner struct {
	detector Detector
	config   Config

	// Injection points for tests; production defaults decode with
	// gocv, release memory via the runtime and log with the stdlib
	// logger.
	decode  func(path string) (*images.Frame, error)
	reclaim func()
	logf    func(format string, args ...any)

	metrics DatasetMetrics
}

// NewRunner creates a runner for the given detector and config,
// filling unset config fields with defaults.
func NewRunner(detector Detector, config Config) *Runner {
	if config.BatchSize <= 0 {
		config.BatchSize = 5
	}
	if config.IoUThreshold <= 0 {
		config.IoUThreshold = DefaultIoUThreshold
	}

	return &Runner{
		detector: detector,
		config:   config,
		decode:   images.OpenFrame,
		reclaim:  debug.FreeOSMemory,
		logf:     log.Printf,
	}
}

// Run evaluates imagePaths in order and returns the finalized summary
// together with every per-image outcome.
//
// The loop polls ctx at batch and image boundaries only; cancellation
// is not an error and unwinds directly to finalization, which runs
// exactly once on every exit path with whatever was accumulated so far.
// No failure above per-image granularity terminates the run.
func (r *Runner) Run(ctx context.Context, imagePaths []string) (Summary, []Outcome) {
	outcomes := make([]Outcome, 0, len(imagePaths))
	totalBatches := (len(imagePaths) + r.config.BatchSize - 1) / r.config.BatchSize

batches:
	for start := 0; start < len(imagePaths); start += r.config.BatchSize {
		if ctx.Err() != nil {
			r.logf("interrupted, finalizing with %d image(s) accumulated", r.metrics.Valid())
			break
		}

		// Coarse release before each batch; transient decode and
		// inference buffers from the previous batch must be gone
		// before the next one starts.
		r.reclaim()

		end := min(start+r.config.BatchSize, len(imagePaths))
		r.logf("processing batch %d/%d", start/r.config.BatchSize+1, totalBatches)

		for _, path := range imagePaths[start:end] {
			if ctx.Err() != nil {
				r.logf("interrupted, finalizing with %d image(s) accumulated", r.metrics.Valid())
				break batches
			}

			outcome := r.evaluateImage(path)
			outcomes = append(outcomes, outcome)
			if outcome.Status == StatusEvaluated {
				r.metrics.Add(outcome.Metrics)
			}
			r.report(outcome)

			// Unconditional per-image release, failures included.
			r.reclaim()
		}

		r.reclaim()
	}

	return r.finalize(), outcomes
}

// evaluateImage runs the full pipeline for a single image and maps
// every failure class to its terminal outcome. Panics are caught here
// so one corrupt image can never abort the run.
func (r *Runner) evaluateImage(path string) (outcome Outcome) {
	outcome = Outcome{Image: path}

	defer func() {
		if rec := recover(); rec != nil {
			outcome.Status = StatusFailed
			outcome.Err = errors.Errorf("panic: %v", rec)
		}
	}()

	labelPath := dataset.LabelPath(r.config.LabelsDir, path)
	if _, err := os.Stat(labelPath); err != nil {
		outcome.Status = StatusSkippedNoLabel
		return outcome
	}

	records, err := labels.Load(labelPath)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}
	if len(records) == 0 {
		outcome.Status = StatusSkippedEmptyLabel
		return outcome
	}

	frame, err := r.decode(path)
	if err != nil {
		outcome.Status = StatusSkippedDecodeFailure
		return outcome
	}
	defer frame.Close()

	groundTruth := labels.Convert(records, frame.Width, frame.Height)
	gtBoxes := make([]images.Rect, len(groundTruth))
	for i, a := range groundTruth {
		gtBoxes[i] = a.Box
	}

	detections, err := r.detector.Detect(frame)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = errors.Wrap(err, "inference")
		return outcome
	}

	matches := MatchGreedy(gtBoxes, detections, r.config.IoUThreshold)

	outcome.Status = StatusEvaluated
	outcome.Metrics = ComputeImageMetrics(len(gtBoxes), len(detections), len(matches))
	return outcome
}

// report writes the per-image summary line for the run log.
func (r *Runner) report(o Outcome) {
	name := filepath.Base(o.Image)

	switch o.Status {
	case StatusEvaluated:
		m := o.Metrics
		r.logf("%s → TP=%d, FP=%d, FN=%d, precision=%.2f, recall=%.2f",
			name, m.TruePositives, m.FalsePositives, m.FalseNegatives, m.Precision, m.Recall)
	case StatusSkippedNoLabel:
		r.logf("[WARN] no label for %s", name)
	case StatusSkippedEmptyLabel:
		r.logf("[WARN] empty label in %s", name)
	case StatusSkippedDecodeFailure:
		r.logf("[ERROR] failed to read image: %s", o.Image)
	case StatusFailed:
		r.logf("[ERROR] failed to process %s: %v", name, o.Err)
	}
}

// finalize reports the dataset-level means. It is reached on every
// exit path of Run and never divides by a zero valid-image count.
func (r *Runner) finalize() Summary {
	s := r.metrics.Summarize()

	if s.ValidImages > 0 {
		r.logf("mean precision: %.4f", s.MeanPrecision)
		r.logf("mean recall: %.4f", s.MeanRecall)
	} else {
		r.logf("no valid images processed; check paths and label format")
	}
	r.logf("evaluation complete")

	return s
}
