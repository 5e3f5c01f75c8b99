package eval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfvision/shelfeval/images"
)

// stubDetector lets each test script the model collaborator.
type stubDetector struct {
	fn func(frame *images.Frame) ([]images.Rect, error)
}

func (d *stubDetector) Detect(frame *images.Frame) ([]images.Rect, error) {
	return d.fn(frame)
}

// newTestRunner builds a runner with a scripted detector, an in-memory
// 100x100 decode stub and silenced logging.
func newTestRunner(t *testing.T, labelsDir string, detect func(*images.Frame) ([]images.Rect, error)) *Runner {
	t.Helper()

	r := NewRunner(&stubDetector{fn: detect}, Config{LabelsDir: labelsDir})
	r.decode = func(path string) (*images.Frame, error) {
		return &images.Frame{Path: path, Width: 100, Height: 100}, nil
	}
	r.reclaim = func() {}
	r.logf = func(string, ...any) {}
	return r
}

func writeLabel(t *testing.T, dir, stem, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stem+".txt"), []byte(content), 0o644))
}

func TestRunnerEvaluatesMatchingDetection(t *testing.T) {
	labelsDir := t.TempDir()
	writeLabel(t, labelsDir, "img1", "0 0.5 0.5 0.2 0.2\n")

	r := newTestRunner(t, labelsDir, func(*images.Frame) ([]images.Rect, error) {
		return []images.Rect{{X1: 40, Y1: 40, X2: 60, Y2: 60}}, nil
	})

	summary, outcomes := r.Run(context.Background(), []string{"img1.jpg"})

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusEvaluated, outcomes[0].Status)
	assert.Equal(t, ImageMetrics{TruePositives: 1, Precision: 1, Recall: 1}, outcomes[0].Metrics)
	assert.Equal(t, 1, summary.ValidImages)
	assert.InDelta(t, 1.0, summary.MeanPrecision, 1e-9)
	assert.InDelta(t, 1.0, summary.MeanRecall, 1e-9)
}

func TestRunnerEvaluatesMissedDetection(t *testing.T) {
	labelsDir := t.TempDir()
	writeLabel(t, labelsDir, "img1", "0 0.5 0.5 0.2 0.2\n")

	r := newTestRunner(t, labelsDir, func(*images.Frame) ([]images.Rect, error) {
		return []images.Rect{{X1: 70, Y1: 70, X2: 90, Y2: 90}}, nil
	})

	summary, outcomes := r.Run(context.Background(), []string{"img1.jpg"})

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusEvaluated, outcomes[0].Status)
	assert.Equal(t, ImageMetrics{FalsePositives: 1, FalseNegatives: 1}, outcomes[0].Metrics)
	assert.Equal(t, 1, summary.ValidImages)
	assert.Zero(t, summary.MeanPrecision)
	assert.Zero(t, summary.MeanRecall)
}

func TestRunnerZeroDetectionsStillEvaluated(t *testing.T) {
	labelsDir := t.TempDir()
	writeLabel(t, labelsDir, "img1", "0 0.5 0.5 0.2 0.2\n")

	r := newTestRunner(t, labelsDir, func(*images.Frame) ([]images.Rect, error) {
		return nil, nil
	})

	summary, outcomes := r.Run(context.Background(), []string{"img1.jpg"})

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusEvaluated, outcomes[0].Status)
	assert.Zero(t, outcomes[0].Metrics.Precision)
	assert.Zero(t, outcomes[0].Metrics.Recall)
	assert.Equal(t, 1, outcomes[0].Metrics.FalseNegatives)
	// The zeros contribute to the dataset mean.
	assert.Equal(t, 1, summary.ValidImages)
}

func TestRunnerSkipsMissingLabel(t *testing.T) {
	r := newTestRunner(t, t.TempDir(), func(*images.Frame) ([]images.Rect, error) {
		t.Fatal("detector must not run for a skipped image")
		return nil, nil
	})

	summary, outcomes := r.Run(context.Background(), []string{"img1.jpg"})

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusSkippedNoLabel, outcomes[0].Status)
	assert.Zero(t, summary.ValidImages)
}

func TestRunnerSkipsEmptyLabel(t *testing.T) {
	labelsDir := t.TempDir()
	writeLabel(t, labelsDir, "img1", "\n")

	r := newTestRunner(t, labelsDir, func(*images.Frame) ([]images.Rect, error) {
		t.Fatal("detector must not run for a skipped image")
		return nil, nil
	})

	summary, outcomes := r.Run(context.Background(), []string{"img1.jpg"})

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusSkippedEmptyLabel, outcomes[0].Status)
	assert.Zero(t, summary.ValidImages)
}

func TestRunnerSkipsDecodeFailure(t *testing.T) {
	labelsDir := t.TempDir()
	writeLabel(t, labelsDir, "img1", "0 0.5 0.5 0.2 0.2\n")

	r := newTestRunner(t, labelsDir, func(*images.Frame) ([]images.Rect, error) {
		t.Fatal("detector must not run when decoding failed")
		return nil, nil
	})
	r.decode = func(path string) (*images.Frame, error) {
		return nil, fmt.Errorf("failed to decode image: %s", path)
	}

	summary, outcomes := r.Run(context.Background(), []string{"img1.jpg"})

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusSkippedDecodeFailure, outcomes[0].Status)
	assert.Zero(t, summary.ValidImages)
}

func TestRunnerIsolatesPerImageFailure(t *testing.T) {
	labelsDir := t.TempDir()
	paths := make([]string, 5)
	for i := range paths {
		stem := fmt.Sprintf("img%d", i+1)
		writeLabel(t, labelsDir, stem, "0 0.5 0.5 0.2 0.2\n")
		paths[i] = stem + ".jpg"
	}

	r := newTestRunner(t, labelsDir, func(frame *images.Frame) ([]images.Rect, error) {
		if filepath.Base(frame.Path) == "img3.jpg" {
			return nil, fmt.Errorf("tensor shape mismatch")
		}
		return []images.Rect{{X1: 40, Y1: 40, X2: 60, Y2: 60}}, nil
	})

	summary, outcomes := r.Run(context.Background(), paths)

	require.Len(t, outcomes, 5)
	for i, o := range outcomes {
		if i == 2 {
			assert.Equal(t, StatusFailed, o.Status)
			assert.Error(t, o.Err)
			continue
		}
		assert.Equal(t, StatusEvaluated, o.Status, "image %d", i+1)
	}

	// The failed image is excluded from the means.
	assert.Equal(t, 4, summary.ValidImages)
	assert.InDelta(t, 1.0, summary.MeanPrecision, 1e-9)
	assert.InDelta(t, 1.0, summary.MeanRecall, 1e-9)
}

func TestRunnerIsolatesDetectorPanic(t *testing.T) {
	labelsDir := t.TempDir()
	writeLabel(t, labelsDir, "img1", "0 0.5 0.5 0.2 0.2\n")
	writeLabel(t, labelsDir, "img2", "0 0.5 0.5 0.2 0.2\n")

	r := newTestRunner(t, labelsDir, func(frame *images.Frame) ([]images.Rect, error) {
		if filepath.Base(frame.Path) == "img1.jpg" {
			panic("index out of range")
		}
		return []images.Rect{{X1: 40, Y1: 40, X2: 60, Y2: 60}}, nil
	})

	summary, outcomes := r.Run(context.Background(), []string{"img1.jpg", "img2.jpg"})

	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.Equal(t, StatusEvaluated, outcomes[1].Status)
	assert.Equal(t, 1, summary.ValidImages)
}

func TestRunnerReclaimsAtEveryCheckpoint(t *testing.T) {
	labelsDir := t.TempDir()
	paths := make([]string, 5)
	for i := range paths {
		stem := fmt.Sprintf("img%d", i+1)
		writeLabel(t, labelsDir, stem, "0 0.5 0.5 0.2 0.2\n")
		paths[i] = stem + ".jpg"
	}

	r := newTestRunner(t, labelsDir, func(*images.Frame) ([]images.Rect, error) {
		return nil, fmt.Errorf("boom")
	})
	r.config.BatchSize = 2

	reclaims := 0
	r.reclaim = func() { reclaims++ }

	r.Run(context.Background(), paths)

	// 3 batches (before + after each) plus one release per image,
	// failures included.
	assert.Equal(t, 11, reclaims)
}

func TestRunnerCancelledBeforeStart(t *testing.T) {
	labelsDir := t.TempDir()
	writeLabel(t, labelsDir, "img1", "0 0.5 0.5 0.2 0.2\n")

	r := newTestRunner(t, labelsDir, func(*images.Frame) ([]images.Rect, error) {
		return []images.Rect{{X1: 40, Y1: 40, X2: 60, Y2: 60}}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, outcomes := r.Run(ctx, []string{"img1.jpg"})

	// Finalization still runs, with nothing accumulated.
	assert.Empty(t, outcomes)
	assert.Zero(t, summary.ValidImages)
}

func TestRunnerCancelledMidRun(t *testing.T) {
	labelsDir := t.TempDir()
	paths := make([]string, 3)
	for i := range paths {
		stem := fmt.Sprintf("img%d", i+1)
		writeLabel(t, labelsDir, stem, "0 0.5 0.5 0.2 0.2\n")
		paths[i] = stem + ".jpg"
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := newTestRunner(t, labelsDir, func(*images.Frame) ([]images.Rect, error) {
		cancel() // request a stop while the first image is in flight
		return []images.Rect{{X1: 40, Y1: 40, X2: 60, Y2: 60}}, nil
	})

	summary, outcomes := r.Run(ctx, paths)

	// The in-flight image completes; the loop stops at the next
	// boundary and finalizes with what was accumulated.
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusEvaluated, outcomes[0].Status)
	assert.Equal(t, 1, summary.ValidImages)
	assert.InDelta(t, 1.0, summary.MeanPrecision, 1e-9)
}

func TestRunnerSummaryLogLines(t *testing.T) {
	labelsDir := t.TempDir()
	writeLabel(t, labelsDir, "img1", "0 0.5 0.5 0.2 0.2\n")

	r := newTestRunner(t, labelsDir, func(*images.Frame) ([]images.Rect, error) {
		return []images.Rect{{X1: 40, Y1: 40, X2: 60, Y2: 60}}, nil
	})

	var lines []string
	r.logf = func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	r.Run(context.Background(), []string{"img1.jpg"})

	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "img1.jpg → TP=1, FP=0, FN=0, precision=1.00, recall=1.00")
	assert.Contains(t, joined, "mean precision: 1.0000")
	assert.Contains(t, joined, "mean recall: 1.0000")
}

func TestRunnerNoValidImagesNotice(t *testing.T) {
	r := newTestRunner(t, t.TempDir(), func(*images.Frame) ([]images.Rect, error) {
		return nil, nil
	})

	var lines []string
	r.logf = func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	summary, _ := r.Run(context.Background(), []string{"img1.jpg"})

	assert.Zero(t, summary.ValidImages)
	assert.Contains(t, strings.Join(lines, "\n"), "no valid images processed")
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "evaluated", StatusEvaluated.String())
	assert.Equal(t, "skipped(no-label)", StatusSkippedNoLabel.String())
	assert.Equal(t, "skipped(empty-label)", StatusSkippedEmptyLabel.String())
	assert.Equal(t, "skipped(decode-failure)", StatusSkippedDecodeFailure.String())
	assert.Equal(t, "failed", StatusFailed.String())
}
