// Command evaluate runs a trained shelf-detection model against a
// human-labeled validation set and reports per-image and dataset-level
// precision/recall.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shelfvision/shelfeval/dataset"
	"github.com/shelfvision/shelfeval/eval"
	"github.com/shelfvision/shelfeval/inference"
)

const (
	// DefaultImagesDir is the validation image directory.
	DefaultImagesDir = "dataset/SKU110K_fixed/images/val"
	// DefaultLabelsDir is the ground-truth label directory.
	DefaultLabelsDir = "dataset/SKU110K_fixed/labels/val"
	// DefaultModelPath is the trained model export.
	DefaultModelPath = "detect/weights/best.onnx"
)

func main() {
	var (
		imagesDir    string
		labelsDir    string
		modelPath    string
		libraryPath  string
		batchSize    int
		iouThreshold float64
		confidence   float64
	)
	flag.StringVar(&imagesDir, "images", DefaultImagesDir, "Directory of validation images")
	flag.StringVar(&labelsDir, "labels", DefaultLabelsDir, "Directory of ground-truth label files")
	flag.StringVar(&modelPath, "model", DefaultModelPath, "Path to the ONNX model export")
	flag.StringVar(&libraryPath, "ort-lib", "", "Path to the onnxruntime shared library (empty for default)")
	flag.IntVar(&batchSize, "batch-size", 5, "Number of images per batch")
	flag.Float64Var(&iouThreshold, "iou", eval.DefaultIoUThreshold, "IoU a detection must exceed to count as a hit")
	flag.Float64Var(&confidence, "confidence", 0.5, "Detection confidence threshold")
	flag.Parse()

	paths, err := dataset.Images(imagesDir)
	if err != nil {
		log.Fatalf("Error listing validation images: %v", err)
	}
	if len(paths) == 0 {
		log.Fatalf("No images found in %s", imagesDir)
	}
	log.Printf("found %d images for processing", len(paths))

	config := inference.DefaultConfig()
	config.ModelPath = modelPath
	config.LibraryPath = libraryPath
	config.ConfidenceThreshold = float32(confidence)

	detector, err := inference.NewDetector(config)
	if err != nil {
		log.Fatalf("Error creating detector: %v", err)
	}
	defer detector.Close()

	// Ctrl-C stops the batch loop at the next image boundary; the
	// summary over everything accumulated so far still prints.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := eval.NewRunner(detector, eval.Config{
		LabelsDir:    labelsDir,
		BatchSize:    batchSize,
		IoUThreshold: float32(iouThreshold),
	})

	summary, _ := runner.Run(ctx, paths)
	if summary.ValidImages == 0 {
		os.Exit(1)
	}
}
