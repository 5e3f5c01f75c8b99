package inference

import (
	"os"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/shelfvision/shelfeval/images"
)

// Detector runs a YOLO-family ONNX model through ONNX Runtime and
// returns predicted boxes in absolute corner-form pixel coordinates.
// It satisfies eval.Detector.
type Detector struct {
	config     Config
	candidates int

	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewDetector creates a detection session for the configured model.
// The caller owns the detector and must Close it.
func NewDetector(config Config) (*Detector, error) {
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model file not found: %s", config.ModelPath)
	}

	if config.LibraryPath != "" {
		ort.SetSharedLibraryPath(config.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "initializing onnxruntime environment")
		}
	}

	candidates := config.candidates()

	inputShape := ort.NewShape(1, 3, int64(config.InputSize), int64(config.InputSize))
	input, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, errors.Wrap(err, "creating input tensor")
	}

	outputShape := ort.NewShape(1, int64(4+config.NumClasses), int64(candidates))
	output, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "creating output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "creating session options")
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(4)
	options.SetInterOpNumThreads(2)
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	session, err := ort.NewAdvancedSession(
		config.ModelPath,
		[]string{config.InputName},
		[]string{config.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "creating onnx session")
	}

	return &Detector{
		config:     config,
		candidates: candidates,
		session:    session,
		input:      input,
		output:     output,
	}, nil
}

// Detect runs inference on a decoded frame. Returned boxes are scaled
// back to the frame's original pixel dimensions; confidence filtering
// and NMS happen here, inside the model collaborator, so every
// returned box participates in matching downstream.
func (d *Detector) Detect(frame *images.Frame) ([]images.Rect, error) {
	if err := d.prepareInput(frame); err != nil {
		return nil, err
	}

	if err := d.session.Run(); err != nil {
		return nil, errors.Wrap(err, "running onnx session")
	}

	detections := DecodeOutput(
		d.output.GetData(),
		d.config.NumClasses,
		d.candidates,
		d.config.ConfidenceThreshold,
		d.config.InputSize,
		frame.Width,
		frame.Height,
	)
	detections = ApplyGreedyNMS(detections, d.config.NMSThreshold)

	boxes := make([]images.Rect, len(detections))
	for i, det := range detections {
		boxes[i] = det.Box
	}
	return boxes, nil
}

// prepareInput fills the input tensor with the frame resized to the
// model resolution, planar RGB normalized to [0, 1].
func (d *Detector) prepareInput(frame *images.Frame) error {
	mat := frame.Mat()
	img, err := mat.ToImage()
	if err != nil {
		return errors.Wrap(err, "converting frame to image")
	}

	size := d.config.InputSize
	data := d.input.GetData()
	channelSize := size * size
	if len(data) < channelSize*3 {
		return errors.Errorf("input tensor holds %d floats, needs %d", len(data), channelSize*3)
	}

	red := data[0:channelSize]
	green := data[channelSize : channelSize*2]
	blue := data[channelSize*2 : channelSize*3]

	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)

	i := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
	return nil
}

// Close releases the session and its tensors.
func (d *Detector) Close() {
	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}
	if d.output != nil {
		d.output.Destroy()
		d.output = nil
	}
}
