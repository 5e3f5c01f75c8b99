// Package inference - ONNX Runtime detection sessions for evaluation.
package inference

// Config holds the detector session parameters.
type Config struct {
	// ModelPath is the path to the exported ONNX model.
	ModelPath string `json:"model_path"`

	// LibraryPath points to the onnxruntime shared library. Empty
	// leaves the library path at the onnxruntime_go default.
	LibraryPath string `json:"library_path"`

	// InputSize is the square model input resolution in pixels.
	InputSize int `json:"input_size"`

	// NumClasses is the number of classes in the model head.
	NumClasses int `json:"num_classes"`

	// InputName and OutputName are the model's tensor names.
	InputName  string `json:"input_name"`
	OutputName string `json:"output_name"`

	// ConfidenceThreshold filters candidates below this score before NMS.
	ConfidenceThreshold float32 `json:"confidence_threshold"`

	// NMSThreshold is the IoU above which overlapping candidates are
	// suppressed.
	NMSThreshold float32 `json:"nms_threshold"`
}

// DefaultConfig returns the configuration for a single-class YOLO
// export at 640x640, the shape the shelf model ships with.
func DefaultConfig() Config {
	return Config{
		InputSize:           640,
		NumClasses:          1,
		InputName:           "images",
		OutputName:          "output0",
		ConfidenceThreshold: 0.5,
		NMSThreshold:        0.7,
	}
}

// candidates returns the number of anchor candidates the model emits,
// one per cell of the three YOLO strides.
func (c Config) candidates() int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		cells := c.InputSize / stride
		n += cells * cells
	}
	return n
}
