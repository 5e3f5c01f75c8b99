package images

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Frame is a decoded raster with known pixel dimensions. The pixel
// buffer is owned by the frame and released by Close.
type Frame struct {
	Path   string
	Width  int
	Height int
	mat    *gocv.Mat
}

// OpenFrame decodes the image at path into a Frame.
//
// Returns an error when the file cannot be read or decoded; the caller
// owns the returned frame and must Close it.
func OpenFrame(path string) (*Frame, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, errors.Errorf("failed to decode image: %s", path)
	}

	return &Frame{
		Path:   path,
		Width:  mat.Cols(),
		Height: mat.Rows(),
		mat:    &mat,
	}, nil
}

// Mat returns the underlying pixel buffer. The buffer is only valid
// until Close is called.
func (f *Frame) Mat() gocv.Mat {
	if f.mat == nil {
		return gocv.Mat{}
	}
	return *f.mat
}

// Close releases the decoded pixel buffer. It is safe to call more than
// once and on frames that never held a buffer.
func (f *Frame) Close() {
	if f.mat == nil {
		return
	}
	f.mat.Close()
	f.mat = nil
}
