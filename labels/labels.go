// Package labels - Ground-truth annotation loading and conversion.
package labels

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/shelfvision/shelfeval/images"
)

// Record is one ground-truth box in normalized center form as stored in
// the label files: class identifier plus center, width and height, all
// in [0, 1] relative to the image dimensions.
type Record struct {
	Class  int
	CX, CY float32
	W, H   float32
}

// Annotation is one ground-truth box for a single image, in absolute
// corner-form pixel coordinates. Immutable after load.
type Annotation struct {
	Class int
	Box   images.Rect
}

// Load reads all ground-truth records from the label file at path.
//
// An empty result is valid and means the image carries no ground truth.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening label file %s", path)
	}
	defer f.Close()

	records, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading label file %s", path)
	}
	return records, nil
}

// Parse reads whitespace-delimited `class cx cy w h` records, one per
// line. Records with fewer than five fields, or with fields that do not
// parse as numbers, are dropped without failing the whole load. Fields
// past the fifth are ignored.
func Parse(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 {
			continue
		}

		values := make([]float64, 5)
		ok := true
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				ok = false
				break
			}
			values[i] = v
		}
		if !ok {
			continue
		}

		records = append(records, Record{
			Class: int(values[0]),
			CX:    float32(values[1]),
			CY:    float32(values[2]),
			W:     float32(values[3]),
			H:     float32(values[4]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// ToCorners converts the normalized center-form record into an absolute
// corner-form box for an image of the given pixel dimensions. Pure; the
// record is never mutated.
func (r Record) ToCorners(width, height int) images.Rect {
	w := float32(width)
	h := float32(height)
	return images.Rect{
		X1: (r.CX - r.W/2) * w,
		Y1: (r.CY - r.H/2) * h,
		X2: (r.CX + r.W/2) * w,
		Y2: (r.CY + r.H/2) * h,
	}
}

// Convert maps records to annotations in absolute pixel space.
func Convert(records []Record, width, height int) []Annotation {
	annotations := make([]Annotation, 0, len(records))
	for _, r := range records {
		annotations = append(annotations, Annotation{
			Class: r.Class,
			Box:   r.ToCorners(width, height),
		})
	}
	return annotations
}
