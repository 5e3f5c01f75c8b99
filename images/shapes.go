// Package images - Image geometry and decoding utilities.
package images

import "github.com/chewxy/math32"

// Rect is a lightweight bounding box in absolute pixel coordinates,
// corner form: (X1, Y1) top-left, (X2, Y2) bottom-right.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// Canon returns the rectangle with its corners ordered so that
// X1 <= X2 and Y1 <= Y2.
func (r Rect) Canon() Rect {
	if r.X1 > r.X2 {
		r.X1, r.X2 = r.X2, r.X1
	}
	if r.Y1 > r.Y2 {
		r.Y1, r.Y2 = r.Y2, r.Y1
	}
	return r
}

// Area returns the area of the rectangle in square pixels. The rectangle
// must be in canonical form; degenerate rectangles have zero area.
func (r Rect) Area() float32 {
	return (r.X2 - r.X1) * (r.Y2 - r.Y1)
}

// CalculateIoU returns the intersection-over-union of two corner-form
// boxes as a value in [0, 1].
//
// The intersection rectangle spans from the maximum of the top-left
// corners to the minimum of the bottom-right corners; if the boxes do
// not overlap on either axis its area clamps to zero. The union follows
// inclusion-exclusion: Area(r) + Area(o) - intersection. A small epsilon
// in the denominator keeps the division defined when both boxes are
// degenerate.
//
// The function is pure and symmetric: CalculateIoU(a, b) == CalculateIoU(b, a).
func CalculateIoU(r, o Rect) float32 {
	ix1 := math32.Max(r.X1, o.X1)
	iy1 := math32.Max(r.Y1, o.Y1)
	ix2 := math32.Min(r.X2, o.X2)
	iy2 := math32.Min(r.Y2, o.Y2)

	inter := math32.Max(0, ix2-ix1) * math32.Max(0, iy2-iy1)

	return inter / (r.Area() + o.Area() - inter + 1e-6)
}
