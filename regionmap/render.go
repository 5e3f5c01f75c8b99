package regionmap

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"os"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// regionColor returns a deterministic, reasonably bright color for a
// region ID so re-rendering a mapping always looks the same.
func regionColor(id int) color.RGBA {
	seed := uint32(id * 123)
	return color.RGBA{
		R: uint8(50 + (seed*2654435761)%206),
		G: uint8(50 + (seed*40503)%206),
		B: uint8(50 + (seed*9973)%206),
		A: 0,
	}
}

// Render draws every mapped item rectangle and its ID label onto the
// source image and writes the annotated copy to outPath.
//
// imagePath may be empty, in which case the path recorded in the
// mapping document is used.
func (m *Mapping) Render(imagePath, outPath string) error {
	if imagePath == "" {
		imagePath = m.Image.Path
	}

	img := gocv.IMRead(imagePath, gocv.IMReadColor)
	if img.Empty() {
		return errors.Errorf("failed to decode image: %s", imagePath)
	}
	defer img.Close()

	for _, region := range m.Regions {
		col := regionColor(region.ID)
		for _, item := range region.Items {
			c := item.Coords
			rect := image.Rect(c.XMin, c.YMin, c.XMax, c.YMax)
			gocv.Rectangle(&img, rect, col, 3)

			label := fmt.Sprintf("ID:%d-%d", region.ID, item.Number)
			size := gocv.GetTextSize(label, gocv.FontHersheySimplex, 0.7, 2)
			bg := image.Rect(c.XMin, c.YMin-size.Y-10, c.XMin+size.X+8, c.YMin)
			gocv.RectangleWithParams(&img, bg, col, -1, gocv.Line8, 0)
			gocv.PutText(&img, label, image.Pt(c.XMin+4, c.YMin-6),
				gocv.FontHersheySimplex, 0.7, color.RGBA{R: 255, G: 255, B: 255}, 2)
		}
	}

	if !gocv.IMWrite(outPath, img) {
		return errors.Errorf("failed to write annotated image: %s", outPath)
	}
	return nil
}

// Thumbnail writes a JPEG preview of the image at srcPath, downscaled
// to at most maxWidth pixels wide with aspect ratio preserved.
func Thumbnail(srcPath, outPath string, maxWidth uint) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return errors.Wrapf(err, "opening %s", srcPath)
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		return errors.Wrapf(err, "decoding %s", srcPath)
	}

	if uint(img.Bounds().Dx()) > maxWidth {
		img = resize.Resize(maxWidth, 0, img, resize.Lanczos3)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return errors.Wrapf(err, "creating %s", outPath)
	}
	defer out.Close()

	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 85}); err != nil {
		return errors.Wrapf(err, "encoding %s", outPath)
	}
	return nil
}
