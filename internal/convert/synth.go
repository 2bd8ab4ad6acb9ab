package convert

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/bmp"
)

// GrayFunc returns the gray level of raster pixel (x, y).
type GrayFunc func(x, y int) uint8

// Synthesize writes a 24-bit BMP whose pixel (x, y), in the row order the
// chunk reader uses, has gray level fn(x, y). BMP stores rows bottom-up, so
// raster row 0 is the bottom row of the image.
func Synthesize(path string, width, height int, fn GrayFunc) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid raster size %dx%d", width, height)
	}
	if (width*3)%4 != 0 {
		return fmt.Errorf("width %d needs row padding, which the chunk reader does not handle", width)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := fn(x, y)
			img.SetRGBA(x, height-1-y, color.RGBA{R: g, G: g, B: g, A: 0xff})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating raster: %w", err)
	}
	if err := bmp.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("encoding raster: %w", err)
	}
	return file.Close()
}

// Ramp is a GrayFunc producing a diagonal gradient.
func Ramp(x, y int) uint8 {
	return uint8((x + y) % 256)
}
