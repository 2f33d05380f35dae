package ocr

import (
	"image"
	"image/color"
	"math"

	// Formats beyond the stdlib set that plate cameras and phones produce.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Equalize converts img to 8-bit gray and spreads its histogram over the full range.
// An image with a single gray level is returned as gray without remapping.
func Equalize(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(b)

	var hist [256]int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			gray.SetGray(x, y, g)
			hist[g.Y]++
		}
	}

	total := b.Dx() * b.Dy()
	cdfMin := 0
	for _, n := range hist {
		if n > 0 {
			cdfMin = n
			break
		}
	}
	if total == 0 || total == cdfMin {
		return gray
	}

	var lut [256]uint8
	cdf := 0
	scale := 255 / float64(total-cdfMin)
	for i, n := range hist {
		cdf += n
		v := math.Round(float64(cdf-cdfMin) * scale)
		lut[i] = uint8(math.Max(0, math.Min(255, v)))
	}

	for i, p := range gray.Pix {
		gray.Pix[i] = lut[p]
	}
	return gray
}
