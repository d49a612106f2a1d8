// Package mask holds the raster operations behind mask binarization,
// frame blackout and polarity-aware mask rendering.
package mask

import (
	"image"
	"image/color"
)

// Binarize thresholds a source segmentation raster against id: pixels equal
// to id become 255 (target region), everything else 0.
func Binarize(src *image.Gray, id uint8) *image.Gray {
	out := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		if v == id {
			out.Pix[i] = 255
		}
	}
	return out
}

// Blackout returns a copy of frame with every pixel selected by the binary
// mask (255) replaced with black. The input frame is not modified.
func Blackout(frame *image.RGBA, bin *image.Gray) *image.RGBA {
	out := image.NewRGBA(frame.Bounds())
	copy(out.Pix, frame.Pix)
	b := frame.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if bin.GrayAt(x, y).Y == 255 {
				out.SetRGBA(x, y, color.RGBA{A: 255})
			}
		}
	}
	return out
}

// Render produces the displayable 0/255 mask under the selected polarity.
// With background=true the target region renders black on white, otherwise
// white on black.
func Render(bin *image.Gray, background bool) *image.Gray {
	out := image.NewGray(bin.Bounds())
	for i, v := range bin.Pix {
		target := v == 255
		if background == target {
			out.Pix[i] = 0
		} else {
			out.Pix[i] = 255
		}
	}
	return out
}

// Foreground keeps the frame pixels selected by the binary mask and zeroes
// the rest. Used to build the caption input image: only the unmasked target
// remains visible.
func Foreground(frame *image.RGBA, bin *image.Gray) *image.RGBA {
	out := image.NewRGBA(frame.Bounds())
	b := frame.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if bin.GrayAt(x, y).Y == 255 {
				out.SetRGBA(x, y, frame.RGBAAt(x, y))
			} else {
				out.SetRGBA(x, y, color.RGBA{A: 255})
			}
		}
	}
	return out
}

// Dilate grows the 255 region by a size x size square structuring element.
// size <= 1 returns a plain copy.
func Dilate(bin *image.Gray, size int) *image.Gray {
	out := image.NewGray(bin.Bounds())
	if size <= 1 {
		copy(out.Pix, bin.Pix)
		return out
	}
	r := size / 2
	b := bin.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if maxInWindow(bin, x, y, r) == 255 {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

func maxInWindow(bin *image.Gray, cx, cy, r int) uint8 {
	b := bin.Bounds()
	var max uint8
	for y := cy - r; y <= cy+r; y++ {
		if y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		for x := cx - r; x <= cx+r; x++ {
			if x < b.Min.X || x >= b.Max.X {
				continue
			}
			if v := bin.GrayAt(x, y).Y; v > max {
				max = v
			}
		}
	}
	return max
}

// Solid returns a w x h mask filled with value v.
func Solid(w, h int, v uint8) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, w, h))
	for i := range out.Pix {
		out.Pix[i] = v
	}
	return out
}
