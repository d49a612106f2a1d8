package clip

import (
	"fmt"
	"image"
	"image/draw"

	"inpaintprep/internal/domain/mask"
	"inpaintprep/internal/types"
)

// ComposeComparison builds the side-by-side comparison sequence: each output
// frame is original | masked | mask | generated, left to right, width 4*W.
//
// The displayed black-out is recomputed from the binary mask under the
// maskBackground polarity rather than taken from the masked input, which may
// carry a substituted first frame after policy adjustment. The masked input
// still participates in the shape precondition.
func ComposeComparison(
	orig types.FrameSequence,
	masked types.FrameSequence,
	masks types.MaskSequence,
	generated types.FrameSequence,
	maskBackground bool,
) (types.FrameSequence, error) {
	if err := checkShapes(orig, masked, masks, generated); err != nil {
		return nil, err
	}

	b := orig[0].Bounds()
	w, h := b.Dx(), b.Dy()

	out := make(types.FrameSequence, 0, len(orig))
	for i := range orig {
		display := mask.Blackout(orig[i], masks[i])
		rendered := mask.Render(masks[i], maskBackground)

		frame := image.NewRGBA(image.Rect(0, 0, 4*w, h))
		panels := []image.Image{orig[i], display, grayToRGBA(rendered), generated[i]}
		for p, img := range panels {
			r := image.Rect(p*w, 0, (p+1)*w, h)
			draw.Draw(frame, r, img, img.Bounds().Min, draw.Src)
		}
		out = append(out, frame)
	}
	return out, nil
}

func checkShapes(
	orig, masked types.FrameSequence,
	masks types.MaskSequence,
	generated types.FrameSequence,
) error {
	if len(orig) == 0 {
		return &ShapeMismatchError{Sequence: "original", Index: -1, Want: "non-empty", Got: "empty"}
	}
	n := len(orig)
	ref := orig[0].Bounds()

	lens := []struct {
		name string
		n    int
	}{
		{"masked", len(masked)},
		{"masks", len(masks)},
		{"generated", len(generated)},
	}
	for _, l := range lens {
		if l.n != n {
			return &ShapeMismatchError{
				Sequence: l.name, Index: -1,
				Want: fmt.Sprintf("length %d", n),
				Got:  fmt.Sprintf("length %d", l.n),
			}
		}
	}

	for i := 0; i < n; i++ {
		for _, s := range []struct {
			name   string
			bounds image.Rectangle
		}{
			{"original", orig[i].Bounds()},
			{"masked", masked[i].Bounds()},
			{"masks", masks[i].Bounds()},
			{"generated", generated[i].Bounds()},
		} {
			if s.bounds.Dx() != ref.Dx() || s.bounds.Dy() != ref.Dy() {
				return &ShapeMismatchError{
					Sequence: s.name, Index: i,
					Want: fmt.Sprintf("%dx%d", ref.Dx(), ref.Dy()),
					Got:  fmt.Sprintf("%dx%d", s.bounds.Dx(), s.bounds.Dy()),
				}
			}
		}
	}
	return nil
}

// grayToRGBA replicates a single-channel mask into three channels for
// display next to the color panels.
func grayToRGBA(g *image.Gray) *image.RGBA {
	out := image.NewRGBA(g.Bounds())
	for i, v := range g.Pix {
		out.Pix[4*i+0] = v
		out.Pix[4*i+1] = v
		out.Pix[4*i+2] = v
		out.Pix[4*i+3] = 255
	}
	return out
}
