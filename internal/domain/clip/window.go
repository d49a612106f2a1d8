package clip

import (
	"image"

	"inpaintprep/internal/types"
)

// Schedule computes the overlapping windows covering total frames with
// clips of the given length. Window k starts at k*(length-overlap), so
// consecutive windows share exactly overlap frames. The final window is
// marked Padded when the source runs short; its input is expected to repeat
// the last frame (see Slice) and the stitched output is trimmed back to
// total by Stitch.
func Schedule(total, length, overlap int, weight float64) []types.Window {
	if total <= 0 || length <= 0 {
		return nil
	}
	if overlap >= length {
		overlap = length - 1
	}
	if overlap < 0 {
		overlap = 0
	}

	var out []types.Window
	step := length - overlap
	for start := 0; ; start += step {
		w := types.Window{Start: start, Length: length, BlendWeight: weight}
		if start > 0 {
			w.Overlap = overlap
		}
		if start+length >= total {
			w.Padded = start+length > total
			out = append(out, w)
			return out
		}
		out = append(out, w)
	}
}

// Stitch reassembles per-window generated clips into one sequence, blending
// each clip's head over the previous clip's tail: for the overlap frames the
// output pixel is weight*prev + (1-weight)*curr. With overlap 0 the clips
// are concatenated. The result is trimmed to total frames.
func Stitch(clips []types.FrameSequence, windows []types.Window, total int) types.FrameSequence {
	var out types.FrameSequence
	for k, c := range clips {
		if k == 0 {
			out = append(out, c...)
			continue
		}
		w := windows[k]
		for i := 0; i < w.Overlap && i < len(c); i++ {
			oi := len(out) - w.Overlap + i
			out[oi] = blendFrames(out[oi], c[i], w.BlendWeight)
		}
		if w.Overlap < len(c) {
			out = append(out, c[w.Overlap:]...)
		}
	}
	if len(out) > total {
		out = out[:total]
	}
	return out
}

// blendFrames mixes two equally sized frames: weight*prev + (1-weight)*curr.
func blendFrames(prev, curr *image.RGBA, weight float64) *image.RGBA {
	out := image.NewRGBA(prev.Bounds())
	for i := range prev.Pix {
		out.Pix[i] = uint8(weight*float64(prev.Pix[i]) + (1-weight)*float64(curr.Pix[i]) + 0.5)
	}
	return out
}
