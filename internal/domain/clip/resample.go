// Package clip implements the temporal core: stride resampling, overlapping
// window scheduling with weighted blending, and the comparison compositor.
package clip

import (
	"inpaintprep/internal/types"
)

// Stride converts a source/target fps pair into the integer skip factor.
// Never less than 1; targetFPS == 0 keeps the source rate.
func Stride(srcFPS, targetFPS int) int {
	if targetFPS <= 0 || targetFPS >= srcFPS {
		return 1
	}
	return srcFPS / targetFPS
}

// Resample takes every stride-th frame of all three sequences and, unless
// longVideo is set, truncates to the first frames entries. The input clip is
// never modified.
//
// Returns InsufficientFramesError when fewer than frames entries survive
// resampling; the error carries the available count so the caller can retry
// with a smaller request.
func Resample(c types.AlignedClip, targetFPS, frames int, longVideo bool) (types.AlignedClip, error) {
	if len(c.Masks) != len(c.Frames) || len(c.Masked) != len(c.Frames) {
		return types.AlignedClip{}, &AlignmentError{Frames: len(c.Frames), Masks: len(c.Masks)}
	}

	stride := Stride(c.FPS, targetFPS)
	outFPS := c.FPS
	if targetFPS > 0 && targetFPS < c.FPS {
		outFPS = targetFPS
	}

	out := types.AlignedClip{FPS: outFPS}
	for i := 0; i < c.Len(); i += stride {
		out.Frames = append(out.Frames, c.Frames[i])
		out.Masked = append(out.Masked, c.Masked[i])
		out.Masks = append(out.Masks, c.Masks[i])
	}

	if out.Len() < frames {
		return types.AlignedClip{}, &InsufficientFramesError{Required: frames, Available: out.Len()}
	}
	if !longVideo {
		out.Frames = out.Frames[:frames]
		out.Masked = out.Masked[:frames]
		out.Masks = out.Masks[:frames]
	}
	return out, nil
}

// Slice returns the [start, end) sub-clip, padding by repeating the last
// available frame when end exceeds the clip length.
func Slice(c types.AlignedClip, start, end int) types.AlignedClip {
	out := types.AlignedClip{FPS: c.FPS}
	last := c.Len() - 1
	for i := start; i < end; i++ {
		j := i
		if j > last {
			j = last
		}
		out.Frames = append(out.Frames, c.Frames[j])
		out.Masked = append(out.Masked, c.Masked[j])
		out.Masks = append(out.Masks, c.Masks[j])
	}
	return out
}
