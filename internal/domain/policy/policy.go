// Package policy implements the first-frame override rules applied to index 0
// of a resampled clip before the generative call, and the matching restore
// step applied after it.
package policy

import (
	"fmt"
	"image"

	"inpaintprep/internal/domain/mask"
	"inpaintprep/internal/types"
)

// Config names the first-frame and masking policies. Conflicting
// combinations are rejected at construction, not silently resolved.
type Config struct {
	// FirstFrameGT empties the frame-0 mask so the model treats frame 0 as
	// already complete.
	FirstFrameGT bool
	// ReplaceGT and MaskAdd are conditioning knobs forwarded verbatim to the
	// generative collaborator.
	ReplaceGT bool
	MaskAdd   bool
	// AddFirst prepends special first-frame handling inside the collaborator.
	AddFirst bool
	// MaskBackground flips which region gets inpainted: the background
	// instead of the masked object. Masks keep the neutral 255=object
	// convention everywhere; the flag travels alongside them and selects the
	// fill region where one is materialized (image inpainting, display).
	MaskBackground bool
}

// PolicyConflictError reports contradictory first-frame flags.
type PolicyConflictError struct {
	Flags  []string
	Reason string
}

func (e *PolicyConflictError) Error() string {
	return fmt.Sprintf("conflicting policy flags %v: %s", e.Flags, e.Reason)
}

// Validate rejects flag combinations that demand contradictory treatment of
// index 0. These combinations were unreachable in the behavior this engine
// replaces, so they are refused outright rather than guessed at.
func (c Config) Validate() error {
	if c.FirstFrameGT && c.AddFirst {
		return &PolicyConflictError{
			Flags:  []string{"first_frame_gt", "add_first"},
			Reason: "both claim ownership of frame 0",
		}
	}
	if c.FirstFrameGT && c.MaskAdd {
		return &PolicyConflictError{
			Flags:  []string{"first_frame_gt", "mask_add"},
			Reason: "mask_add re-introduces a target region on a frame declared complete",
		}
	}
	if c.MaskAdd && !c.ReplaceGT {
		return &PolicyConflictError{
			Flags:  []string{"mask_add"},
			Reason: "requires replace_gt",
		}
	}
	return nil
}

// Saved holds the ground-truth index-0 values set aside by Apply and
// Substitute, for exact restoration after generation.
type Saved struct {
	Frame0 *image.RGBA
	Mask0  *image.Gray
}

// Apply returns a copy of the clip with the first-frame policy applied. With
// FirstFrameGT the mask at index 0 becomes all zero: no target region, no
// matter which polarity the run uses. The caller's clip is never mutated; the
// displaced ground-truth values are returned for Restore.
func Apply(c types.AlignedClip, cfg Config) (types.AlignedClip, Saved, error) {
	if err := cfg.Validate(); err != nil {
		return types.AlignedClip{}, Saved{}, err
	}
	if c.Len() == 0 {
		return c, Saved{}, nil
	}

	out := shallowCopy(c)
	saved := Saved{Frame0: c.Frames[0], Mask0: c.Masks[0]}

	if cfg.FirstFrameGT {
		b := c.Masks[0].Bounds()
		out.Masks[0] = mask.Solid(b.Dx(), b.Dy(), 0)
	}
	return out, saved, nil
}

// Substitute swaps an externally inpainted image into both the frame and
// masked-frame slots at index 0, so the generative model sees a pre-completed
// first frame. The ground truth stays in Saved for the comparison video.
func Substitute(c types.AlignedClip, inpainted *image.RGBA) types.AlignedClip {
	out := shallowCopy(c)
	out.Frames[0] = inpainted
	out.Masked[0] = inpainted
	return out
}

// Restore writes the saved ground-truth values back over index 0 of the
// given sequences. Sequences the caller passes as nil are skipped.
func Restore(frames types.FrameSequence, masks types.MaskSequence, saved Saved) {
	if len(frames) > 0 && saved.Frame0 != nil {
		frames[0] = saved.Frame0
	}
	if len(masks) > 0 && saved.Mask0 != nil {
		masks[0] = saved.Mask0
	}
}

func shallowCopy(c types.AlignedClip) types.AlignedClip {
	out := types.AlignedClip{
		Frames: make(types.FrameSequence, c.Len()),
		Masked: make(types.FrameSequence, c.Len()),
		Masks:  make(types.MaskSequence, c.Len()),
		FPS:    c.FPS,
	}
	copy(out.Frames, c.Frames)
	copy(out.Masked, c.Masked)
	copy(out.Masks, c.Masks)
	return out
}
