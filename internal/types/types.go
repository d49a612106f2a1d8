package types

import (
	"image"
	"time"
)

// FrameSequence is an ordered list of RGBA frames. All frames in a sequence
// share the same bounds.
type FrameSequence []*image.RGBA

// MaskSequence is an ordered list of single-channel binary masks (0/255),
// index-aligned 1:1 with a FrameSequence.
type MaskSequence []*image.Gray

// AlignedClip bundles the three sequences every pipeline stage exchanges.
// Index i in all three refers to the same temporal instant.
type AlignedClip struct {
	// Frames are the original (ground-truth) frames.
	Frames FrameSequence
	// Masked are the frames with the target region zeroed out.
	Masked FrameSequence
	// Masks are the binary target-region indicators.
	Masks MaskSequence
	// FPS is the frame rate the sequences were read (or resampled) at.
	FPS int
}

// Len returns the clip length in frames.
func (c AlignedClip) Len() int { return len(c.Frames) }

// Window is a contiguous [Start, Start+Length) slice of a long clip.
type Window struct {
	Start  int
	Length int
	// Overlap is the number of leading frames shared with the previous window.
	// Zero for the first window.
	Overlap int
	// BlendWeight is the previous clip's contribution over the overlap region.
	BlendWeight float64
	// Padded reports that the source ran out of frames and the window's input
	// was extended by repeating the last available frame.
	Padded bool
}

// End returns the exclusive end index of the window within the source clip.
func (w Window) End() int { return w.Start + w.Length }

// InpaintingRequest is the sidecar record written once per generation
// invocation, never updated afterwards.
type InpaintingRequest struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	MaskID      int       `json:"mask_id"`
	StartFrame  int       `json:"start_frame"`
	EndFrame    int       `json:"end_frame"`
	FPS         int       `json:"fps"`
	VideoPrompt string    `json:"video_inpainting_prompt"`
	ImagePrompt string    `json:"image_inpainting_prompt"`
	OutputPath  string    `json:"output_path"`
	Seed        int64     `json:"seed"`
	CreatedAt   time.Time `json:"created_at"`
}
