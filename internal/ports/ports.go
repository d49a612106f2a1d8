package ports

import (
	"context"
	"image"

	"inpaintprep/internal/types"
)

// ClipSource loads an aligned frame/masked-frame/mask triple covering
// [skipStart, skipEnd) of the source. skipEnd < 0 means "to the end".
type ClipSource interface {
	Load(ctx context.Context, skipStart, skipEnd int) (types.AlignedClip, error)
}

// GenerateRequest is the conditioning handed to the video-inpainting
// collaborator. Sequences must already be resampled and policy-adjusted.
// Masks use the neutral 255=target convention; MaskBackground tells the
// model to inpaint the complement of the marked region instead.
type GenerateRequest struct {
	Prompt         string
	Image          *image.RGBA
	NumFrames      int
	Masked         types.FrameSequence
	Masks          types.MaskSequence
	MaskBackground bool
	Strength       float64
	ReplaceGT      bool
	MaskAdd        bool
	Stride         int
	PrevClipWeight float64
	Seed           int64
}

// VideoGenerator is the generative video-inpainting collaborator. It returns
// exactly NumFrames generated frames.
type VideoGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (types.FrameSequence, error)
}

// InpaintRequest asks the still-image collaborator to complete one frame.
// Mask marks the region to fill with 255; any polarity is resolved by the
// caller.
type InpaintRequest struct {
	Prompt string
	Image  *image.RGBA
	Mask   *image.Gray
	Height int
	Width  int
	Seed   int64
}

// ImageInpainter completes a single image; used only for frame-0
// substitution.
type ImageInpainter interface {
	Inpaint(ctx context.Context, req InpaintRequest) (*image.RGBA, error)
}

// Captioner turns a masked image or a video description into the short
// static prompt used for image inpainting. Its output is opaque text.
type Captioner interface {
	DescribeMasked(ctx context.Context, masked *image.RGBA) (string, error)
	DescribeFirstFrame(ctx context.Context, videoDescription string) (string, error)
}

// VideoEncoder serializes a frame sequence to a video file at the given fps.
type VideoEncoder interface {
	Encode(ctx context.Context, frames types.FrameSequence, fps int, outPath string) error
}

// RequestLog records one generation invocation for reproducibility.
type RequestLog interface {
	Record(ctx context.Context, req types.InpaintingRequest) error
}
