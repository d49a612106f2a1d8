// Package videosrc loads an aligned clip from a single video file plus a
// directory of indexed segmentation masks.
package videosrc

import (
	"context"

	"inpaintprep/internal/domain/clip"
	"inpaintprep/internal/domain/mask"
	"inpaintprep/internal/ports/adapters/ffmpeg"
	"inpaintprep/internal/ports/adapters/framedir"
	"inpaintprep/internal/types"
)

type Adapter struct {
	ff        *ffmpeg.Adapter
	videoPath string
	maskDir   string
	maskID    uint8
	// fps overrides the probed rate when > 0.
	fps int
}

func New(ff *ffmpeg.Adapter, videoPath, maskDir string, maskID uint8, fps int) *Adapter {
	return &Adapter{ff: ff, videoPath: videoPath, maskDir: maskDir, maskID: maskID, fps: fps}
}

// Load decodes the video, pairs it with the binarized mask directory and
// synthesizes the blacked-out frames. Frame and mask counts must match over
// the full source before the skip range is applied.
func (a *Adapter) Load(ctx context.Context, skipStart, skipEnd int) (types.AlignedClip, error) {
	info, err := a.ff.Probe(ctx, a.videoPath)
	if err != nil {
		return types.AlignedClip{}, err
	}
	frames, err := a.ff.DecodeFrames(ctx, a.videoPath, info)
	if err != nil {
		return types.AlignedClip{}, err
	}
	masks, err := framedir.LoadMasks(a.maskDir, a.maskID)
	if err != nil {
		return types.AlignedClip{}, err
	}
	if len(frames) != len(masks) {
		return types.AlignedClip{}, &clip.AlignmentError{Frames: len(frames), Masks: len(masks)}
	}

	fps := info.FPS
	if a.fps > 0 {
		fps = a.fps
	}

	frames = sliceFrames(frames, skipStart, skipEnd)
	masks = sliceMasks(masks, skipStart, skipEnd)

	out := types.AlignedClip{Frames: frames, Masks: masks, FPS: fps}
	for i := range frames {
		out.Masked = append(out.Masked, mask.Blackout(frames[i], masks[i]))
	}
	return out, nil
}

func sliceFrames(s types.FrameSequence, start, end int) types.FrameSequence {
	start, end = clampRange(len(s), start, end)
	return s[start:end]
}

func sliceMasks(s types.MaskSequence, start, end int) types.MaskSequence {
	start, end = clampRange(len(s), start, end)
	return s[start:end]
}

// clampRange normalizes [start, end) against length n; end < 0 means "to the
// end".
func clampRange(n, start, end int) (int, int) {
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if end < 0 {
		end = n + end + 1
	}
	if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	return start, end
}
