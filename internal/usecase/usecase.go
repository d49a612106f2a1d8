package usecase

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"inpaintprep/internal/domain/clip"
	"inpaintprep/internal/domain/mask"
	"inpaintprep/internal/domain/policy"
	"inpaintprep/internal/ports"
	"inpaintprep/internal/types"
)

type Deps struct {
	Source    ports.ClipSource
	Generator ports.VideoGenerator
	// Inpainter is optional; when nil the first frame is not substituted.
	Inpainter ports.ImageInpainter
	// Captioner is optional; when nil the image-inpainting prompt falls back
	// to the video description.
	Captioner ports.Captioner
	Encoder   ports.VideoEncoder
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	// Prompt is the video-level description.
	Prompt string

	SkipStart int
	SkipEnd   int

	// Frames is the generation clip length; DownSampleFPS the target rate
	// (0 keeps the source rate).
	Frames        int
	DownSampleFPS int

	Policy     policy.Config
	Strength   float64
	Seed       int64
	DilateSize int

	LongVideo      bool
	OverlapFrames  int
	PrevClipWeight float64

	// OutPath is the caller-chosen output video path; the resample-rate
	// suffix is appended before encoding.
	OutPath string

	Logf func(format string, args ...any)
}

type Result struct {
	// OutputPath is the encoded comparison video, fps suffix included.
	OutputPath string
	// ImagePrompt is the resolved image-inpainting prompt ("" when no
	// substitution ran).
	ImagePrompt string
	// FPS is the resampled rate the output was encoded at.
	FPS int
	// FrameCount is the generated (stitched) length.
	FrameCount int
}

// Run drives one generation: load, resample, first-frame policy, per-window
// generative calls, stitching, ground-truth restoration, comparison
// composition and encoding. Windows are processed strictly in increasing
// start order; each blend depends on its predecessor's tail.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	logf := in.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	src, err := u.d.Source.Load(ctx, in.SkipStart, in.SkipEnd)
	if err != nil {
		return Result{}, err
	}
	logf("loaded %d frames at %d fps", src.Len(), src.FPS)

	rc, err := clip.Resample(src, in.DownSampleFPS, in.Frames, in.LongVideo)
	if err != nil {
		return Result{}, err
	}
	logf("resampled to %d frames at %d fps", rc.Len(), rc.FPS)

	if in.DilateSize > 0 {
		dilated := make(types.MaskSequence, rc.Len())
		for i, m := range rc.Masks {
			dilated[i] = mask.Dilate(m, in.DilateSize)
		}
		rc.Masks = dilated
	}

	// Ground truth for post-generation restoration, captured before any
	// substitution touches index 0.
	gtFrame0 := rc.Frames[0]

	imagePrompt := ""
	if u.d.Inpainter != nil {
		rc, imagePrompt, err = u.substituteFirstFrame(ctx, rc, in, logf)
		if err != nil {
			return Result{}, err
		}
	}

	rc, saved, err := policy.Apply(rc, in.Policy)
	if err != nil {
		return Result{}, err
	}
	saved.Frame0 = gtFrame0

	conditioning := rc.Masked[0]

	total := in.Frames
	if in.LongVideo {
		total = rc.Len()
	}
	windows := clip.Schedule(total, in.Frames, in.OverlapFrames, in.PrevClipWeight)

	genClips := make([]types.FrameSequence, 0, len(windows))
	for k, w := range windows {
		sub := clip.Slice(rc, w.Start, w.End())
		logf("generating window %d/%d [%d, %d)", k+1, len(windows), w.Start, w.End())
		gen, err := u.d.Generator.Generate(ctx, ports.GenerateRequest{
			Prompt:         in.Prompt,
			Image:          conditioning,
			NumFrames:      in.Frames,
			Masked:         sub.Masked,
			Masks:          sub.Masks,
			MaskBackground: in.Policy.MaskBackground,
			Strength:       in.Strength,
			ReplaceGT:      in.Policy.ReplaceGT,
			MaskAdd:        in.Policy.MaskAdd,
			Stride:         in.Frames - in.OverlapFrames,
			PrevClipWeight: in.PrevClipWeight,
			Seed:           in.Seed,
		})
		if err != nil {
			return Result{}, err
		}
		genClips = append(genClips, gen)
	}
	generated := clip.Stitch(genClips, windows, total)

	policy.Restore(rc.Frames, rc.Masks, saved)

	n := len(generated)
	comparison, err := clip.ComposeComparison(
		rc.Frames[:n], rc.Masked[:n], rc.Masks[:n], generated,
		in.Policy.MaskBackground,
	)
	if err != nil {
		return Result{}, err
	}

	outPath := withFPSSuffix(in.OutPath, rc.FPS)
	if err := u.d.Encoder.Encode(ctx, comparison, rc.FPS, outPath); err != nil {
		return Result{}, err
	}
	logf("wrote %s (%d frames)", outPath, n)

	return Result{
		OutputPath:  outPath,
		ImagePrompt: imagePrompt,
		FPS:         rc.FPS,
		FrameCount:  n,
	}, nil
}

// substituteFirstFrame resolves the image-inpainting prompt, calls the
// still-image collaborator on frame 0 and swaps the completed image into the
// clip. The masked foreground and the inpainted result are written beside
// the output for inspection.
//
// The fill region depends on the polarity: the marked object by default, its
// complement under MaskBackground. Both the inpainter mask and the caption
// image are derived from the resolved region.
func (u Usecase) substituteFirstFrame(
	ctx context.Context,
	rc types.AlignedClip,
	in Input,
	logf func(string, ...any),
) (types.AlignedClip, string, error) {
	fillMask := mask.Render(rc.Masks[0], in.Policy.MaskBackground)
	foreground := mask.Foreground(rc.Frames[0], fillMask)

	imagePrompt := in.Prompt
	var err error
	switch {
	case u.d.Captioner != nil && in.Policy.AddFirst:
		// Frame 0 is generated from scratch: the prompt describes the whole
		// frame statically, not just the masked foreground.
		imagePrompt, err = u.d.Captioner.DescribeFirstFrame(ctx, in.Prompt)
		if err != nil {
			return types.AlignedClip{}, "", fmt.Errorf("caption first frame: %w", err)
		}
	case u.d.Captioner != nil:
		imagePrompt, err = u.d.Captioner.DescribeMasked(ctx, foreground)
		if err != nil {
			return types.AlignedClip{}, "", fmt.Errorf("caption masked frame: %w", err)
		}
	default:
		logf("no captioner configured, using video description as inpainting prompt")
	}
	logf("image inpainting prompt: %s", imagePrompt)

	b := rc.Frames[0].Bounds()
	inpainted, err := u.d.Inpainter.Inpaint(ctx, ports.InpaintRequest{
		Prompt: imagePrompt,
		Image:  rc.Frames[0],
		Mask:   fillMask,
		Height: b.Dy(),
		Width:  b.Dx(),
		Seed:   in.Seed,
	})
	if err != nil {
		return types.AlignedClip{}, "", fmt.Errorf("inpaint first frame: %w", err)
	}

	if err := writeArtifact(artifactPath(in.OutPath, "_gt.png"), foreground); err != nil {
		return types.AlignedClip{}, "", err
	}
	if err := writeArtifact(artifactPath(in.OutPath, "_inpaint.png"), inpainted); err != nil {
		return types.AlignedClip{}, "", err
	}

	return policy.Substitute(rc, inpainted), imagePrompt, nil
}

func writeArtifact(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// withFPSSuffix turns out.mp4 into out_fps8.mp4.
func withFPSSuffix(path string, fps int) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + fmt.Sprintf("_fps%d%s", fps, ext)
}

func artifactPath(outPath, suffix string) string {
	ext := filepath.Ext(outPath)
	return strings.TrimSuffix(outPath, ext) + suffix
}
