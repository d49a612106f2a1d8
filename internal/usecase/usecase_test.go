package usecase

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"inpaintprep/internal/domain/policy"
	"inpaintprep/internal/ports"
	"inpaintprep/internal/types"
)

// fakeSource serves a synthetic 16-frame clip at 24 fps. Frame i is filled
// with R=i and G=200 (so blacked-out pixels are distinguishable); every mask
// marks pixel (0,0) as the target region.
type fakeSource struct {
	frames int
	fps    int
}

func (f fakeSource) Load(_ context.Context, _, _ int) (types.AlignedClip, error) {
	c := types.AlignedClip{FPS: f.fps}
	for i := 0; i < f.frames; i++ {
		frame := image.NewRGBA(image.Rect(0, 0, 8, 8))
		for p := 0; p < len(frame.Pix); p += 4 {
			frame.Pix[p] = uint8(i)
			frame.Pix[p+1] = 200
			frame.Pix[p+3] = 255
		}
		m := image.NewGray(image.Rect(0, 0, 8, 8))
		m.SetGray(0, 0, color.Gray{Y: 255})
		c.Frames = append(c.Frames, frame)
		c.Masked = append(c.Masked, frame)
		c.Masks = append(c.Masks, m)
	}
	return c, nil
}

type fakeGenerator struct {
	requests []ports.GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req ports.GenerateRequest) (types.FrameSequence, error) {
	f.requests = append(f.requests, req)
	var out types.FrameSequence
	v := uint8(100 + 10*len(f.requests))
	for i := 0; i < req.NumFrames; i++ {
		frame := image.NewRGBA(image.Rect(0, 0, 8, 8))
		for p := 0; p < len(frame.Pix); p += 4 {
			frame.Pix[p] = v
			frame.Pix[p+3] = 255
		}
		out = append(out, frame)
	}
	return out, nil
}

type fakeEncoder struct {
	frames types.FrameSequence
	fps    int
	path   string
}

func (f *fakeEncoder) Encode(_ context.Context, frames types.FrameSequence, fps int, outPath string) error {
	f.frames = frames
	f.fps = fps
	f.path = outPath
	return nil
}

type fakeInpainter struct {
	requests []ports.InpaintRequest
}

func (f *fakeInpainter) Inpaint(_ context.Context, req ports.InpaintRequest) (*image.RGBA, error) {
	f.requests = append(f.requests, req)
	out := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for p := 0; p < len(out.Pix); p += 4 {
		out.Pix[p] = 99
		out.Pix[p+3] = 255
	}
	return out, nil
}

type fakeCaptioner struct {
	masked *image.RGBA
}

func (f *fakeCaptioner) DescribeMasked(_ context.Context, img *image.RGBA) (string, error) {
	f.masked = img
	return "A red soda can on a table.", nil
}

func (f *fakeCaptioner) DescribeFirstFrame(_ context.Context, _ string) (string, error) {
	return "A static first frame.", nil
}

func TestRun_SingleClip(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	enc := &fakeEncoder{}
	uc := New(Deps{
		Source:    fakeSource{frames: 16, fps: 24},
		Generator: gen,
		Encoder:   enc,
	})

	out := filepath.Join(t.TempDir(), "result.mp4")
	res, err := uc.Run(context.Background(), Input{
		Prompt:        "Ocean waves near the coastline.",
		SkipEnd:       -1,
		Frames:        6,
		DownSampleFPS: 8,
		Policy:        policy.Config{FirstFrameGT: true},
		Strength:      1.0,
		Seed:          42,
		OutPath:       out,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !strings.HasSuffix(res.OutputPath, "result_fps8.mp4") {
		t.Fatalf("missing fps suffix: %s", res.OutputPath)
	}
	if res.FPS != 8 || enc.fps != 8 {
		t.Fatalf("unexpected fps: result %d, encoder %d", res.FPS, enc.fps)
	}
	if res.FrameCount != 6 || len(enc.frames) != 6 {
		t.Fatalf("unexpected frame count: result %d, encoder %d", res.FrameCount, len(enc.frames))
	}
	// Comparison frames are four panels wide.
	if got := enc.frames[0].Bounds().Dx(); got != 4*8 {
		t.Fatalf("comparison width = %d, want %d", got, 4*8)
	}

	if len(gen.requests) != 1 {
		t.Fatalf("expected 1 generative call, got %d", len(gen.requests))
	}
	req := gen.requests[0]
	if req.NumFrames != 6 || req.Stride != 6 {
		t.Fatalf("unexpected request: num_frames=%d stride=%d", req.NumFrames, req.Stride)
	}
	if req.Seed != 42 || req.Strength != 1.0 {
		t.Fatalf("unexpected request: seed=%d strength=%v", req.Seed, req.Strength)
	}
	// FirstFrameGT with foreground polarity: the model sees an all-zero mask
	// at index 0 and the real mask afterwards.
	for i, v := range req.Masks[0].Pix {
		if v != 0 {
			t.Fatalf("mask 0 pix %d = %d, want 0", i, v)
		}
	}
	if req.Masks[1].GrayAt(0, 0).Y != 255 {
		t.Fatalf("mask 1 lost its target region")
	}

	// The mask panel of the comparison video shows the restored ground-truth
	// mask: target pixel white under foreground polarity.
	if c := enc.frames[0].RGBAAt(2*8, 0); c.R != 255 {
		t.Fatalf("ground-truth mask not restored in output: %+v", c)
	}
}

func TestRun_FirstFrameSubstitution(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	enc := &fakeEncoder{}
	inp := &fakeInpainter{}
	uc := New(Deps{
		Source:    fakeSource{frames: 16, fps: 24},
		Generator: gen,
		Inpainter: inp,
		Captioner: &fakeCaptioner{},
		Encoder:   enc,
	})

	dir := t.TempDir()
	out := filepath.Join(dir, "result.mp4")
	res, err := uc.Run(context.Background(), Input{
		Prompt:        "Ocean waves near the coastline.",
		SkipEnd:       -1,
		Frames:        6,
		DownSampleFPS: 8,
		Policy:        policy.Config{FirstFrameGT: true},
		Strength:      1.0,
		OutPath:       out,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.ImagePrompt != "A red soda can on a table." {
		t.Fatalf("image prompt not taken from captioner: %q", res.ImagePrompt)
	}
	if len(inp.requests) != 1 {
		t.Fatalf("expected 1 inpaint call, got %d", len(inp.requests))
	}
	if inp.requests[0].Width != 8 || inp.requests[0].Height != 8 {
		t.Fatalf("unexpected inpaint size: %+v", inp.requests[0])
	}

	// The generator is conditioned on the substituted first frame.
	if got := gen.requests[0].Image.Pix[0]; got != 99 {
		t.Fatalf("conditioning image pix = %d, want inpainted 99", got)
	}
	if got := gen.requests[0].Masked[0].Pix[0]; got != 99 {
		t.Fatalf("masked[0] pix = %d, want inpainted 99", got)
	}

	// The comparison video shows the ground truth at index 0, not the
	// substitution: panel 1, frame 0 carries source index 0.
	if c := enc.frames[0].RGBAAt(1, 1); c.R != 0 {
		t.Fatalf("ground-truth frame not restored in output: %+v", c)
	}

	for _, name := range []string{"result_gt.png", "result_inpaint.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}
}

func TestRun_BackgroundPolarityKeepsOneMaskConvention(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	enc := &fakeEncoder{}
	uc := New(Deps{
		Source:    fakeSource{frames: 16, fps: 24},
		Generator: gen,
		Encoder:   enc,
	})

	_, err := uc.Run(context.Background(), Input{
		Prompt:        "Ocean waves near the coastline.",
		SkipEnd:       -1,
		Frames:        6,
		DownSampleFPS: 8,
		Policy:        policy.Config{FirstFrameGT: true, MaskBackground: true},
		Strength:      1.0,
		OutPath:       filepath.Join(t.TempDir(), "result.mp4"),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// The polarity travels as a flag; every mask on the request keeps the
	// 255=target convention, including the emptied frame-0 mask.
	req := gen.requests[0]
	if !req.MaskBackground {
		t.Fatalf("mask polarity flag not forwarded")
	}
	for i, v := range req.Masks[0].Pix {
		if v != 0 {
			t.Fatalf("mask 0 pix %d = %d, want 0", i, v)
		}
	}
	if req.Masks[1].GrayAt(0, 0).Y != 255 || req.Masks[1].GrayAt(1, 1).Y != 0 {
		t.Fatalf("mask 1 left the 255=target convention")
	}
}

func TestRun_BackgroundPolarityFillRegion(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	enc := &fakeEncoder{}
	inp := &fakeInpainter{}
	capt := &fakeCaptioner{}
	uc := New(Deps{
		Source:    fakeSource{frames: 16, fps: 24},
		Generator: gen,
		Inpainter: inp,
		Captioner: capt,
		Encoder:   enc,
	})

	_, err := uc.Run(context.Background(), Input{
		Prompt:        "Ocean waves near the coastline.",
		SkipEnd:       -1,
		Frames:        6,
		DownSampleFPS: 8,
		Policy:        policy.Config{MaskBackground: true},
		Strength:      1.0,
		OutPath:       filepath.Join(t.TempDir(), "result.mp4"),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Under background polarity the region to fill is the complement of the
	// marked object: (0,0) is the object, everything else is filled.
	m := inp.requests[0].Mask
	if m.GrayAt(0, 0).Y != 0 || m.GrayAt(1, 1).Y != 255 {
		t.Fatalf("inpaint mask does not select the background: %d, %d",
			m.GrayAt(0, 0).Y, m.GrayAt(1, 1).Y)
	}
	// The caption image shows what survives in the fill region: the
	// background pixels, not the object.
	if capt.masked.RGBAAt(0, 0).G != 0 {
		t.Fatalf("caption image still shows the object pixel")
	}
	if capt.masked.RGBAAt(1, 1).G != 200 {
		t.Fatalf("caption image lost the background pixels")
	}
}

func TestRun_AddFirstUsesStaticCaption(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	enc := &fakeEncoder{}
	uc := New(Deps{
		Source:    fakeSource{frames: 16, fps: 24},
		Generator: gen,
		Inpainter: &fakeInpainter{},
		Captioner: &fakeCaptioner{},
		Encoder:   enc,
	})

	res, err := uc.Run(context.Background(), Input{
		Prompt:        "Ocean waves near the coastline.",
		SkipEnd:       -1,
		Frames:        6,
		DownSampleFPS: 8,
		Policy:        policy.Config{AddFirst: true},
		Strength:      1.0,
		OutPath:       filepath.Join(t.TempDir(), "result.mp4"),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ImagePrompt != "A static first frame." {
		t.Fatalf("add-first should caption from the video description: %q", res.ImagePrompt)
	}
}

func TestRun_LongVideoWindows(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	enc := &fakeEncoder{}
	uc := New(Deps{
		Source:    fakeSource{frames: 16, fps: 24},
		Generator: gen,
		Encoder:   enc,
	})

	out := filepath.Join(t.TempDir(), "long.mp4")
	res, err := uc.Run(context.Background(), Input{
		Prompt:         "Ocean waves near the coastline.",
		SkipEnd:        -1,
		Frames:         4,
		DownSampleFPS:  8,
		Strength:       1.0,
		LongVideo:      true,
		OverlapFrames:  2,
		PrevClipWeight: 1.0,
		OutPath:        out,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// 16 source frames at stride 3 leave 6; length 4 with overlap 2 needs
	// windows at 0 and 2.
	if len(gen.requests) != 2 {
		t.Fatalf("expected 2 generative calls, got %d", len(gen.requests))
	}
	if res.FrameCount != 6 || len(enc.frames) != 6 {
		t.Fatalf("expected 6 stitched frames, got %d", res.FrameCount)
	}
	for _, req := range gen.requests {
		if req.Stride != 2 || req.PrevClipWeight != 1.0 {
			t.Fatalf("unexpected request: stride=%d weight=%v", req.Stride, req.PrevClipWeight)
		}
	}

	// With weight 1 the overlap keeps the previous clip: the generated panel
	// of frames 2 and 3 carries the first window's value.
	genPanel := func(i int) uint8 { return enc.frames[i].RGBAAt(3*8, 0).R }
	if genPanel(2) != 110 || genPanel(3) != 110 {
		t.Fatalf("overlap frames not blended toward previous clip: %d, %d", genPanel(2), genPanel(3))
	}
	if genPanel(5) != 120 {
		t.Fatalf("tail frame should come from the second window: %d", genPanel(5))
	}
}
