package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"inpaintprep/internal/domain/policy"
	"inpaintprep/internal/ledger"
	"inpaintprep/internal/meta"
	"inpaintprep/internal/ports"
	"inpaintprep/internal/ports/adapters/diffusion"
	"inpaintprep/internal/ports/adapters/ffmpeg"
	"inpaintprep/internal/ports/adapters/framedir"
	"inpaintprep/internal/ports/adapters/openai"
	"inpaintprep/internal/ports/adapters/videosrc"
	"inpaintprep/internal/types"
	"inpaintprep/internal/usecase"
)

type Config struct {
	// Input is a directory of frame_<N>.png files or a single video file.
	Input string
	// MaskDir holds the seg_mask_<N>.png files.
	MaskDir string
	// Out is the output video path; the resample-rate suffix is appended.
	Out string

	// MetaCSV/SampleID select a row of the mask-metadata table; the row's
	// caption, mask id and fps override Prompt, MaskID and FPS.
	MetaCSV  string
	SampleID int

	Prompt string
	// MaskID selects the object in a multi-object segmentation mask.
	// Negative means plain binary masks (target region written as 255);
	// 0 is a legitimate segmentation id.
	MaskID int
	// FPS is the source rate; 0 means probe it (video input) or take it from
	// the metadata row.
	FPS int

	SkipStart int
	SkipEnd   int

	Frames        int
	DownSampleFPS int

	MaskBackground bool
	AddFirst       bool
	FirstFrameGT   bool
	ReplaceGT      bool
	MaskAdd        bool

	LongVideo      bool
	OverlapFrames  int
	PrevClipWeight float64

	DilateSize int
	Strength   float64
	Seed       int64

	// ImageInpainting enables frame-0 substitution via the diffusion server.
	ImageInpainting bool

	DiffusionBaseURL string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	FFmpegPath  string
	FFprobePath string

	// LedgerPath is the sqlite request ledger; defaults to
	// .cache/requests.db.
	LedgerPath string

	Logf func(format string, args ...any)
}

func (c Config) Validate() error {
	if c.Input == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.Input); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if c.MaskDir == "" {
		return errors.New("mask dir is empty")
	}
	if c.Out == "" {
		return errors.New("output path is empty")
	}
	if c.Frames <= 0 {
		return errors.New("frames must be > 0")
	}
	if c.MaskID > 255 {
		return errors.New("mask id must fit in a byte")
	}
	if c.OverlapFrames < 0 || c.OverlapFrames >= c.Frames {
		return fmt.Errorf("overlap frames must be in [0, %d)", c.Frames)
	}
	if c.PrevClipWeight < 0 || c.PrevClipWeight > 1 {
		return errors.New("prev clip weight must be in [0, 1]")
	}
	if c.DownSampleFPS < 0 {
		return errors.New("down-sample fps must be >= 0")
	}
	if c.DiffusionBaseURL == "" {
		return errors.New("diffusion base URL is required (set DIFFUSION_BASE_URL)")
	}
	if c.MetaCSV == "" && c.Prompt == "" {
		return errors.New("prompt is required when no metadata table is given")
	}
	if c.MetaCSV != "" && c.SampleID < 0 {
		return errors.New("sample id must be >= 0")
	}
	if !isVideoInput(c.Input) && c.MetaCSV == "" && c.FPS <= 0 {
		return errors.New("fps is required for frame-directory input")
	}
	return c.policyConfig().Validate()
}

func (c Config) policyConfig() policy.Config {
	return policy.Config{
		FirstFrameGT:   c.FirstFrameGT,
		ReplaceGT:      c.ReplaceGT,
		MaskAdd:        c.MaskAdd,
		AddFirst:       c.AddFirst,
		MaskBackground: c.MaskBackground,
	}
}

func Run(ctx context.Context, cfg Config) error {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	prompt := cfg.Prompt
	maskID := cfg.MaskID
	fps := cfg.FPS
	sourcePath := cfg.Input
	if cfg.MetaCSV != "" {
		table, err := meta.Load(cfg.MetaCSV)
		if err != nil {
			return err
		}
		sample, err := table.Sample(cfg.SampleID)
		if err != nil {
			return err
		}
		prompt = sample.Caption
		maskID = sample.MaskID
		if fps == 0 {
			fps = sample.FPS
		}
		sourcePath = sample.Path
		logf("sample %d: path=%s mask_id=%d fps=%d", cfg.SampleID, sample.Path, sample.MaskID, sample.FPS)
	}
	binID := resolveMaskID(maskID)

	// adapters
	ff := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	var source ports.ClipSource
	if isVideoInput(cfg.Input) {
		source = videosrc.New(ff, cfg.Input, cfg.MaskDir, binID, fps)
	} else {
		source = framedir.New(cfg.Input, cfg.MaskDir, binID, fps)
	}

	diff := diffusion.New(cfg.DiffusionBaseURL)
	deps := usecase.Deps{
		Source:    source,
		Generator: diff,
		Encoder:   ff,
	}
	if cfg.ImageInpainting {
		deps.Inpainter = diff
		if cfg.OpenAIAPIKey != "" {
			deps.Captioner = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
		}
	}

	if dir := filepath.Dir(cfg.Out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	ledgerPath := cfg.LedgerPath
	if ledgerPath == "" {
		ledgerPath = filepath.Join(".cache", "requests.db")
	}
	if err := os.MkdirAll(filepath.Dir(ledgerPath), 0o755); err != nil {
		return err
	}
	store, err := ledger.Open(ledgerPath)
	if err != nil {
		return err
	}
	defer store.Close()

	strength := cfg.Strength
	if strength == 0 {
		strength = 1.0
	}

	uc := usecase.New(deps)
	res, err := uc.Run(ctx, usecase.Input{
		Prompt:         prompt,
		SkipStart:      cfg.SkipStart,
		SkipEnd:        cfg.SkipEnd,
		Frames:         cfg.Frames,
		DownSampleFPS:  cfg.DownSampleFPS,
		Policy:         cfg.policyConfig(),
		Strength:       strength,
		Seed:           cfg.Seed,
		DilateSize:     cfg.DilateSize,
		LongVideo:      cfg.LongVideo,
		OverlapFrames:  cfg.OverlapFrames,
		PrevClipWeight: cfg.PrevClipWeight,
		OutPath:        cfg.Out,
		Logf:           logf,
	})
	if err != nil {
		return err
	}

	req := types.InpaintingRequest{
		ID:          uuid.NewString(),
		Path:        sourcePath,
		MaskID:      int(binID),
		StartFrame:  cfg.SkipStart,
		EndFrame:    cfg.SkipEnd,
		FPS:         res.FPS,
		VideoPrompt: prompt,
		ImagePrompt: res.ImagePrompt,
		OutputPath:  res.OutputPath,
		Seed:        cfg.Seed,
		CreatedAt:   time.Now().UTC(),
	}
	if err := writeSidecar(sidecarPath(cfg.Out), req); err != nil {
		return err
	}
	if err := store.Record(ctx, req); err != nil {
		return err
	}
	logf("recorded request %s", req.ID)
	return nil
}

// writeSidecar persists the request record next to the output. Written once,
// never updated.
func writeSidecar(path string, req types.InpaintingRequest) error {
	b, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sidecar: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}

func sidecarPath(outPath string) string {
	return strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".json"
}

// resolveMaskID maps the flag convention onto the raster one. Negative means
// plain binary masks, whose target region is written as 255; id 0 stays
// selectable.
func resolveMaskID(id int) uint8 {
	if id < 0 {
		return 255
	}
	return uint8(id)
}

func isVideoInput(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov", ".mkv", ".webm":
		return true
	}
	return false
}

// ensure adapters implement ports
var _ ports.ClipSource = (*framedir.Adapter)(nil)
var _ ports.ClipSource = (*videosrc.Adapter)(nil)
var _ ports.VideoGenerator = (*diffusion.Adapter)(nil)
var _ ports.ImageInpainter = (*diffusion.Adapter)(nil)
var _ ports.Captioner = (*openai.Adapter)(nil)
var _ ports.VideoEncoder = (*ffmpeg.Adapter)(nil)
var _ ports.RequestLog = (*ledger.Store)(nil)
