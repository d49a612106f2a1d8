package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"inpaintprep/internal/pipeline"
)

func run(cmd *cobra.Command, input string) error {
	flags := cmd.Flags()

	masks, _ := flags.GetString("masks")
	out, _ := flags.GetString("out")
	prompt, _ := flags.GetString("prompt")
	metaCSV, _ := flags.GetString("meta")
	sampleID, _ := flags.GetInt("sample-id")
	maskID, _ := flags.GetInt("mask-id")
	fps, _ := flags.GetInt("fps")
	skipStart, _ := flags.GetInt("skip-start")
	skipEnd, _ := flags.GetInt("skip-end")
	frames, _ := flags.GetInt("frames")
	downSampleFPS, _ := flags.GetInt("down-sample-fps")
	maskBackground, _ := flags.GetBool("mask-background")
	firstFrameGT, _ := flags.GetBool("first-frame-gt")
	replaceGT, _ := flags.GetBool("replace-gt")
	maskAdd, _ := flags.GetBool("mask-add")
	addFirst, _ := flags.GetBool("add-first")
	longVideo, _ := flags.GetBool("long-video")
	overlapFrames, _ := flags.GetInt("overlap-frames")
	prevClipWeight, _ := flags.GetFloat64("prev-clip-weight")
	dilateSize, _ := flags.GetInt("dilate-size")
	imgInpainting, _ := flags.GetBool("img-inpainting")
	seed, _ := flags.GetInt64("seed")
	strength, _ := flags.GetFloat64("strength")

	diffusionURL := os.Getenv("DIFFUSION_BASE_URL")
	if diffusionURL == "" {
		return errors.New("DIFFUSION_BASE_URL is required (set it in .env)")
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
	defer cancel()

	cfg := pipeline.Config{
		Input:   absIn,
		MaskDir: masks,
		Out:     out,

		MetaCSV:  metaCSV,
		SampleID: sampleID,

		Prompt: prompt,
		MaskID: maskID,
		FPS:    fps,

		SkipStart: skipStart,
		SkipEnd:   skipEnd,

		Frames:        frames,
		DownSampleFPS: downSampleFPS,

		MaskBackground: maskBackground,
		FirstFrameGT:   firstFrameGT,
		ReplaceGT:      replaceGT,
		MaskAdd:        maskAdd,
		AddFirst:       addFirst,

		LongVideo:      longVideo,
		OverlapFrames:  overlapFrames,
		PrevClipWeight: prevClipWeight,

		DilateSize: dilateSize,
		Strength:   strength,
		Seed:       seed,

		ImageInpainting: imgInpainting,

		DiffusionBaseURL: diffusionURL,

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getenvDefault("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),

		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",

		Logf: log.Printf,
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return pipeline.Run(ctx, cfg)
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
