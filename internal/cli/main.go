package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "inpaintprep <frames-dir-or-video>",
		Short:        "Prepare masked clips for video inpainting and render the comparison video",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.Flags().String("masks", "", "Directory of seg_mask_<N>.png files")
	root.Flags().String("out", "output.mp4", "Output video path (fps suffix is appended)")
	root.Flags().String("prompt", "", "Video description prompt")
	root.Flags().String("meta", "", "Mask metadata CSV (path,mask_id,caption,fps)")
	root.Flags().Int("sample-id", 0, "Row of the metadata CSV to process")
	root.Flags().Int("mask-id", -1, "Segmentation id of the object to erase (-1 = plain binary 255 masks)")
	root.Flags().Int("fps", 0, "Source fps (0 = probe or read from metadata)")
	root.Flags().Int("skip-start", 0, "Frames to skip at the start of the source")
	root.Flags().Int("skip-end", -1, "End frame (exclusive, -1 = to the end)")
	root.Flags().Int("frames", 49, "Clip length handed to the generative model")
	root.Flags().Int("down-sample-fps", 8, "Target fps after resampling (0 = keep source fps)")
	root.Flags().Bool("mask-background", false, "Invert mask polarity: erase the background")
	root.Flags().Bool("first-frame-gt", false, "Treat frame 0 as ground truth (no target region)")
	root.Flags().Bool("replace-gt", false, "Replace ground-truth latents inside the generator")
	root.Flags().Bool("mask-add", false, "Re-add the mask region inside the generator (needs --replace-gt)")
	root.Flags().Bool("add-first", false, "Generator-side first-frame handling")
	root.Flags().Bool("long-video", false, "Generate the full clip via overlapping windows")
	root.Flags().Int("overlap-frames", 0, "Frames shared between consecutive windows")
	root.Flags().Float64("prev-clip-weight", 0, "Previous clip's weight over the overlap region")
	root.Flags().Int("dilate-size", -1, "Mask dilation kernel size (<=0 disables)")
	root.Flags().Bool("img-inpainting", false, "Substitute frame 0 via the image-inpainting model")
	root.Flags().Int64("seed", 42, "Generation seed")

	// Hidden tuning flag (internal)
	root.Flags().Float64("strength", 1.0, "Denoising strength")
	_ = root.Flags().MarkHidden("strength")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
