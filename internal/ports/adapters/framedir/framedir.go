// Package framedir loads an aligned clip from two directories of numbered
// PNG files: frame_<N>.png and seg_mask_<N>.png. Pairing is by the integer
// suffix, never by directory-listing order.
package framedir

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"inpaintprep/internal/domain/clip"
	"inpaintprep/internal/domain/mask"
	"inpaintprep/internal/types"
)

const (
	framePrefix = "frame_"
	maskPrefix  = "seg_mask_"
)

type Adapter struct {
	frameDir string
	maskDir  string
	// maskID selects the object in a multi-object segmentation mask.
	// Use 255 for plain binary masks.
	maskID uint8
	fps    int
}

func New(frameDir, maskDir string, maskID uint8, fps int) *Adapter {
	return &Adapter{frameDir: frameDir, maskDir: maskDir, maskID: maskID, fps: fps}
}

// Load reads and pairs the frame and mask files, binarizes each mask against
// the configured mask id, and synthesizes the blacked-out frames. The
// returned sequences cover [skipStart, skipEnd) of the source; skipEnd < 0
// means "to the end".
func (a *Adapter) Load(ctx context.Context, skipStart, skipEnd int) (types.AlignedClip, error) {
	framePaths, err := listNumbered(a.frameDir, framePrefix)
	if err != nil {
		return types.AlignedClip{}, err
	}
	maskPaths, err := listNumbered(a.maskDir, maskPrefix)
	if err != nil {
		return types.AlignedClip{}, err
	}
	if len(framePaths) != len(maskPaths) {
		return types.AlignedClip{}, &clip.AlignmentError{Frames: len(framePaths), Masks: len(maskPaths)}
	}

	framePaths, maskPaths = applySkip(framePaths, skipStart, skipEnd), applySkip(maskPaths, skipStart, skipEnd)

	out := types.AlignedClip{FPS: a.fps}
	for i := range framePaths {
		if err := ctx.Err(); err != nil {
			return types.AlignedClip{}, err
		}
		frame, err := readRGBA(framePaths[i])
		if err != nil {
			return types.AlignedClip{}, fmt.Errorf("read frame %s: %w", framePaths[i], err)
		}
		seg, err := readGray(maskPaths[i])
		if err != nil {
			return types.AlignedClip{}, fmt.Errorf("read mask %s: %w", maskPaths[i], err)
		}
		bin := mask.Binarize(seg, a.maskID)
		out.Frames = append(out.Frames, frame)
		out.Masked = append(out.Masked, mask.Blackout(frame, bin))
		out.Masks = append(out.Masks, bin)
	}
	return out, nil
}

// LoadMasks reads the seg_mask_<N>.png files of a directory in numeric-suffix
// order and binarizes each against maskID. Used by the video-file source,
// which gets its frames from the decoder but its masks from a directory.
func LoadMasks(dir string, maskID uint8) (types.MaskSequence, error) {
	paths, err := listNumbered(dir, maskPrefix)
	if err != nil {
		return nil, err
	}
	out := make(types.MaskSequence, 0, len(paths))
	for _, p := range paths {
		seg, err := readGray(p)
		if err != nil {
			return nil, fmt.Errorf("read mask %s: %w", p, err)
		}
		out = append(out, mask.Binarize(seg, maskID))
	}
	return out, nil
}

// listNumbered collects <prefix><N>.png files and sorts them by N. Listing
// order is not trusted: frame_10 must follow frame_9, not frame_1.
func listNumbered(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	type numbered struct {
		n    int
		path string
	}
	var files []numbered
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".png") {
			continue
		}
		base := strings.TrimSuffix(name, ".png")
		n, err := strconv.Atoi(base[strings.LastIndex(base, "_")+1:])
		if err != nil {
			continue
		}
		files = append(files, numbered{n: n, path: filepath.Join(dir, name)})
	}
	if len(files) == 0 {
		return nil, &clip.NotFoundError{Dir: dir, Pattern: prefix + "*.png"}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].n < files[j].n })
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}

// applySkip clamps [skipStart, skipEnd) onto the path list, with negative
// skipEnd counting from the end the way the metadata records it (-1 = all).
func applySkip(paths []string, skipStart, skipEnd int) []string {
	n := len(paths)
	if skipStart < 0 {
		skipStart = 0
	}
	if skipStart > n {
		skipStart = n
	}
	if skipEnd < 0 {
		skipEnd = n + skipEnd + 1
	}
	if skipEnd > n {
		skipEnd = n
	}
	if skipEnd < skipStart {
		skipEnd = skipStart
	}
	return paths[skipStart:skipEnd]
}

func readRGBA(path string) (*image.RGBA, error) {
	img, err := readPNG(path)
	if err != nil {
		return nil, err
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba, nil
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out, nil
}

func readGray(path string) (*image.Gray, error) {
	img, err := readPNG(path)
	if err != nil {
		return nil, err
	}
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g, nil
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out, nil
}

func readPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}
