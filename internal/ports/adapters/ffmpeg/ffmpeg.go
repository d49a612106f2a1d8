// Package ffmpeg shells out to ffmpeg/ffprobe for video decode, probing and
// encode. Frames cross the process boundary as raw RGBA over pipes.
package ffmpeg

import (
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"inpaintprep/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// VideoInfo is the subset of stream metadata the pipeline needs.
type VideoInfo struct {
	Width  int
	Height int
	FPS    int
}

// Probe reads width, height and frame rate of the first video stream.
func (a *Adapter) Probe(ctx context.Context, inPath string) (VideoInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-of", "csv=p=0",
		inPath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe %s: %w\n%s", inPath, err, string(b))
	}
	parts := strings.Split(strings.TrimSpace(string(b)), ",")
	if len(parts) < 3 {
		return VideoInfo{}, fmt.Errorf("ffprobe %s: unexpected output %q", inPath, string(b))
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return VideoInfo{}, fmt.Errorf("parse width %q: %w", parts[0], err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return VideoInfo{}, fmt.Errorf("parse height %q: %w", parts[1], err)
	}
	fps, err := parseRate(parts[2])
	if err != nil {
		return VideoInfo{}, err
	}
	return VideoInfo{Width: w, Height: h, FPS: fps}, nil
}

// DecodeFrames reads every frame of the input as raw RGBA.
func (a *Adapter) DecodeFrames(ctx context.Context, inPath string, info VideoInfo) (types.FrameSequence, error) {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-v", "error",
		"-i", inPath,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	var errBuf strings.Builder
	cmd.Stderr = &errBuf
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode start: %w", err)
	}

	frameSize := info.Width * info.Height * 4
	var frames types.FrameSequence
	for {
		buf := make([]byte, frameSize)
		_, err := io.ReadFull(stdout, buf)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			reap(cmd)
			return nil, fmt.Errorf("ffmpeg decode %s: truncated frame %d\n%s", inPath, len(frames), errBuf.String())
		}
		if err != nil {
			reap(cmd)
			return nil, fmt.Errorf("ffmpeg decode %s: %w", inPath, err)
		}
		frame := image.NewRGBA(image.Rect(0, 0, info.Width, info.Height))
		frame.Pix = buf
		frames = append(frames, frame)
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w\n%s", inPath, err, errBuf.String())
	}
	return frames, nil
}

// Encode writes the sequence as H.264 mp4 at the given fps. All frames must
// share the bounds of the first.
func (a *Adapter) Encode(ctx context.Context, frames types.FrameSequence, fps int, outPath string) error {
	if len(frames) == 0 {
		return fmt.Errorf("encode %s: empty frame sequence", outPath)
	}
	b := frames[0].Bounds()
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
		"-r", strconv.Itoa(fps),
		"-i", "-",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		outPath,
	)
	var errBuf strings.Builder
	cmd.Stderr = &errBuf
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg encode start: %w", err)
	}
	for i, f := range frames {
		if _, err := stdin.Write(f.Pix); err != nil {
			stdin.Close()
			reap(cmd)
			return fmt.Errorf("ffmpeg encode frame %d: %w\n%s", i, err, errBuf.String())
		}
	}
	if err := stdin.Close(); err != nil {
		reap(cmd)
		return err
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg encode %s: %w\n%s", outPath, err, errBuf.String())
	}
	return nil
}

// reap kills the child and waits for it, so an error return never leaves a
// zombie behind.
func reap(cmd *exec.Cmd) {
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
}

// parseRate converts an ffprobe rational like "24000/1001" to a rounded
// integer fps.
func parseRate(s string) (int, error) {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", s, err)
	}
	d := 1.0
	if found {
		d, err = strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("parse frame rate %q: bad denominator", s)
		}
	}
	return int(n/d + 0.5), nil
}
