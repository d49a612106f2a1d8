// Package diffusion is the HTTP client for the inference server hosting the
// generative video-inpainting pipeline and the still-image inpainting model.
// Frames cross the wire as base64 PNG.
package diffusion

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"net/http"
	"time"

	"inpaintprep/internal/domain/clip"
	"inpaintprep/internal/ports"
	"inpaintprep/internal/types"
)

// Generation runs on GPU minutes, not seconds.
const requestTimeout = 30 * time.Minute

type Adapter struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string) *Adapter {
	return &Adapter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout + time.Minute},
	}
}

type generateBody struct {
	Prompt         string   `json:"prompt"`
	Image          string   `json:"image"`
	NumFrames      int      `json:"num_frames"`
	Video          []string `json:"video"`
	Masks          []string `json:"masks"`
	MaskBackground bool     `json:"mask_background"`
	Strength       float64  `json:"strength"`
	ReplaceGT      bool     `json:"replace_gt"`
	MaskAdd        bool     `json:"mask_add"`
	Stride         int      `json:"stride"`
	PrevClipWeight float64  `json:"prev_clip_weight"`
	Seed           int64    `json:"seed"`
}

type generateResponse struct {
	Frames []string `json:"frames"`
}

// Generate posts the prepared conditioning and decodes the returned frames.
func (a *Adapter) Generate(ctx context.Context, req ports.GenerateRequest) (types.FrameSequence, error) {
	body := generateBody{
		Prompt:         req.Prompt,
		Image:          encodeRGBA(req.Image),
		NumFrames:      req.NumFrames,
		MaskBackground: req.MaskBackground,
		Strength:       req.Strength,
		ReplaceGT:      req.ReplaceGT,
		MaskAdd:        req.MaskAdd,
		Stride:         req.Stride,
		PrevClipWeight: req.PrevClipWeight,
		Seed:           req.Seed,
	}
	for _, f := range req.Masked {
		body.Video = append(body.Video, encodeRGBA(f))
	}
	for _, m := range req.Masks {
		body.Masks = append(body.Masks, encodeGray(m))
	}

	var resp generateResponse
	if err := a.post(ctx, "/v1/video/inpaint", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Frames) != req.NumFrames {
		return nil, fmt.Errorf("diffusion server returned %d frames, requested %d", len(resp.Frames), req.NumFrames)
	}

	want := req.Image.Bounds()
	out := make(types.FrameSequence, 0, len(resp.Frames))
	for i, s := range resp.Frames {
		frame, err := decodeRGBA(s)
		if err != nil {
			return nil, fmt.Errorf("decode generated frame %d: %w", i, err)
		}
		if fb := frame.Bounds(); fb.Dx() != want.Dx() || fb.Dy() != want.Dy() {
			return nil, &clip.ShapeMismatchError{
				Sequence: "generated", Index: i,
				Want: fmt.Sprintf("%dx%d", want.Dx(), want.Dy()),
				Got:  fmt.Sprintf("%dx%d", fb.Dx(), fb.Dy()),
			}
		}
		out = append(out, frame)
	}
	return out, nil
}

type inpaintBody struct {
	Prompt string `json:"prompt"`
	Image  string `json:"image"`
	Mask   string `json:"mask_image"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
	Seed   int64  `json:"seed"`
}

type inpaintResponse struct {
	Image string `json:"image"`
}

// Inpaint completes a single image; used for the frame-0 substitution.
func (a *Adapter) Inpaint(ctx context.Context, req ports.InpaintRequest) (*image.RGBA, error) {
	body := inpaintBody{
		Prompt: req.Prompt,
		Image:  encodeRGBA(req.Image),
		Mask:   encodeGray(req.Mask),
		Height: req.Height,
		Width:  req.Width,
		Seed:   req.Seed,
	}
	var resp inpaintResponse
	if err := a.post(ctx, "/v1/image/inpaint", body, &resp); err != nil {
		return nil, err
	}
	out, err := decodeRGBA(resp.Image)
	if err != nil {
		return nil, fmt.Errorf("decode inpainted image: %w", err)
	}
	return out, nil
}

func (a *Adapter) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", a.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("diffusion server timeout after %s (%s)", requestTimeout, path)
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("diffusion server status %d on %s: %s", resp.StatusCode, path, string(rb))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func encodeRGBA(img *image.RGBA) string {
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func encodeGray(img *image.Gray) string {
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodeRGBA(s string) (*image.RGBA, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(raw))
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
