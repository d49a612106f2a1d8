// Package openai implements the caption collaborator over the
// chat-completions API. It produces the short static description used as the
// image-inpainting prompt, either from the masked first frame (vision) or
// from the video-level description (text only).
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"
)

const requestTimeout = 90 * time.Second

const (
	maskedSystemPrompt = "You are an expert in image description. Based on the given masked image, " +
		"please generate a concise description for target for following inpainting."
	maskedUserPrompt = "Please generate a description for the unmasked target in the given masked image. Requirements:\n" +
		"1. Keep the description concise and precise\n" +
		"2. Only describe unmasked visual elements\n" +
		"3. Black background is not a visual element\n" +
		"Only return the description, no other words."

	firstFrameSystemPrompt = "You are an expert in image description. Based on the given video description, " +
		"please generate a concise description for the first static frame, focusing on the most important visual elements."
	firstFrameUserPrompt = "Please generate a static description for the first frame. Requirements:\n" +
		"1. Keep the description concise and precise\n" +
		"2. Only describe key visual elements\n" +
		"3. Avoid using any dynamic or temporal-related words\n" +
		"Only return the description, no other words."
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
}

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = "gpt-4o"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// DescribeMasked captions the foreground of a masked image.
func (a *Adapter) DescribeMasked(ctx context.Context, masked *image.RGBA) (string, error) {
	if masked == nil {
		return "", errors.New("masked image is nil")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, masked); err != nil {
		return "", fmt.Errorf("encode masked image: %w", err)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	payload := map[string]any{
		"model": a.model,
		"messages": []map[string]any{
			{"role": "system", "content": maskedSystemPrompt},
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": maskedUserPrompt},
					{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
	}
	return a.complete(ctx, payload)
}

// DescribeFirstFrame derives a static first-frame description from the
// video-level description.
func (a *Adapter) DescribeFirstFrame(ctx context.Context, videoDescription string) (string, error) {
	if videoDescription == "" {
		return "", errors.New("video description is empty")
	}
	payload := map[string]any{
		"model": a.model,
		"messages": []map[string]any{
			{"role": "system", "content": firstFrameSystemPrompt},
			{"role": "user", "content": "Video description: " + videoDescription + "\n" + firstFrameUserPrompt},
		},
	}
	return a.complete(ctx, payload)
}

func (a *Adapter) complete(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", a.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("caption service timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("caption service status %d: %s", resp.StatusCode, string(rb))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", err
	}
	if len(raw.Choices) == 0 {
		return "", errors.New("caption service returned no choices")
	}
	return strings.TrimSpace(raw.Choices[0].Message.Content), nil
}
