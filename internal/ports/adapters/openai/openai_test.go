package openai

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatResponse(content string) string {
	quoted, _ := json.Marshal(content)
	return `{"choices":[{"message":{"content":` + string(quoted) + `}}]}`
}

func TestDescribeMasked(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(chatResponse("  A red soda can on a table.\n")))
	}))
	defer srv.Close()

	a := New("test-key", "test-model", srv.URL)
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))

	got, err := a.DescribeMasked(context.Background(), img)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if got != "A red soda can on a table." {
		t.Fatalf("content not trimmed: %q", got)
	}

	if gotBody["model"] != "test-model" {
		t.Fatalf("model not forwarded: %v", gotBody["model"])
	}
	// The vision message carries the image as a data URL.
	b, _ := json.Marshal(gotBody)
	if !strings.Contains(string(b), "data:image/png;base64,") {
		t.Fatalf("image not embedded in request")
	}
}

func TestDescribeFirstFrame(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(chatResponse("A static first frame.")))
	}))
	defer srv.Close()

	a := New("test-key", "", srv.URL)
	got, err := a.DescribeFirstFrame(context.Background(), "Ocean waves near the coastline.")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if got != "A static first frame." {
		t.Fatalf("unexpected content: %q", got)
	}

	b, _ := json.Marshal(gotBody)
	if !strings.Contains(string(b), "Ocean waves near the coastline.") {
		t.Fatalf("video description not forwarded")
	}
}

func TestDescribeFirstFrame_EmptyDescription(t *testing.T) {
	t.Parallel()

	a := New("test-key", "", "http://unused")
	if _, err := a.DescribeFirstFrame(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty description")
	}
}

func TestDescribeMasked_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := New("test-key", "", srv.URL)
	if _, err := a.DescribeMasked(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 2))); err == nil {
		t.Fatalf("expected error on non-2xx status")
	}
}
