package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gavin6404-sz/hano-bananaclone/internal/history"
	"github.com/Gavin6404-sz/hano-bananaclone/internal/staging"
)

func testImage(name string) staging.File {
	return staging.File{Name: name, MIME: "image/png", Data: []byte{0x89, 0x50, 0x4e, 0x47}}
}

func TestGenerateSendsMultipartForm(t *testing.T) {
	var gotPrompt, gotMode string
	var gotFiles []string
	var gotTypes []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Fatalf("path = %q, want /api/generate", r.URL.Path)
		}
		if err := r.ParseMultipartForm(64 << 20); err != nil {
			t.Fatalf("server failed to parse form: %v", err)
		}
		gotPrompt = r.FormValue("prompt")
		gotMode = r.FormValue("mode")
		for _, fh := range r.MultipartForm.File["images"] {
			gotFiles = append(gotFiles, fh.Filename)
			gotTypes = append(gotTypes, fh.Header.Get("Content-Type"))
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"images":["data:image/png;base64,YWJj","","data:image/png;base64,ZGVm"]}`)
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})
	images, err := client.Generate(context.Background(), "a red fox", history.ModeImage, []staging.File{
		testImage("one.png"), testImage("two.png"),
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if gotPrompt != "a red fox" {
		t.Fatalf("prompt = %q", gotPrompt)
	}
	if gotMode != "image" {
		t.Fatalf("mode = %q, want image", gotMode)
	}
	if len(gotFiles) != 2 || gotFiles[0] != "one.png" {
		t.Fatalf("files = %v", gotFiles)
	}
	if gotTypes[0] != "image/png" {
		t.Fatalf("part content type = %q", gotTypes[0])
	}
	if len(images) != 2 {
		t.Fatalf("Generate returned %d images, want 2 (empty URL filtered)", len(images))
	}
}

func TestGenerateCapsImageParts(t *testing.T) {
	var gotCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(64 << 20); err != nil {
			t.Fatalf("server failed to parse form: %v", err)
		}
		gotCount = len(r.MultipartForm.File["images"])
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"images":["data:image/png;base64,YWJj"]}`)
	}))
	defer server.Close()

	files := make([]staging.File, 7)
	for i := range files {
		files[i] = testImage("img.png")
	}

	client := NewClient(Options{BaseURL: server.URL})
	if _, err := client.Generate(context.Background(), "edit", history.ModeImage, files); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if gotCount != MaxImagesPerRequest {
		t.Fatalf("server received %d image parts, want %d", gotCount, MaxImagesPerRequest)
	}
}

func TestGenerateErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "error message passed through verbatim",
			status:      http.StatusBadGateway,
			body:        `{"error":"OpenRouter returned a non-JSON response."}`,
			wantMessage: "OpenRouter returned a non-JSON response.",
		},
		{
			name:        "empty error falls back to generic message",
			status:      http.StatusInternalServerError,
			body:        `{}`,
			wantMessage: "Generation failed. Please try again later.",
		},
		{
			name:        "non-json error body falls back to generic message",
			status:      http.StatusServiceUnavailable,
			body:        "<html>Service Unavailable</html>",
			wantMessage: "Generation failed. Please try again later.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			defer server.Close()

			client := NewClient(Options{BaseURL: server.URL})
			_, err := client.Generate(context.Background(), "fox", history.ModeText, nil)

			var relayErr *Error
			if !errors.As(err, &relayErr) {
				t.Fatalf("Generate err = %v, want *relay.Error", err)
			}
			if relayErr.Status != tc.status {
				t.Fatalf("Status = %d, want %d", relayErr.Status, tc.status)
			}
			if relayErr.Error() != tc.wantMessage {
				t.Fatalf("Error() = %q, want %q", relayErr.Error(), tc.wantMessage)
			}
		})
	}
}

func TestGenerateRejectsUndecodableSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})
	if _, err := client.Generate(context.Background(), "fox", history.ModeText, nil); err == nil {
		t.Fatalf("Generate should fail on an undecodable 200 body")
	}
}

func TestGenerateEmptyImageListIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"images":[]}`)
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})
	images, err := client.Generate(context.Background(), "fox", history.ModeText, nil)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(images) != 0 {
		t.Fatalf("Generate returned %d images, want 0", len(images))
	}
}
