// Package relay talks to the generation relay route over HTTP. It is the
// single network dependency of the client-side session.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/Gavin6404-sz/hano-bananaclone/internal/history"
	"github.com/Gavin6404-sz/hano-bananaclone/internal/staging"
)

// MaxImagesPerRequest mirrors the relay-side cap on processed image parts.
const MaxImagesPerRequest = 4

// Options configures a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client issues generation requests against the relay.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Error is a failure reported by the relay. Its Error string is the relay's
// own message, surfaced to the user verbatim.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewClient creates a relay client for the given base URL.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{httpClient: client, baseURL: base}
}

type generateResponse struct {
	Images []string `json:"images"`
	Error  string   `json:"error"`
}

// Generate posts the prompt, mode, and image parts as multipart form data and
// returns the image URLs the relay extracted. An empty list on a successful
// response is passed through unchanged; the caller decides its semantics.
func (c *Client) Generate(ctx context.Context, prompt string, mode history.Mode, images []staging.File) ([]string, error) {
	if c == nil {
		return nil, errors.New("relay: client not configured")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("relay: encode prompt: %w", err)
	}
	if err := writer.WriteField("mode", string(mode)); err != nil {
		return nil, fmt.Errorf("relay: encode mode: %w", err)
	}
	for i, img := range images {
		if i >= MaxImagesPerRequest {
			break
		}
		part, err := writer.CreatePart(imagePartHeader(img))
		if err != nil {
			return nil, fmt.Errorf("relay: encode image part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, fmt.Errorf("relay: write image part: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("relay: finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", body)
	if err != nil {
		return nil, fmt.Errorf("relay: create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("relay: read response: %w", err)
	}

	var out generateResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := strings.TrimSpace(out.Error)
		if decodeErr != nil || message == "" {
			message = "Generation failed. Please try again later."
		}
		return nil, &Error{Status: resp.StatusCode, Message: message}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("relay: decode response: %w", decodeErr)
	}

	images2 := make([]string, 0, len(out.Images))
	for _, url := range out.Images {
		if url != "" {
			images2 = append(images2, url)
		}
	}
	return images2, nil
}

func imagePartHeader(img staging.File) textproto.MIMEHeader {
	name := img.Name
	if name == "" {
		name = "image"
	}
	mime := img.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, name))
	header.Set("Content-Type", mime)
	return header
}
