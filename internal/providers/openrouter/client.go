// Package openrouter calls the OpenRouter chat-completions endpoint to
// generate images with a multimodal model.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultModel is the multimodal image model used by the relay.
	DefaultModel = "google/gemini-2.5-flash-image"
)

// ErrNonJSONResponse reports an upstream body that could not be parsed at
// all, regardless of HTTP status.
var ErrNonJSONResponse = errors.New("openrouter: non-json response")

// APIError is a failure reported by OpenRouter itself.
type APIError struct {
	Status  int
	Message string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("openrouter: http %d", e.Status)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Model      string
	Referer    string
	Title      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client is a thin chat-completions client. It owns no retry or queueing
// behavior; one request in, one parsed image list out.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	referer    string
	title      string
}

// NewClient creates an OpenRouter client with sane defaults.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      model,
		referer:    strings.TrimSpace(opts.Referer),
		title:      strings.TrimSpace(opts.Title),
	}
}

// Request describes one generation call.
type Request struct {
	Prompt string
	// Mode is "image" or "text"; it selects the instruction wrapped around
	// the prompt.
	Mode string
	// ImageDataURLs are self-contained data URIs for the reference images.
	ImageDataURLs []string
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Images []struct {
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"images"`
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateImages sends one chat-completion request and returns the image URLs
// (or data URIs) found in the reply. The explicit images field on the message
// is preferred; inline image_url parts inside free-form content are the
// fallback.
func (c *Client) GenerateImages(ctx context.Context, req Request) ([]string, error) {
	if c == nil {
		return nil, errors.New("openrouter: client not configured")
	}
	if c.apiKey == "" {
		return nil, errors.New("openrouter: API key is missing")
	}

	content := []contentPart{{Type: "text", Text: instructionFor(req)}}
	for _, url := range req.ImageDataURLs {
		if url == "" {
			continue
		}
		content = append(content, contentPart{Type: "image_url", ImageURL: &imageURL{URL: url}})
	}

	payload := chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: content}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openrouter: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openrouter: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		httpReq.Header.Set("X-Title", c.title)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openrouter: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openrouter: read response: %w", err)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, ErrNonJSONResponse
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Details: raw}
		if out.Error != nil {
			apiErr.Message = strings.TrimSpace(out.Error.Message)
		}
		return nil, apiErr
	}

	return extractImages(out), nil
}

func instructionFor(req Request) string {
	if req.Mode == "image" {
		return "Please edit/redraw based on the reference image(s) and generate a new image.\n\nPrompt: " + req.Prompt
	}
	return "Please generate an image based on the prompt.\n\nPrompt: " + req.Prompt
}

func extractImages(out chatResponse) []string {
	if len(out.Choices) == 0 {
		return nil
	}
	message := out.Choices[0].Message

	var fromField []string
	for _, img := range message.Images {
		if url := img.ImageURL.URL; url != "" {
			fromField = append(fromField, url)
		}
	}
	if len(fromField) > 0 {
		return fromField
	}
	return imagesFromContent(message.Content)
}

// imagesFromContent scans a structured message content array for image_url
// parts. Plain-string content carries no images.
func imagesFromContent(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil
	}
	var urls []string
	for _, part := range parts {
		if part.Type != "image_url" || part.ImageURL == nil {
			continue
		}
		if part.ImageURL.URL != "" {
			urls = append(urls, part.ImageURL.URL)
		}
	}
	return urls
}
