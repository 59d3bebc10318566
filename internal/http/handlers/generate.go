package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/Gavin6404-sz/hano-bananaclone/internal/history"
	"github.com/Gavin6404-sz/hano-bananaclone/internal/providers/openrouter"
)

const (
	// maxGenerateImages is how many uploaded parts the relay processes; the
	// rest are ignored silently.
	maxGenerateImages = 4

	maxImageBytes = 10 << 20

	// maxFormMemory bounds the in-memory portion of the multipart parse.
	maxFormMemory = 48 << 20
)

const (
	msgEmptyPrompt      = "Prompt must not be empty."
	msgNotMultipart     = "Invalid request format: expected multipart/form-data."
	msgNotAnImage       = "Only image files are supported."
	msgImageTooLarge    = "Each image must be smaller than 10MB."
	msgMissingAPIKey    = "Missing environment variable OPENROUTER_API_KEY (set it in .env.local)."
	msgNonJSONUpstream  = "OpenRouter returned a non-JSON response."
	msgUpstreamFailed   = "OpenRouter request failed."
	msgGenerationFailed = "Generation failed. Please try again later."
)

type generateResponse struct {
	Images []string `json:"images"`
}

// Generate handles POST /api/generate: it validates the multipart submission,
// forwards it to OpenRouter, and relays the extracted image URLs.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	if a.Config == nil || strings.TrimSpace(a.Config.OpenRouterAPIKey) == "" {
		a.fail(w, http.StatusInternalServerError, msgMissingAPIKey)
		return
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		a.fail(w, http.StatusBadRequest, msgNotMultipart)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	prompt := strings.TrimSpace(r.FormValue("prompt"))
	if prompt == "" {
		a.fail(w, http.StatusBadRequest, msgEmptyPrompt)
		return
	}

	// Image parts only matter in image mode; anything else is text and stray
	// parts are ignored outright.
	mode := strings.TrimSpace(r.FormValue("mode"))
	if mode != "image" {
		mode = "text"
	}

	var dataURLs []string
	if mode == "image" && r.MultipartForm != nil {
		headers := r.MultipartForm.File["images"]
		if len(headers) > maxGenerateImages {
			headers = headers[:maxGenerateImages]
		}
		dataURLs = make([]string, 0, len(headers))
		for _, fh := range headers {
			dataURL, err := encodeImagePart(fh)
			if err != nil {
				var ve *validationError
				if errors.As(err, &ve) {
					a.fail(w, http.StatusBadRequest, ve.message)
					return
				}
				a.Logger.Error().Err(err).Msg("generate: read uploaded image")
				a.fail(w, http.StatusBadRequest, msgNotMultipart)
				return
			}
			dataURLs = append(dataURLs, dataURL)
		}
	}

	started := a.now()
	images, err := a.Generator.GenerateImages(r.Context(), openrouter.Request{
		Prompt:        prompt,
		Mode:          mode,
		ImageDataURLs: dataURLs,
	})
	if err != nil {
		a.failUpstream(w, err)
		return
	}

	elapsed := a.now().Sub(started)
	a.Logger.Info().
		Str("mode", mode).
		Int("images_in", len(dataURLs)).
		Int("images_out", len(images)).
		Dur("elapsed", elapsed).
		Msg("generate: completed")

	if a.History != nil && len(images) > 0 {
		a.History.Record(r.Context(), history.Sample{
			DurationMS: elapsed.Milliseconds(),
			Mode:       history.Mode(mode),
			ImageCount: len(dataURLs),
			ObservedAt: a.now().UnixMilli(),
		})
	}

	if images == nil {
		images = []string{}
	}
	a.json(w, http.StatusOK, generateResponse{Images: images})
}

// failUpstream maps provider failures onto relay responses. OpenRouter's own
// error status passes through so the browser sees what happened.
func (a *App) failUpstream(w http.ResponseWriter, err error) {
	if errors.Is(err, openrouter.ErrNonJSONResponse) {
		a.Logger.Error().Err(err).Msg("generate: upstream returned non-json body")
		a.fail(w, http.StatusBadGateway, msgNonJSONUpstream)
		return
	}

	var apiErr *openrouter.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = msgUpstreamFailed
		}
		status := apiErr.Status
		if status < http.StatusBadRequest || status > 599 {
			status = http.StatusBadGateway
		}
		a.Logger.Error().Int("upstream_status", apiErr.Status).Str("message", message).Msg("generate: upstream error")
		a.json(w, status, errorResponse{Error: message, Details: apiErr.Details})
		return
	}

	a.Logger.Error().Err(err).Msg("generate: request failed")
	a.fail(w, http.StatusBadGateway, msgGenerationFailed)
}

type validationError struct {
	message string
}

func (e *validationError) Error() string { return e.message }

// encodeImagePart validates one uploaded file and re-encodes it as a data URI
// for the chat-completions payload.
func encodeImagePart(fh *multipart.FileHeader) (string, error) {
	mime := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		return "", &validationError{message: msgNotAnImage}
	}
	if fh.Size > maxImageBytes {
		return "", &validationError{message: msgImageTooLarge}
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open part: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read part: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", &validationError{message: msgImageTooLarge}
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
