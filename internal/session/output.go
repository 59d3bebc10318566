package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Gavin6404-sz/hano-bananaclone/internal/staging"
	"github.com/Gavin6404-sz/hano-bananaclone/internal/storage"
	"github.com/Gavin6404-sz/hano-bananaclone/pkg/zip"
)

// ErrResultTooLarge rejects promoting an oversized result back into staging.
var ErrResultTooLarge = errors.New("session: the generated image is larger than 10MB and cannot be added as a reference")

// Download fetches the result image at index and writes it into the store.
// It returns the storage key of the written file. All failures are
// best-effort territory: the caller may fall back to handing the user the
// source URL directly.
func (s *Session) Download(ctx context.Context, index int, store *storage.FileStore) (string, error) {
	url, err := s.resultAt(index)
	if err != nil {
		return "", err
	}
	data, mime, err := s.fetchImage(ctx, url)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("banana-editor-%d.%s", s.now().UnixMilli(), guessExtension(mime))
	return store.Write(ctx, key, data)
}

// EditAgain promotes the result image at index to the sole reference image,
// releasing every currently staged preview in the process. The caller is
// expected to switch the next request to image mode.
func (s *Session) EditAgain(ctx context.Context, index int, list *staging.List) error {
	url, err := s.resultAt(index)
	if err != nil {
		return err
	}
	data, mime, err := s.fetchImage(ctx, url)
	if err != nil {
		return err
	}
	if int64(len(data)) > staging.MaxFileBytes {
		return ErrResultTooLarge
	}
	if mime == "" {
		mime = "image/png"
	}
	file := staging.File{
		Name: fmt.Sprintf("generated-%d.%s", s.now().UnixMilli(), guessExtension(mime)),
		MIME: mime,
		Data: data,
	}
	return list.ReplaceAll([]staging.File{file})
}

// ExportAll bundles every result image into a zip archive. Images that fail
// to fetch are skipped; an archive with zero entries is an error.
func (s *Session) ExportAll(ctx context.Context) ([]byte, error) {
	urls := s.Result()
	if len(urls) == 0 {
		return nil, ErrNoResult
	}
	var assets []zip.Asset
	for i, url := range urls {
		data, mime, err := s.fetchImage(ctx, url)
		if err != nil {
			s.logger.Debug().Err(err).Int("index", i).Msg("session: skip unfetchable result")
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: fmt.Sprintf("banana-editor-%02d.%s", i+1, guessExtension(mime)),
			MIME:     mime,
			Data:     data,
		})
	}
	if len(assets) == 0 {
		return nil, errors.New("session: no result image could be fetched")
	}
	return zip.ArchiveAssets(assets), nil
}

// fetchImage resolves a result reference into raw bytes and a MIME type.
// Data URIs are decoded locally; http(s) URLs are fetched.
func (s *Session) fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	if strings.HasPrefix(url, "data:") {
		return decodeDataURI(url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("session: create fetch request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("session: fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", fmt.Errorf("session: fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("session: read image: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", errors.New("session: not a data uri")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New("session: malformed data uri")
	}
	mime, _, _ := strings.Cut(meta, ";")
	if !strings.Contains(meta, "base64") {
		return nil, "", errors.New("session: unsupported data uri encoding")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("session: decode data uri: %w", err)
	}
	return data, mime, nil
}

func guessExtension(mime string) string {
	mime = strings.ToLower(mime)
	switch {
	case strings.Contains(mime, "png"):
		return "png"
	case strings.Contains(mime, "jpeg"), strings.Contains(mime, "jpg"):
		return "jpg"
	case strings.Contains(mime, "webp"):
		return "webp"
	default:
		return "png"
	}
}
