// Package staging manages the reference images a user has selected for an
// upcoming generation. Every staged image owns an ephemeral preview handle
// which must be released exactly once when the image leaves the list.
package staging

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	// Capacity is the most images the list will hold; additions beyond it
	// are ignored without error.
	Capacity = 9

	// MaxFileBytes is the per-file upload limit.
	MaxFileBytes = 10 << 20
)

var (
	ErrNotAnImage = errors.New("staging: only image files are supported")
	ErrTooLarge   = errors.New("staging: each image must be smaller than 10MB")
)

// File is a raw user-selected upload.
type File struct {
	Name string
	MIME string
	Data []byte
}

// Validate checks the upload against the staging constraints.
func (f File) Validate() error {
	if !strings.HasPrefix(f.MIME, "image/") {
		return ErrNotAnImage
	}
	if int64(len(f.Data)) > MaxFileBytes {
		return ErrTooLarge
	}
	return nil
}

// PreviewHandle is a viewable stand-in for a staged file. Handles are scarce;
// Release must be called exactly once when the handle is no longer shown.
type PreviewHandle interface {
	URL() string
	Release()
}

// PreviewFactory creates preview handles for validated files.
type PreviewFactory interface {
	Create(f File) (PreviewHandle, error)
}

// Image is a staged reference image owned by a List.
type Image struct {
	ID      string
	File    File
	Preview PreviewHandle
}

// List holds the ordered staged images and drives the preview lifecycle.
type List struct {
	mu      sync.Mutex
	factory PreviewFactory
	images  []Image
}

// NewList creates an empty list. A nil factory falls back to data-URI
// previews.
func NewList(factory PreviewFactory) *List {
	if factory == nil {
		factory = DataURIFactory{}
	}
	return &List{factory: factory}
}

// Add validates and stages a file, creating its preview handle. When the list
// is already at capacity the file is ignored and (nil, nil) is returned.
func (l *List) Add(f File) (*Image, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.images) >= Capacity {
		return nil, nil
	}

	preview, err := l.factory.Create(f)
	if err != nil {
		return nil, err
	}
	img := Image{ID: uuid.NewString(), File: f, Preview: preview}
	l.images = append(l.images, img)
	return &img, nil
}

// Remove releases the preview of the image at index and drops it from the
// list. Out-of-range indexes are a no-op.
func (l *List) Remove(index int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.images) {
		return
	}
	release(l.images[index])
	l.images = append(l.images[:index], l.images[index+1:]...)
}

// ReplaceAll validates the replacement files, then releases every current
// preview before installing the new sequence. On validation failure the list
// is left untouched.
func (l *List) ReplaceAll(files []File) error {
	for _, f := range files {
		if err := f.Validate(); err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]Image, 0, len(files))
	for _, f := range files {
		preview, err := l.factory.Create(f)
		if err != nil {
			for _, img := range next {
				release(img)
			}
			return err
		}
		next = append(next, Image{ID: uuid.NewString(), File: f, Preview: preview})
	}

	for _, img := range l.images {
		release(img)
	}
	l.images = next
	return nil
}

// DisposeAll releases every held preview. Called on host teardown.
func (l *List) DisposeAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, img := range l.images {
		release(img)
	}
	l.images = nil
}

// Images returns a snapshot of the staged sequence.
func (l *List) Images() []Image {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Image, len(l.images))
	copy(out, l.images)
	return out
}

// Len reports the number of staged images.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.images)
}

func release(img Image) {
	if img.Preview != nil {
		img.Preview.Release()
	}
}
