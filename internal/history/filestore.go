package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FileStore persists duration samples as a single JSON document on the local
// filesystem. It is the default store for hosts without a database.
type FileStore struct {
	path   string
	now    func() time.Time
	logger zerolog.Logger
}

// FileStoreOptions configures a FileStore. Logger and Now are optional.
type FileStoreOptions struct {
	Path   string
	Logger *zerolog.Logger
	Now    func() time.Time
}

// NewFileStore creates a store writing to the given path. The parent
// directory is created lazily on first Record.
func NewFileStore(opts FileStoreOptions) (*FileStore, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, errors.New("history: file path is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &FileStore{path: path, now: now, logger: logger}, nil
}

// Load reads the persisted samples. Absence, unreadable files, and malformed
// documents all yield an empty slice.
func (s *FileStore) Load(ctx context.Context) []Sample {
	if s == nil || ctx.Err() != nil {
		return nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	return decodeSamples(raw, s.now())
}

// Record appends a sample and re-persists the trimmed window. Failures are
// logged and swallowed.
func (s *FileStore) Record(ctx context.Context, sample Sample) {
	if s == nil {
		return
	}
	next := trim(append(s.Load(ctx), sample), s.now())
	raw, err := json.Marshal(next)
	if err != nil {
		s.logger.Debug().Err(err).Msg("history: encode samples")
		return
	}
	if err := s.write(raw); err != nil {
		s.logger.Debug().Err(err).Str("path", s.path).Msg("history: persist samples")
	}
}

func (s *FileStore) write(raw []byte) error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
