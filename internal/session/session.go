// Package session drives one generation attempt end to end: validation,
// simulated progress, the single relay call, and the terminal transition.
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Gavin6404-sz/hano-bananaclone/internal/eta"
	"github.com/Gavin6404-sz/hano-bananaclone/internal/history"
	"github.com/Gavin6404-sz/hano-bananaclone/internal/progress"
	"github.com/Gavin6404-sz/hano-bananaclone/internal/staging"
)

// maxRequestImages caps how many staged images accompany one request; the
// relay ignores anything beyond this anyway.
const maxRequestImages = 4

// State is the lifecycle position of the session.
type State int

const (
	StateIdle State = iota
	StateInFlight
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInFlight:
		return "in_flight"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyPrompt      = errors.New("session: prompt must not be empty")
	ErrNoReferenceImage = errors.New("session: at least one reference image is required")
	ErrBusy             = errors.New("session: a generation is already in flight")
	ErrNoImageReturned  = errors.New("session: no image returned")
	ErrNoResult         = errors.New("session: no result image at that index")
)

// MessageNoImageReturned is the user-facing text for a wire-successful
// response that carried no images.
const MessageNoImageReturned = "No image returned from the API (it may have returned text). Try a different prompt."

// Relay issues the single generation request. *relay.Client satisfies it.
type Relay interface {
	Generate(ctx context.Context, prompt string, mode history.Mode, images []staging.File) ([]string, error)
}

// Request is one submission. Images are only consulted in image mode.
type Request struct {
	Prompt string
	Mode   history.Mode
	Images []staging.Image
}

// Options configures a Session. Relay is required; everything else has a
// default (in-memory history, nop logger, shared HTTP client, wall clock).
type Options struct {
	Relay      Relay
	History    history.Store
	Logger     *zerolog.Logger
	OnProgress func(progress.State)
	HTTPClient *http.Client
	Now        func() time.Time
}

// Session is the generation state machine. One session serializes its
// attempts: Start refuses to run while a previous call is still in flight.
type Session struct {
	relay      Relay
	store      history.Store
	estimator  eta.Estimator
	logger     zerolog.Logger
	onProgress func(progress.State)
	httpClient *http.Client
	now        func() time.Time

	mu       sync.Mutex
	state    State
	images   []string
	errMsg   string
	progress progress.State
}

// New creates an idle session.
func New(opts Options) (*Session, error) {
	if opts.Relay == nil {
		return nil, errors.New("session: relay client is required")
	}
	store := opts.History
	if store == nil {
		store = history.NewMemoryStore()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		relay:      opts.Relay,
		store:      store,
		estimator:  eta.Estimator{Store: store},
		logger:     logger,
		onProgress: opts.OnProgress,
		httpClient: httpClient,
		now:        now,
	}, nil
}

// Start runs one generation attempt to settlement. Validation failures leave
// the session Idle without touching the network. The progress ticker is
// stopped before every terminal transition and unconditionally on the way
// out, so no tick can observe state after settlement. Cancelling ctx aborts
// the relay call and settles the attempt as Failed.
func (s *Session) Start(ctx context.Context, req Request) error {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return ErrEmptyPrompt
	}
	if req.Mode == history.ModeImage && len(req.Images) == 0 {
		return ErrNoReferenceImage
	}

	s.mu.Lock()
	if s.state == StateInFlight {
		s.mu.Unlock()
		return ErrBusy
	}
	s.state = StateInFlight
	s.images = nil
	s.errMsg = ""
	s.mu.Unlock()

	var files []staging.File
	imageCount := 0
	if req.Mode == history.ModeImage {
		imageCount = len(req.Images)
		for i, img := range req.Images {
			if i >= maxRequestImages {
				break
			}
			files = append(files, img.File)
		}
	}

	etaSec := s.estimator.Estimate(ctx, req.Mode, imageCount)
	startedAt := s.now()

	ticker := progress.StartTicker(etaSec, s.emitProgress)
	defer ticker.Stop()
	s.emitProgress(progress.State{Percent: 0, EtaSec: etaSec})

	s.logger.Debug().
		Str("mode", string(req.Mode)).
		Int("images", imageCount).
		Int("eta_sec", etaSec).
		Msg("session: generation started")

	urls, err := s.relay.Generate(ctx, prompt, req.Mode, files)
	ticker.Stop()

	if err != nil {
		s.settle(StateFailed, nil, err.Error())
		s.logger.Debug().Err(err).Msg("session: generation failed")
		return err
	}
	if len(urls) == 0 {
		s.settle(StateFailed, nil, MessageNoImageReturned)
		return ErrNoImageReturned
	}

	elapsed := s.now().Sub(startedAt)
	s.settle(StateSucceeded, urls, "")
	s.emitProgress(progress.State{Percent: 100, ElapsedSec: elapsed.Seconds(), EtaSec: etaSec})

	s.store.Record(context.WithoutCancel(ctx), history.Sample{
		DurationMS: elapsed.Milliseconds(),
		Mode:       req.Mode,
		ImageCount: imageCount,
		ObservedAt: s.now().UnixMilli(),
	})

	s.logger.Debug().
		Int("images", len(urls)).
		Dur("elapsed", elapsed).
		Msg("session: generation succeeded")
	return nil
}

// State reports the current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the images of the last successful attempt, replaced
// wholesale on every new generation.
func (s *Session) Result() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.images))
	copy(out, s.images)
	return out
}

// ErrorMessage is the user-facing message of the last failed attempt, empty
// otherwise.
func (s *Session) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Progress returns the most recently emitted progress state.
func (s *Session) Progress() progress.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *Session) settle(state State, images []string, errMsg string) {
	s.mu.Lock()
	s.state = state
	s.images = images
	s.errMsg = errMsg
	s.mu.Unlock()
}

func (s *Session) emitProgress(state progress.State) {
	s.mu.Lock()
	s.progress = state
	cb := s.onProgress
	s.mu.Unlock()
	if cb != nil {
		cb(state)
	}
}

func (s *Session) resultAt(index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.images) {
		if len(s.images) > 0 {
			return s.images[0], nil
		}
		return "", ErrNoResult
	}
	return s.images[index], nil
}
