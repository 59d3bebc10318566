// Package handlers implements the relay's HTTP surface.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Gavin6404-sz/hano-bananaclone/internal/history"
	"github.com/Gavin6404-sz/hano-bananaclone/internal/infra"
	"github.com/Gavin6404-sz/hano-bananaclone/internal/providers/openrouter"
)

// Generator produces images for a prompt. *openrouter.Client satisfies it.
type Generator interface {
	GenerateImages(ctx context.Context, req openrouter.Request) ([]string, error)
}

// App carries the dependencies of every handler.
type App struct {
	Config    *infra.Config
	Logger    zerolog.Logger
	Generator Generator
	// History, when non-nil, records observed generation durations so the
	// relay can improve its own estimates. Optional.
	History history.Store
	Now     func() time.Time
}

// NewApp wires an App with a wall clock.
func NewApp(cfg *infra.Config, logger zerolog.Logger, gen Generator, store history.Store) *App {
	return &App{
		Config:    cfg,
		Logger:    logger,
		Generator: gen,
		History:   store,
		Now:       time.Now,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (a *App) fail(w http.ResponseWriter, code int, message string) {
	a.json(w, code, errorResponse{Error: message})
}
