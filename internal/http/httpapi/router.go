// Package httpapi assembles the relay's router.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Gavin6404-sz/hano-bananaclone/internal/http/handlers"
	"github.com/Gavin6404-sz/hano-bananaclone/internal/middleware"
)

// NewRouter wires middlewares and routes around the handler App. The GeoIP
// lookup may be nil; the i18n middleware degrades to headers only.
func NewRouter(app *handlers.App, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.I18N("en", lookup),
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute)).
			Post("/generate", app.Generate)
	})

	return r
}
