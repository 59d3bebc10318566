package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Gavin6404-sz/hano-bananaclone/internal/history"
	"github.com/Gavin6404-sz/hano-bananaclone/internal/http/handlers"
	httpapi "github.com/Gavin6404-sz/hano-bananaclone/internal/http/httpapi"
	"github.com/Gavin6404-sz/hano-bananaclone/internal/infra"
	"github.com/Gavin6404-sz/hano-bananaclone/internal/infra/geoip"
	"github.com/Gavin6404-sz/hano-bananaclone/internal/middleware"
	"github.com/Gavin6404-sz/hano-bananaclone/internal/providers/openrouter"
)

func main() {
	// Load .env / .env.local (optional)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.OpenRouterAPIKey == "" {
		logger.Warn().Msg("OPENROUTER_API_KEY is not set; /api/generate will report it per request")
	}

	ctx := context.Background()

	// Duration history store: Postgres when DATABASE_URL is set, otherwise a
	// local JSON file.
	var store history.Store
	if cfg.DatabaseURL != "" {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		store, err = history.NewPostgresStore(history.PostgresStoreOptions{DB: dbpool, Logger: &logger})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build history store")
		}
	} else {
		store, err = history.NewFileStore(history.FileStoreOptions{Path: cfg.HistoryPath, Logger: &logger})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build history store")
		}
	}

	// GeoIP lookup for request log enrichment (optional)
	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable")
	} else if resolver != nil {
		lookup = resolver.CountryCode
		if closer, ok := resolver.(io.Closer); ok {
			defer closer.Close()
		}
	}

	generator := openrouter.NewClient(openrouter.Options{
		BaseURL: cfg.OpenRouterBaseURL,
		APIKey:  cfg.OpenRouterAPIKey,
		Model:   cfg.OpenRouterModel,
		Referer: cfg.OpenRouterReferer,
		Title:   cfg.OpenRouterTitle,
		Timeout: cfg.UpstreamTimeout,
	})

	app := handlers.NewApp(cfg, logger, generator, store)
	router := httpapi.NewRouter(app, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("relay listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
