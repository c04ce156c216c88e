package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/travel-matching/internal/advisor"
	"github.com/denisok6893-rgb/travel-matching/internal/config"
	"github.com/denisok6893-rgb/travel-matching/internal/domain"
	httpapi "github.com/denisok6893-rgb/travel-matching/internal/http"
	"github.com/denisok6893-rgb/travel-matching/internal/logging"
	"github.com/denisok6893-rgb/travel-matching/internal/matching"
	"github.com/denisok6893-rgb/travel-matching/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config (default: $"+config.PathEnvVar+" or config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Logger().Fatal().Err(err).Msg("load config")
	}
	log := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := matching.LoadWeightsFromFile(cfg.Matching.WeightsPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Matching.WeightsPath).Msg("use default weights")
		w = matching.DefaultWeights()
	}
	engine := matching.NewEngine(w)

	dests := storage.DefaultDestinations()
	if p := cfg.Storage.DestinationsPath; p != "" {
		if dests, err = storage.LoadDestinationsFromFile(p); err != nil {
			return err
		}
		log.Info().Str("path", p).Int("count", len(dests)).Msg("loaded destinations")
	}

	deps := httpapi.Deps{
		Engine:            engine,
		InteractionWindow: cfg.Matching.InteractionWindow,
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
	}

	if cfg.Storage.DBPath != "" {
		st, err := openStore(ctx, cfg.Storage, dests, log)
		if err != nil {
			return err
		}
		defer st.Close()
		deps.Catalog = st
		deps.Users = st
		deps.Interactions = st
		deps.Ready = st.Ping
	} else {
		log.Info().Msg("no database configured; user endpoints disabled")
		deps.Catalog = storage.NewStaticCatalog(dests)
		deps.Interactions = storage.NewMemoryInteractions()
	}

	var gen advisor.TextGenerator
	if cfg.Gemini.APIKey != "" {
		gen = advisor.NewGeminiClient(advisor.GeminiConfig{
			APIKey:            cfg.Gemini.APIKey,
			Model:             cfg.Gemini.Model,
			BaseURL:           cfg.Gemini.BaseURL,
			Timeout:           cfg.Gemini.Timeout,
			RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
			BreakerFailures:   cfg.Gemini.BreakerFailures,
			BreakerTimeout:    cfg.Gemini.BreakerTimeout,
		}, &http.Client{Timeout: cfg.Gemini.Timeout})
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set; narrative endpoints return fallback texts")
	}
	deps.Narrator = advisor.New(gen, cfg.Gemini.Concurrency)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      httpapi.NewServer(deps).Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Address).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore opens the SQLite database and makes sure it holds a catalog.
// An explicit destinations file is upserted on every start; the built-in
// catalog only seeds an empty table.
func openStore(ctx context.Context, cfg config.StorageConfig, dests []domain.Destination, log zerolog.Logger) (*storage.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	st, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.EnsureSchema(); err != nil {
		st.Close()
		return nil, err
	}

	if cfg.DestinationsPath != "" {
		err = st.UpsertDestinations(ctx, dests)
	} else {
		var seeded bool
		if seeded, err = st.SeedDestinations(ctx, dests); seeded && err == nil {
			log.Info().Int("count", len(dests)).Msg("seeded destination catalog")
		}
	}
	if err != nil {
		st.Close()
		return nil, err
	}
	log.Info().Str("path", cfg.DBPath).Msg("sqlite store ready")
	return st, nil
}
