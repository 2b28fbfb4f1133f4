package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/storylinehq/storyline/internal/api"
	"github.com/storylinehq/storyline/internal/auth"
	"github.com/storylinehq/storyline/internal/config"
	"github.com/storylinehq/storyline/internal/health"
	"github.com/storylinehq/storyline/internal/ingest"
	"github.com/storylinehq/storyline/internal/llm"
	"github.com/storylinehq/storyline/internal/metrics"
	"github.com/storylinehq/storyline/internal/regen"
	"github.com/storylinehq/storyline/internal/store"
	"github.com/storylinehq/storyline/internal/story"
	"github.com/storylinehq/storyline/internal/track"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	logger.Info().
		Str("environment", cfg.Environment).
		Str("addr", cfg.ListenAddr).
		Int("regen_window", cfg.RegenWindow).
		Bool("llm_enabled", cfg.LLMEnabled()).
		Msg("starting storyline")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	st, err := store.New(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer st.Close()

	if cfg.File != nil {
		if err := seed(st, cfg.File.Seed); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed projects")
		}
	}

	m := metrics.New()

	checker := health.NewChecker(logger)
	checker.Register("store", func(context.Context) health.Status {
		if err := st.Ping(); err != nil {
			return health.StatusDown
		}
		return health.StatusOK
	})

	var provider llm.Provider
	if cfg.LLMEnabled() {
		provider = llm.NewGeminiProvider(cfg.GeminiAPIKey,
			llm.WithModel(cfg.GeminiModel),
			llm.WithMaxTokens(cfg.GeminiMaxTokens),
			llm.WithHTTPClient(&http.Client{Timeout: cfg.GeminiTimeout}),
			llm.WithLogger(logger),
		)
		logger.Info().Str("model", cfg.GeminiModel).Msg("generative backend configured")
	} else {
		logger.Warn().Msg("no generative backend configured, every synthesis uses the deterministic path")
	}

	// In development, mint a service token for the internal endpoints so
	// operators don't need a separate tool to exercise them.
	if cfg.ServiceSecret != "" && cfg.Environment == "development" {
		if token, err := api.MintServiceToken(cfg.ServiceSecret, cfg.ServiceTokenTTL); err == nil {
			logger.Info().Str("service_token", token).Msg("development service token")
		}
	}

	validator := auth.NewValidator(st, logger)
	synthesizer := story.NewSynthesizer(provider, cfg.GeminiMaxTokens, st, m, logger)
	answerer := story.NewAnswerer(provider, cfg.GeminiMaxTokens, st, m, logger)
	tracker := track.New(st, m, logger)

	pool := regen.NewPool(regen.Config{
		Workers:   cfg.RegenWorkers,
		QueueSize: cfg.RegenQueueSize,
		Window:    cfg.RegenWindow,
	}, st, synthesizer, m, logger)
	pool.Start(ctx)
	defer pool.Stop()

	ingestor := ingest.New(validator, st, pool, logger)

	handlers := api.NewHandlers(ingestor, answerer, synthesizer, validator, tracker, logger)
	server := api.NewServer(api.ServerConfig{
		ListenAddr:    cfg.ListenAddr,
		ServiceSecret: cfg.ServiceSecret,
	}, handlers, checker, m, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		logger.Fatal().Err(err).Msg("api server exited")
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	if err := server.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
}

// seed applies the development seed block: idempotent project and credential
// inserts keyed on their external identifiers.
func seed(st *store.Store, projects []config.SeedProject) error {
	for _, p := range projects {
		proj := &store.Project{
			ID:       uuid.New().String(),
			PublicID: p.PublicID,
			Name:     p.Name,
			OwnerID:  p.OwnerID,
		}
		if err := st.CreateProject(proj); err != nil {
			return err
		}

		internalID, err := st.ResolveProjectID(p.PublicID)
		if err != nil {
			return err
		}

		for _, k := range p.Keys {
			active := true
			if k.Active != nil {
				active = *k.Active
			}
			cred := &store.Credential{
				ID:        uuid.New().String(),
				ProjectID: internalID,
				APIKey:    k.Key,
				APISecret: k.Secret,
				IsActive:  active,
			}
			if err := st.CreateCredential(cred); err != nil {
				return err
			}
		}
	}
	return nil
}
