package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"studioshot/internal/db"
	"studioshot/internal/http/handlers"
	httpapi "studioshot/internal/http/httpapi"
	"studioshot/internal/infra"
	"studioshot/internal/infra/geoip"
	"studioshot/internal/middleware"
	"studioshot/internal/pipeline"
	"studioshot/internal/providers/architect"
	"studioshot/internal/providers/synth"
	"studioshot/internal/providers/vision"
	"studioshot/internal/rategate"
	"studioshot/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	queries := db.New(dbpool)

	store, staticDir, err := buildStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	analyzer, promptArchitect, err := buildProviders(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize prompt providers")
	}
	synthesizer, err := synth.NewGeminiSynthesizer(synth.GeminiOptions{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize synthesizer")
	}

	orchestrator := pipeline.NewOrchestrator(pipeline.Options{
		Quotas:          queries,
		Generations:     queries,
		Notifications:   queries,
		Store:           store,
		Vision:          analyzer,
		Architect:       promptArchitect,
		Synth:           synthesizer,
		Gate:            rategate.New(queries, cfg.DailyCap),
		UploadBucket:    cfg.UploadBucket,
		GeneratedBucket: cfg.GeneratedBucket,
		SignedURLTTL:    cfg.SignedURLTTL,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		Logger:          logger,
	})

	app := &handlers.App{
		Quotas:        queries,
		Generations:   queries,
		Notifications: queries,
		Store:         store,
		Pipeline:      orchestrator,
		Config:        cfg,
		Logger:        logger,
	}

	router := httpapi.NewRouter(app, countryLookup(cfg, logger), staticDir)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil {
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

// buildStore returns the configured object store and, for the filesystem
// driver, the directory to expose under /static.
func buildStore(cfg *infra.Config) (storage.ObjectStore, string, error) {
	if cfg.StorageDriver == "s3" {
		store, err := storage.NewS3Store(storage.S3Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKeyID,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3Endpoint != "",
		})
		return store, "", err
	}
	store, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	return store, cfg.StoragePath, err
}

// buildProviders selects the analyzer and prompt architect for the
// configured provider. Model-backed architects fall back to the static one
// so a provider outage never blocks generation.
func buildProviders(cfg *infra.Config) (vision.Analyzer, architect.Architect, error) {
	fallback := architect.NewStaticArchitect()

	switch cfg.PromptProvider {
	case "openai":
		analyzer, err := vision.NewOpenAIAnalyzer(vision.OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		arch, err := architect.NewOpenAIArchitect(architect.OpenAIOptions{
			APIKey:   cfg.OpenAIAPIKey,
			Model:    cfg.OpenAIModel,
			BaseURL:  cfg.OpenAIBaseURL,
			Fallback: fallback,
		})
		if err != nil {
			return nil, nil, err
		}
		return analyzer, arch, nil
	case "static":
		analyzer, err := vision.NewGeminiAnalyzer(vision.GeminiOptions{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return analyzer, fallback, nil
	default:
		analyzer, err := vision.NewGeminiAnalyzer(vision.GeminiOptions{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		arch, err := architect.NewGeminiArchitect(architect.GeminiOptions{
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.GeminiModel,
			BaseURL:  cfg.GeminiBaseURL,
			Fallback: fallback,
		})
		if err != nil {
			return nil, nil, err
		}
		return analyzer, arch, nil
	}
}

// countryLookup builds the GeoIP-backed resolver when a database path is
// configured; otherwise locale detection relies on headers alone.
func countryLookup(cfg *infra.Config, logger infra.Logger) middleware.CountryLookup {
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, falling back to header detection")
		return nil
	}
	if resolver == nil {
		return nil
	}
	return resolver.CountryCode
}
