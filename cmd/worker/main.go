package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"

	"app/internal/config"
	"app/internal/gemini"
	"app/internal/logger"
	"app/internal/orchestrator/generation"
	"app/internal/pgmq"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// database/sql for pgmq, a pgx pool for the content repository.
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		logger.Fatal().Msgf("Failed to create pgx pool: %v", err)
	}
	defer pool.Close()
	logger.Info().Msg("Database connection established")

	pgmqClient := pgmq.New(db)
	contentRepo := repository.NewContentRepo(pool, logger)

	// Provider keys come from Secret Manager when available, env otherwise.
	keys := cfg.GeminiAPIKeys
	if cfg.GCPProjectID != "" {
		if secretSvc, err := service.NewSecretService(ctx, cfg.GCPProjectID); err == nil {
			if stored, err := secretSvc.GetProviderKeys(ctx, "gemini"); err == nil && len(stored) > 0 {
				keys = stored
			} else if err != nil {
				logger.Warn().Err(err).Msg("Could not load provider keys from Secret Manager; using env keys")
			}
		} else {
			logger.Warn().Err(err).Msg("Secret Manager unavailable; using env keys")
		}
	}
	if len(keys) == 0 {
		logger.Fatal().Msg("No generation API keys configured")
	}
	genClient := gemini.New(keys, cfg.GeminiModel, logger)

	var publisher pubsub.Publisher
	if cfg.GCPProjectID != "" {
		p, err := pubsub.NewPublisher(ctx, cfg.GCPProjectID)
		if err != nil {
			logger.Warn().Err(err).Msg("Pub/Sub unavailable; generation events disabled")
		} else {
			publisher = p
			defer p.Close()
		}
	}

	worker := generation.NewWorker(pgmqClient, contentRepo, genClient, publisher, cfg.ActivityTopic, cfg, logger)
	if err := worker.Run(ctx); err != nil {
		logger.Fatal().Msgf("Generation worker failed: %v", err)
	}
	logger.Info().Msg("Generation worker stopped gracefully")
}
