package router

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"app/internal/api/v1/handler"
	"app/internal/cache"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/pgmq"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/reward"
	"app/internal/service"
	"app/internal/sweep"
	"app/migrations"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New builds the HTTP handler with all of its dependencies, plus the expiry
// sweeper the caller runs in the background. The returned sql.DB and pgxpool
// are owned by the caller and closed on shutdown.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, *sweep.Sweeper, *pgxpool.Pool, *sql.DB, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Router initializing")

	// Pool for repositories; a database/sql handle for migrations and pgmq.
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create pgx pool")
		return nil, nil, nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		return nil, nil, nil, nil, err
	}

	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open DB connection")
		return nil, nil, nil, nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := repository.Migrate(ctx, db, migrations.FS); err != nil {
		logger.Error().Err(err).Msg("Failed to apply migrations")
		return nil, nil, nil, nil, err
	}
	logger.Info().Msg("Database ready")

	// Redis for user snapshots and study-time counters.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	userCache := cache.NewUserCache(redisClient, time.Duration(cfg.UserCacheTTL)*time.Minute)
	studyTime := cache.NewStudyTimeTracker(redisClient)

	// S3 for PDF delivery.
	var s3Client *s3.Client
	if cfg.S3URL != "" {
		s3Config, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.S3Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to load S3 config")
			return nil, nil, nil, nil, err
		}
		s3Client = s3.NewFromConfig(s3Config, func(o *s3.Options) {
			o.BaseEndpoint = awssdk.String(cfg.S3URL)
			o.UsePathStyle = true
		})
	} else {
		logger.Warn().Msg("S3 not configured; PDF links will not be presigned")
	}

	// Pub/Sub for the activity stream.
	var publisher pubsub.Publisher
	if cfg.GCPProjectID != "" {
		p, err := pubsub.NewPublisher(ctx, cfg.GCPProjectID)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create Pub/Sub publisher")
			return nil, nil, nil, nil, err
		}
		publisher = p
	} else {
		logger.Warn().Msg("GCP project not configured; activity events disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	locks := reward.NewLocks()
	queueClient := pgmq.New(db)

	userRepo := repository.NewUserRepo(pool)
	contentRepo := repository.NewContentRepo(pool, logger)
	settingsRepo := repository.NewSettingsRepo(pool)
	historyRepo := repository.NewHistoryRepo(pool)

	userSvc := service.NewUserService(userRepo, settingsRepo, historyRepo, userCache, locks,
		publisher, cfg.ActivityTopic, cfg.JWTSecret, time.Duration(cfg.TrialDurationMin)*time.Minute, logger)
	contentSvc := service.NewContentService(contentRepo, userRepo, historyRepo, userCache, locks,
		queueClient, cfg.GenerationQueueName, s3Client, cfg.S3Bucket, publisher, cfg.ActivityTopic, logger)
	challengeSvc := service.NewChallengeService(contentRepo, userRepo, settingsRepo, historyRepo,
		userCache, locks, publisher, cfg.ActivityTopic, logger)
	rewardSvc := service.NewRewardService(userRepo, settingsRepo, historyRepo, userCache, studyTime,
		locks, publisher, cfg.ActivityTopic, logger)
	subSvc := service.NewSubscriptionService(userRepo, settingsRepo, historyRepo, userCache, locks,
		publisher, cfg.ActivityTopic, logger)
	adminSvc := service.NewAdminService(userRepo, settingsRepo, historyRepo, userCache, locks,
		publisher, cfg.ActivityTopic, logger)

	var secretSvc service.SecretService
	if cfg.GCPProjectID != "" {
		secretSvc, err = service.NewSecretService(ctx, cfg.GCPProjectID)
		if err != nil {
			logger.Warn().Err(err).Msg("Secret Manager unavailable; provider key storage disabled")
		}
	}

	userHandler := handler.NewUserHandler(userSvc, validate)
	contentHandler := handler.NewContentHandler(contentSvc, validate)
	challengeHandler := handler.NewChallengeHandler(challengeSvc, validate)
	rewardHandler := handler.NewRewardHandler(rewardSvc, validate)
	subHandler := handler.NewSubscriptionHandler(subSvc, validate)
	adminHandler := handler.NewAdminHandler(adminSvc, subSvc, contentSvc, secretSvc, validate)

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)
	adminMiddleware := func(next http.Handler) http.Handler {
		return authMiddleware(middleware.RequireAdmin(next))
	}

	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	contentHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	challengeHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	rewardHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	adminHandler.RegisterRoutes(apiV1Mux, adminMiddleware)

	mux := http.NewServeMux()
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	sweeper := sweep.New(userRepo, userCache, publisher, cfg.ActivityTopic,
		time.Duration(cfg.SweepIntervalSec)*time.Second, logger)

	return middleware.LoggerMiddleware(logger)(c.Handler(mux)), sweeper, pool, db, nil
}
