package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	UserCacheTTL  int    `envconfig:"USER_CACHE_TTL_MIN" default:"30"`

	S3URL       string `envconfig:"S3_URL"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"content-pdfs"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`

	GCPProjectID  string `envconfig:"GCP_PROJECT_ID"`
	ActivityTopic string `envconfig:"ACTIVITY_TOPIC" default:"activity-events"`

	GeminiAPIKeys []string `envconfig:"GEMINI_API_KEYS"`
	GeminiModel   string   `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// Expiry sweep settings
	SweepIntervalSec int `envconfig:"SWEEP_INTERVAL_SEC" default:"60"`

	// Generation orchestrator settings
	GenerationQueueName           string `envconfig:"GENERATION_QUEUE_NAME" default:"generation_queue"`
	GenerationPollTimeoutSec      int    `envconfig:"GENERATION_POLL_TIMEOUT_SEC" default:"30"`
	GenerationPollMaxMsg          int    `envconfig:"GENERATION_POLL_MAX_MSG" default:"1"`
	GenerationMaxRetries          int    `envconfig:"GENERATION_MAX_RETRIES" default:"5"`
	GenerationBackoffInitialSec   int    `envconfig:"GENERATION_BACKOFF_INITIAL_SEC" default:"1"`
	GenerationBackoffMaxSec       int    `envconfig:"GENERATION_BACKOFF_MAX_SEC" default:"60"`
	GenerationDeadLetterQueueName string `envconfig:"GENERATION_DEAD_LETTER_QUEUE_NAME" default:"generation_queue_dlq"`

	// Signup defaults; the settings document can override the bonus.
	TrialDurationMin int `envconfig:"TRIAL_DURATION_MIN" default:"60"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}
