package app

import (
	"strings"
	"time"

	"github.com/yungbote/xai-decision-backend/internal/data/db"
	"github.com/yungbote/xai-decision-backend/internal/inference/engine"
	"github.com/yungbote/xai-decision-backend/internal/observability"
	"github.com/yungbote/xai-decision-backend/internal/platform/envutil"
	"github.com/yungbote/xai-decision-backend/internal/platform/logger"
)

const EngineRules = "rules"

type Config struct {
	Port string

	DB db.Config

	Model    engine.Config
	FastMode bool

	AIWorkerConcurrency int
	AIWorkerSweep       time.Duration
	BulkConcurrency     int
	BulkMaxRows         int
	UploadMaxBytes      int64
	PromptHistoryLimit  int

	CacheMaxEntries int
	CacheTTL        time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ReviewerJWTSecret string
	AllowedOrigins    []string
	DomainSchemaPath  string

	MetricsEnabled bool
	Otel           observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port: envutil.String("PORT", "8000"),
		DB: db.Config{
			Driver:           strings.ToLower(envutil.String("DB_DRIVER", db.DriverSQLite)),
			SQLitePath:       envutil.String("SQLITE_PATH", "data/decisions.db"),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "decisions"),
		},
		Model: engine.Config{
			Type:        strings.ToLower(envutil.String("MODEL_ENGINE", engine.TypeOllama)),
			BaseURL:     envutil.String("MODEL_BASE_URL", "http://localhost:11434"),
			Model:       envutil.String("MODEL_NAME", "qwen2.5:3b"),
			APIKey:      envutil.String("MODEL_API_KEY", ""),
			Timeout:     envutil.Duration("MODEL_TIMEOUT", 120*time.Second),
			Temperature: envutil.Float("MODEL_TEMPERATURE", 0.3),
			NumCtx:      envutil.Int("MODEL_NUM_CTX", 2048),
			NumPredict:  envutil.Int("MODEL_NUM_PREDICT", 512),
		},
		FastMode:            envutil.Bool("FAST_MODE", false),
		AIWorkerConcurrency: envutil.Int("AI_WORKER_CONCURRENCY", 3),
		AIWorkerSweep:       envutil.Duration("AI_WORKER_SWEEP_INTERVAL", time.Minute),
		BulkConcurrency:     envutil.Int("BULK_CONCURRENCY", 5),
		BulkMaxRows:         envutil.Int("BULK_MAX_ROWS", 50),
		UploadMaxBytes:      envutil.Int64("UPLOAD_MAX_BYTES", 10<<20),
		PromptHistoryLimit:  envutil.Int("PROMPT_HISTORY_LIMIT", 3),
		CacheMaxEntries:     envutil.Int("CACHE_MAX_ENTRIES", 100),
		CacheTTL:            envutil.Duration("CACHE_TTL", time.Hour),
		RedisAddr:           envutil.String("REDIS_ADDR", ""),
		RedisPassword:       envutil.String("REDIS_PASSWORD", ""),
		RedisDB:             envutil.Int("REDIS_DB", 0),
		ReviewerJWTSecret:   envutil.String("REVIEWER_JWT_SECRET", ""),
		AllowedOrigins:      envutil.List("CORS_ALLOWED_ORIGINS", nil),
		DomainSchemaPath:    envutil.String("DOMAIN_SCHEMA_PATH", ""),
		MetricsEnabled:      envutil.Bool("METRICS_ENABLED", false),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "xai-decision"),
			Environment: envutil.String("APP_ENV", "development"),
			Version:     envutil.String("APP_VERSION", ""),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1),
		},
	}
	if cfg.Model.Type == EngineRules {
		cfg.FastMode = true
	}
	// The openai-compatible engine has no sensible local default URL.
	if cfg.Model.Type == engine.TypeOAIHTTP && cfg.Model.BaseURL == "http://localhost:11434" {
		cfg.Model.BaseURL = "http://localhost:8001"
	}

	if log != nil {
		log.Info("Configuration loaded",
			"port", cfg.Port,
			"db_driver", cfg.DB.Driver,
			"model_engine", cfg.Model.Type,
			"model_name", cfg.Model.Model,
			"model_base_url", cfg.Model.BaseURL,
			"model_api_key", mask(cfg.Model.APIKey),
			"model_timeout", cfg.Model.Timeout.String(),
			"fast_mode", cfg.FastMode,
			"ai_worker_concurrency", cfg.AIWorkerConcurrency,
			"bulk_concurrency", cfg.BulkConcurrency,
			"bulk_max_rows", cfg.BulkMaxRows,
			"upload_max_bytes", cfg.UploadMaxBytes,
			"redis_addr", cfg.RedisAddr,
			"employee_auth", cfg.ReviewerJWTSecret != "",
			"metrics", cfg.MetricsEnabled,
			"otel", cfg.Otel.Enabled,
		)
	}
	return cfg
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}
