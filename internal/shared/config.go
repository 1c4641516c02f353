package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv          string
	LogLevel        string
	HTTPAddr        string
	TrustProxy      bool
	MetricsAddr     string
	MySQLDSN        string
	RedisAddr       string
	RedisDB         int
	RedisPass       string
	GeminiBase      string
	GeminiKey       string
	GeminiModel     string
	GeminiRPS       int
	SearchTimeout   time.Duration
	AnalysisTimeout time.Duration
	JWTSecret       string
	JWTIssuer       string
	QuotaPerHour    int
	RecheckWorkers  int
	RecheckBatch    int
}

// Load reads the environment, after merging a local .env file when one exists.
func Load() Config {
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:          env("APP_ENV", "prod"),
		LogLevel:        env("LOG_LEVEL", "info"),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		TrustProxy:      env("TRUST_PROXY_HEADERS", "false") == "true",
		MetricsAddr:     env("METRICS_ADDR", ""),
		MySQLDSN:        env("MYSQL_DSN", "root:root@tcp(localhost:3306)/pricedrop?parseTime=true&clientFoundRows=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:       env("REDIS_ADDR", "localhost:6379"),
		RedisDB:         atoi("REDIS_DB", 0),
		RedisPass:       env("REDIS_PASSWORD", ""),
		GeminiBase:      env("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiKey:       env("GEMINI_API_KEY", ""),
		GeminiModel:     env("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiRPS:       atoi("GEMINI_RPS", 5),
		SearchTimeout:   time.Duration(atoi("SEARCH_TIMEOUT_SECONDS", 45)) * time.Second,
		AnalysisTimeout: time.Duration(atoi("ANALYSIS_TIMEOUT_SECONDS", 30)) * time.Second,
		JWTSecret:       env("JWT_SECRET", ""),
		JWTIssuer:       env("JWT_ISSUER", ""),
		QuotaPerHour:    atoi("COMPARE_QUOTA_PER_HOUR", 20),
		RecheckWorkers:  atoi("RECHECK_WORKERS", 4),
		RecheckBatch:    atoi("RECHECK_BATCH", 200),
	}
	if c.GeminiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is empty")
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty; API runs unauthenticated")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
