package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver    string
	DatabaseURL string
	SQLitePath  string

	RedisURL      string
	VisitCache    string // memory or redis
	VisitCacheKey string // prefix; the run id is appended
	VisitCacheTTL time.Duration

	OpenAIKey   string
	MetricsAddr string

	Concurrency       int
	RequestRPS        float64
	RequestTimeout    time.Duration
	MaxRetries        int
	UserAgent         string
	RetryFailedVisits bool

	BrandAliasesFile string

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	// .env at the project root, then the working directory
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()
	return &Config{
		DBDriver:    getEnv("DB_DRIVER", "sqlite3"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "datadir/db.sqlite3"),

		RedisURL:      os.Getenv("REDIS_URL"),
		VisitCache:    getEnv("VISIT_CACHE", "memory"),
		VisitCacheKey: getEnv("VISIT_CACHE_KEY", "catalog:visited"),
		VisitCacheTTL: getEnvDuration("VISIT_CACHE_TTL", 24*time.Hour),

		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		Concurrency:       getEnvInt("CONCURRENCY", 8),
		RequestRPS:        getEnvFloat("REQUEST_RPS", 4),
		RequestTimeout:    getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		MaxRetries:        getEnvInt("MAX_RETRIES", 3),
		UserAgent:         getEnv("USER_AGENT", "Mozilla/5.0 (compatible; marketinsight)"),
		RetryFailedVisits: getEnvBool("RETRY_FAILED_VISITS", false),

		BrandAliasesFile: os.Getenv("BRAND_ALIASES_FILE"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getEnvInt(k string, d int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k))); err == nil {
		return n
	}
	return d
}

func getEnvFloat(k string, d float64) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(k)), 64); err == nil {
		return f
	}
	return d
}

func getEnvBool(k string, d bool) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(k))); err == nil {
		return b
	}
	return d
}

func getEnvDuration(k string, d time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k))); err == nil {
		return v
	}
	return d
}
