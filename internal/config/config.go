package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Gemini     GeminiConfig
	Extraction ExtractionConfig
	Hub        HubConfig
	Stats      StatsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// GeminiConfig parameterizes the external AI capability. An empty APIKey
// leaves the capability unconfigured and the service runs without it.
type GeminiConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	RequestTimeout int
}

// ExtractionConfig controls the extraction worker pool and join deadline.
type ExtractionConfig struct {
	Workers         int
	DeadlineSeconds int
}

// HubConfig controls broadcast fan-out behavior.
type HubConfig struct {
	SubscriberBuffer  int
	SendTimeoutMillis int
}

// StatsConfig controls the statistics aggregate and its cache.
type StatsConfig struct {
	CacheTTLSeconds int
	TopProblems     int
	TrendMonths     int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "repair-board"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Gemini: GeminiConfig{
			APIKey:         os.Getenv("GEMINI_API_KEY"),
			Model:          getEnv("GEMINI_MODEL", "gemini-flash-latest"),
			BaseURL:        getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			RequestTimeout: getEnvAsInt("GEMINI_REQUEST_TIMEOUT_SECONDS", 25),
		},
		Extraction: ExtractionConfig{
			Workers:         getEnvAsInt("EXTRACTION_WORKERS", 4),
			DeadlineSeconds: getEnvAsInt("EXTRACTION_DEADLINE_SECONDS", 30),
		},
		Hub: HubConfig{
			SubscriberBuffer:  getEnvAsInt("HUB_SUBSCRIBER_BUFFER", 16),
			SendTimeoutMillis: getEnvAsInt("HUB_SEND_TIMEOUT_MILLIS", 1000),
		},
		Stats: StatsConfig{
			CacheTTLSeconds: getEnvAsInt("STATS_CACHE_TTL_SECONDS", 300),
			TopProblems:     getEnvAsInt("STATS_TOP_PROBLEMS", 5),
			TrendMonths:     getEnvAsInt("STATS_TREND_MONTHS", 6),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Deadline returns the shared extraction join deadline.
func (e ExtractionConfig) Deadline() time.Duration {
	if e.DeadlineSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.DeadlineSeconds) * time.Second
}

// SendTimeout returns the bounded per-observer publish wait.
func (h HubConfig) SendTimeout() time.Duration {
	if h.SendTimeoutMillis <= 0 {
		return time.Second
	}
	return time.Duration(h.SendTimeoutMillis) * time.Millisecond
}

// CacheTTL returns the stats cache expiry.
func (s StatsConfig) CacheTTL() time.Duration {
	if s.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
