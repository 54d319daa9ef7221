package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends understood by USER_STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Env  string
	Port int

	// identity provider
	GoogleClientID string
	GoogleJWKSURL  string

	// user document store
	UserStore      string
	DBURL          string
	DBMaxConns     int
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	// speech synthesis
	OpenAIAPIKey  string
	OpenAIBaseURL string
	SpeechTimeout time.Duration

	TrialMaximum int

	MaxBodyBytes       int64
	CORSAllowedOrigins []string

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64
}

func Load() Config {
	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleJWKSURL:  getEnv("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),

		UserStore:      strings.ToLower(getEnv("USER_STORE", StorePostgres)),
		DBURL:          getEnv("DATABASE_URL", buildDBURL()),
		DBMaxConns:     getEnvInt("DB_MAX_CONNS", 5),
		RedisAddr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "speechgate:"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		SpeechTimeout: time.Duration(getEnvInt("SPEECH_TIMEOUT_SECONDS", 60)) * time.Second,

		TrialMaximum: getEnvInt("TRIAL_MAXIMUM", 3),

		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 64<<10)),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", "http://localhost:4200"),

		OTelEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelSampleRatio: getEnvFloat("OTEL_SAMPLE_RATIO", 1.0),
	}
}

// Validate reports every missing or out of range setting at once so a
// misconfigured deployment fails on the first boot instead of the first request.
func (c Config) Validate() error {
	var errs []error

	if c.GoogleClientID == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID is required"))
	}

	if c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}

	if c.TrialMaximum < 0 {
		errs = append(errs, fmt.Errorf("TRIAL_MAXIMUM must be >= 0, got %d", c.TrialMaximum))
	}

	if c.SpeechTimeout <= 0 {
		errs = append(errs, errors.New("SPEECH_TIMEOUT_SECONDS must be positive"))
	}

	switch c.UserStore {
	case StoreMemory:
	case StorePostgres:
		if c.DBURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
		if c.DBMaxConns < 1 {
			errs = append(errs, fmt.Errorf("DB_MAX_CONNS must be >= 1, got %d", c.DBMaxConns))
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("USER_STORE %q is not one of memory, postgres, redis", c.UserStore))
	}

	return errors.Join(errs...)
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "speechgate")
	pass := getEnv("DB_PASSWORD", "speechgate")
	name := getEnv("DB_NAME", "speechgate")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env value, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)

		if err != nil {
			return fallback
		}

		return f
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)

		if err != nil {
			return fallback
		}

		return b
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)

	out := make([]string, 0)

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}
