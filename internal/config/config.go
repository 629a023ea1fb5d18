package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	Port       int
	DBURL      string
	DBMaxConns int

	// token signing
	JWTSecret string
	JWTTTL    time.Duration

	BcryptCost int

	// bootstrap admin, skipped when email or password is empty
	AdminEmail    string
	AdminPassword string
	AdminUsername string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTelEndpoint    string
	OTelSampleRatio float64

	CORSAllowedOrigins []string

	RateLimitAuthRequests int
	RateLimitAuthWindow   time.Duration

	// password changes, counted per authenticated user
	RateLimitPasswordRequests int
	RateLimitPasswordWindow   time.Duration

	MaxBodyBytes int64
}

func Load() Config {
	// .env is optional; real environment variables always win
	_ = godotenv.Load()

	return Config{
		Env:        getEnv("APP_ENV", "dev"),
		Port:       getEnvInt("PORT", 8080),
		DBURL:      buildDBURL(),
		DBMaxConns: getEnvInt("DB_MAX_CONNS", 5),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		BcryptCost: getEnvInt("BCRYPT_COST", 10),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		RateLimitAuthRequests: getEnvInt("RATE_LIMIT_AUTH_REQUESTS", 10),
		RateLimitAuthWindow:   getEnvDuration("RATE_LIMIT_AUTH_WINDOW", time.Minute),

		RateLimitPasswordRequests: getEnvInt("RATE_LIMIT_PASSWORD_REQUESTS", 5),
		RateLimitPasswordWindow:   getEnvDuration("RATE_LIMIT_PASSWORD_WINDOW", 15*time.Minute),

		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
	}
}

// Validate reports configuration that would make the API unsafe to start.
func (c Config) Validate() error {
	if c.Env == "prod" && (c.JWTSecret == "" || c.JWTSecret == "dev-secret-change-me") {
		return fmt.Errorf("JWT_SECRET must be set in prod")
	}

	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}

	return nil
}

func buildDBURL() string {
	if url := getEnv("DATABASE_URL", ""); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "pricetracker")
	pass := getEnv("DB_PASSWORD", "pricetracker")
	name := getEnv("DB_NAME", "pricetracker")
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
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}

	return f
}

// accepts Go durations ("15m", "24h") or a bare number of seconds
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	if d, err := time.ParseDuration(v); err == nil {
		return d
	}

	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}

	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
