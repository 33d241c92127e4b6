package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment          string
	HTTPPort             string
	HTTPReadTimeout      time.Duration
	HTTPWriteTimeout     time.Duration
	HTTPIdleTimeout      time.Duration
	ShutdownGrace        time.Duration
	DatabaseURL          string
	JWTSecret            []byte
	JWTIssuer            string
	JWTAudience          string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	RefreshTokenBytes    int
	AdminEmail           string
	AdminPassword        string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	LockoutAttempts      int
	LockoutWindow        time.Duration
	CleanupInterval      time.Duration
	ServiceName          string
	RateLimitRPM         int
	RateLimitIdleWindow  time.Duration
	TelemetryEndpoint    string
	TelemetryInsecure    bool
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool
	CookieDomain         string
	CookieSecure         bool
}

// Load reads configuration from environment variables with sane defaults.
// A missing JWT secret or database URL is fatal here rather than surfacing
// per-request.
func Load() (Config, error) {
	_ = godotenv.Load()

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	cfg := Config{
		Environment:          getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		HTTPReadTimeout:      getDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout:     getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		HTTPIdleTimeout:      getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownGrace:        getDuration("SHUTDOWN_GRACE", 10*time.Second),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		JWTSecret:            []byte(secret),
		JWTIssuer:            getEnv("JWT_ISSUER", "launchpad"),
		JWTAudience:          getEnv("JWT_AUDIENCE", "launchpad-users"),
		AccessTokenTTL:       getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:      getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		RefreshTokenBytes:    getInt("REFRESH_TOKEN_BYTES", 32),
		AdminEmail:           strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
		AdminPassword:        os.Getenv("ADMIN_PASSWORD"),
		RedisAddr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getInt("REDIS_DB", 0),
		LockoutAttempts:      getInt("LOCKOUT_ATTEMPTS", 5),
		LockoutWindow:        getDuration("LOCKOUT_WINDOW", 5*time.Minute),
		CleanupInterval:      getDuration("TOKEN_CLEANUP_INTERVAL", 24*time.Hour),
		ServiceName:          getEnv("SERVICE_NAME", "launchpad"),
		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 600),
		RateLimitIdleWindow:  getDuration("RATE_LIMIT_IDLE_WINDOW", 5*time.Minute),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", false),
		CookieDomain:         os.Getenv("COOKIE_DOMAIN"),
		CookieSecure:         getBool("COOKIE_SECURE", false),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RefreshTokenBytes < 32 {
		cfg.RefreshTokenBytes = 32
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
