package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port int

	DBURL string

	// session tokens
	JWTSecret string
	TokenTTL  time.Duration

	// payment gateway
	StripeSecretKey string
	StripeBaseURL   string

	// optional redis (session denylist)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// optional admin seed
	AdminEmail string
	AdminName  string

	CORSAllowedOrigins []string
	OTLPEndpoint       string
}

// Load reads configuration from the environment. The store URL, the
// session-signing secret, the gateway key and the listen port are required;
// a missing one fails startup instead of running with undefined behavior.
func Load() (Config, error) {
	cfg := Config{
		Env:           getEnv("APP_ENV", "dev"),
		TokenTTL:      24 * time.Hour,
		StripeBaseURL: getEnv("STRIPE_API_BASE", "https://api.stripe.com"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminName:     getEnv("ADMIN_NAME", "Admin"),
		OTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	port, err := requireEnvInt("PORT")
	if err != nil {
		return Config{}, err
	}
	cfg.Port = port

	cfg.DBURL = os.Getenv("DB_URL")
	if cfg.DBURL == "" {
		cfg.DBURL, err = buildDBURL()
		if err != nil {
			return Config{}, err
		}
	}

	cfg.JWTSecret, err = requireEnv("JWT_SECRET")
	if err != nil {
		return Config{}, err
	}

	cfg.StripeSecretKey, err = requireEnv("STRIPE_SECRET_KEY")
	if err != nil {
		return Config{}, err
	}

	if n := os.Getenv("REDIS_DB"); n != "" {
		cfg.RedisDB, _ = strconv.Atoi(n)
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	return cfg, nil
}

// buildDBURL assembles the store URL from its parts when DB_URL is not set.
// User, password and database name have no safe fallback.
func buildDBURL() (string, error) {
	user, err := requireEnv("DB_USER")
	if err != nil {
		return "", err
	}
	pass, err := requireEnv("DB_PASSWORD")
	if err != nil {
		return "", err
	}
	name, err := requireEnv("DB_NAME")
	if err != nil {
		return "", err
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl, nil
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

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("config: required environment variable %s is not set", key)
	}
	return v, nil
}

func requireEnvInt(key string) (int, error) {
	v, err := requireEnv(key)
	if err != nil {
		return 0, err
	}

	num, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}

	return num, nil
}
