package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yashrajoria/storefront/database"
	awspkg "github.com/yashrajoria/storefront/pkg/aws"
)

// Config holds all configuration for the storefront API.
type Config struct {
	Env     string
	Port    string
	BaseURL string

	MongoURL string
	MongoDB  string
	Postgres database.PostgresConfig
	RedisURL string

	JWTSecret string
	JWTTTL    time.Duration
	CartTTL   time.Duration

	TaxPrice      float64
	ShippingPrice float64

	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSOrigins       []string

	AWS              awspkg.Settings
	CloudWatchLogs   bool
	LogGroup         string
	MetricsEnabled   bool
	MetricsNamespace string
	OrderTopicARN    string
	OrderQueueURL    string
	S3Bucket         string
	PresignExpiry    time.Duration
}

// LoadConfig reads configuration from environment variables with optional
// Secrets Manager override.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		Port:     getEnv("PORT", "8000"),
		BaseURL:  strings.TrimRight(getEnv("BASE_URL", "http://localhost:8000"), "/"),
		MongoURL: os.Getenv("MONGO_URL"),
		MongoDB:  getEnv("MONGO_DB", "storefront"),
		Postgres: database.PostgresConfig{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DB:       os.Getenv("POSTGRES_DB"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		RedisURL:  getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		JWTTTL:            getDuration("JWT_EXPIRE_TIME", 90*24*time.Hour),
		CartTTL:           getDuration("CART_TTL", 7*24*time.Hour),
		TaxPrice:          getFloat("TAX_PRICE", 0),
		ShippingPrice:     getFloat("SHIPPING_PRICE", 0),
		RateLimitRequests: getInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		CORSOrigins:       splitList(os.Getenv("CORS_ORIGINS")),

		AWS: awspkg.Settings{
			Region:   getEnv("AWS_REGION", "us-east-1"),
			Endpoint: os.Getenv("AWS_ENDPOINT"),
		},
		CloudWatchLogs:   os.Getenv("CLOUDWATCH_LOGS_ENABLED") == "true",
		LogGroup:         getEnv("CLOUDWATCH_LOG_GROUP", "/storefront/api"),
		MetricsEnabled:   os.Getenv("METRICS_ENABLED") == "true",
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "Storefront"),
		OrderTopicARN:    os.Getenv("ORDER_SNS_TOPIC_ARN"),
		OrderQueueURL:    os.Getenv("ORDER_SQS_QUEUE_URL"),
		S3Bucket:         os.Getenv("AWS_S3_BUCKET"),
		PresignExpiry:    getDuration("S3_PRESIGN_EXPIRY", 15*time.Minute),
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		cfg.applySecrets(context.Background())
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.MongoURL == "" {
		return nil, fmt.Errorf("MONGO_URL is required")
	}
	if cfg.Postgres.User == "" || cfg.Postgres.Password == "" || cfg.Postgres.DB == "" || cfg.Postgres.Host == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	return cfg, nil
}

// applySecrets falls back to the env values on any failure.
func (cfg *Config) applySecrets(ctx context.Context) {
	awsCfg, err := awspkg.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return
	}
	sm := awspkg.NewSecretsClient(awsCfg)

	if jwt, err := sm.GetSecret(ctx, "storefront/JWT_SECRET"); err == nil && jwt != "" {
		cfg.JWTSecret = jwt
	}
	if url, err := sm.GetSecret(ctx, "storefront/MONGO_URL"); err == nil && url != "" {
		cfg.MongoURL = url
	}
	if dbjson, err := sm.GetSecret(ctx, "storefront/DB_CREDENTIALS"); err == nil && dbjson != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(dbjson), &m); err == nil {
			override(&cfg.Postgres.User, m["POSTGRES_USER"])
			override(&cfg.Postgres.Password, m["POSTGRES_PASSWORD"])
			override(&cfg.Postgres.DB, m["POSTGRES_DB"])
			override(&cfg.Postgres.Host, m["POSTGRES_HOST"])
			override(&cfg.Postgres.Port, m["POSTGRES_PORT"])
		}
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getDuration accepts Go durations ("15m") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return fallback
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
