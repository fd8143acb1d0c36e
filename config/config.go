package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Redis     RedisConfig
	Payment   PaymentConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	LogLevel    string
	LogFormat   string // json, console
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// RedisConfig backs the idempotency store for order creation.
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

type PaymentConfig struct {
	RequestTimeout time.Duration
	RefundTimeout  time.Duration
	KakaoPay       KakaoPayConfig
}

type KakaoPayConfig struct {
	AdminKey    string
	CID         string
	BaseURL     string
	ApprovalURL string
	FailURL     string
	CancelURL   string
}

type SchedulerConfig struct {
	Enabled            bool
	StaleIntentCron    string
	StaleIntentAge     time.Duration
	ReconciliationCron string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "console"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h"), 168*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Redis: RedisConfig{
			Host:           getEnv("REDIS_HOST", "localhost"),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             parseInt(getEnv("REDIS_DB", "0"), 0),
			IdempotencyTTL: parseDuration(getEnv("IDEMPOTENCY_TTL", "24h"), 24*time.Hour),
		},
		Payment: PaymentConfig{
			RequestTimeout: parseDuration(getEnv("PAYMENT_REQUEST_TIMEOUT", "10s"), 10*time.Second),
			RefundTimeout:  parseDuration(getEnv("PAYMENT_REFUND_TIMEOUT", "15s"), 15*time.Second),
			KakaoPay: KakaoPayConfig{
				AdminKey:    getEnv("KAKAOPAY_ADMIN_KEY", ""),
				CID:         getEnv("KAKAOPAY_CID", "TC0ONETIME"),
				BaseURL:     getEnv("KAKAOPAY_BASE_URL", "https://open-api.kakaopay.com/online/v1/payment"),
				ApprovalURL: getEnv("KAKAOPAY_APPROVAL_URL", "http://localhost:3000/payments/success"),
				FailURL:     getEnv("KAKAOPAY_FAIL_URL", "http://localhost:3000/payments/fail"),
				CancelURL:   getEnv("KAKAOPAY_CANCEL_URL", "http://localhost:3000/payments/cancel"),
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:            getEnv("SCHEDULER_ENABLED", "true") == "true",
			StaleIntentCron:    getEnv("STALE_INTENT_CRON", "*/10 * * * *"),
			StaleIntentAge:     parseDuration(getEnv("STALE_INTENT_AGE", "30m"), 30*time.Minute),
			ReconciliationCron: getEnv("RECONCILIATION_CRON", "0 * * * *"),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
