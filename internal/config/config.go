package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	DBDriver  string
	DBConn    string
	LogLevel  string
	JWTSecret string

	RedisAddr     string
	RedisPassword string
	UploadTTL     time.Duration

	AgeRefreshSchedule string

	RefRateURL    string
	RefRateMargin float64

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
	ReportEmail  string
}

// NewConfig loads configuration from environment variables. A .env file in
// the working directory is read first when present.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DBDriver:           getEnv("DB_DRIVER", "postgres"),
		DBConn:             getEnv("DB_CONN", "host=localhost port=5432 user=crm password=crm dbname=loans sslmode=disable"),
		LogLevel:           getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		AgeRefreshSchedule: getEnv("AGE_REFRESH_SCHEDULE", "0 2 * * *"),
		RefRateURL:         getEnv("REF_RATE_URL", ""),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getEnv("SMTP_PORT", "587"),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SenderEmail:        getEnv("SENDER_EMAIL", "crm@localhost"),
		ReportEmail:        getEnv("REPORT_EMAIL", ""),
	}

	ttl, err := time.ParseDuration(getEnv("UPLOAD_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_TTL: %w", err)
	}
	cfg.UploadTTL = ttl

	margin, err := strconv.ParseFloat(getEnv("REF_RATE_MARGIN", "0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REF_RATE_MARGIN: %w", err)
	}
	cfg.RefRateMargin = margin

	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite3" {
		return nil, fmt.Errorf("DB_DRIVER must be postgres or sqlite3, got %q", cfg.DBDriver)
	}
	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// MailEnabled reports whether enough SMTP settings are present to send mail
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.ReportEmail != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
