package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string

	DBType     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int

	LogLevel  string
	LogFormat string

	UseS3         bool
	S3Bucket      string
	S3Region      string
	CloudFrontURL string
	UploadDir     string
	PublicBaseURL string

	WebhookURL          string
	WebhookSecret       string
	WebhookTimeout      time.Duration
	WebhookMaxAttempts  int
	WebhookBackoff      time.Duration
	WebhookPollInterval time.Duration

	AdminEmail    string
	AdminPassword string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		DBType:     getEnv("DB_TYPE", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "requestdesk"),
		DBMaxConns: getEnvAsInt("DB_MAX_CONNS", 10),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		UseS3:         getEnv("USE_S3", "false") == "true",
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Region:      getEnv("S3_REGION", ""),
		CloudFrontURL: getEnv("CLOUDFRONT_URL", ""),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		WebhookURL:          getEnv("WEBHOOK_URL", ""),
		WebhookSecret:       getEnv("WEBHOOK_SECRET", ""),
		WebhookTimeout:      getEnvAsDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		WebhookMaxAttempts:  getEnvAsInt("WEBHOOK_MAX_ATTEMPTS", 3),
		WebhookBackoff:      getEnvAsDuration("WEBHOOK_BACKOFF", 60*time.Second),
		WebhookPollInterval: getEnvAsDuration("WEBHOOK_POLL_INTERVAL", 5*time.Second),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/v1/auth/google/callback"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "no-reply@requestdesk.local"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Config loaded")
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBType {
	case "postgres", "postgresql", "mysql", "mariadb", "sqlserver", "mssql":
		if c.DBHost == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.DBName == "" {
			return fmt.Errorf("DB_NAME is required")
		}
		if c.DBUser == "" {
			return fmt.Errorf("DB_USER is required")
		}
	case "sqlite":
		if c.DBName == "" {
			return fmt.Errorf("DB_NAME is required (sqlite file path)")
		}
	default:
		return fmt.Errorf("unsupported DB_TYPE: %s", c.DBType)
	}

	if c.UseS3 && (c.S3Bucket == "" || c.S3Region == "") {
		return fmt.Errorf("USE_S3=true requires S3_BUCKET and S3_REGION")
	}
	if c.WebhookMaxAttempts < 1 {
		return fmt.Errorf("WEBHOOK_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvAsDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
