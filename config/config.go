package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadENV loads variables from .env when GO_ENV is unset or "development".
// A missing .env file is not an error: containers inject the environment directly.
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	return nil
}

type EnvironmentVariable struct {
	GO_ENV   string
	LOG_MODE string
	PORT     int
	// Database
	DB_DRIVER    string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration
	REDIS_URL string
	// HTTP
	ALLOWED_ORIGINS string
	CLIENT_BASE_URL string
	COOKIE_SECURE   bool
	// Payments
	STRIPE_SECRET_KEY     string
	STRIPE_WEBHOOK_SECRET string
	PAYMENT_CURRENCY      string
	// Catalog rules
	MIN_COURSE_PRICE int64
	MAX_COURSE_PRICE int64
	// DigitalOcean Spaces
	DO_SPACES_ACCESS_KEY   string
	DO_SPACES_SECRET_KEY   string
	DO_SPACES_BUCKET       string
	DO_SPACES_REGION       string
	DO_SPACES_ENDPOINT     string
	DO_SPACES_CDN_ENDPOINT string
	// Mail
	SMTP_HOST        string
	SMTP_PORT        int
	SMTP_USERNAME    string
	SMTP_PASSWORD    string
	MAIL_FROM        string
	SENDGRID_API_KEY string
	// Realtime chat fan-out: local, redis or postgres
	CHAT_BUS string
	// Background jobs
	CRON_ENABLED bool
	// Seed
	ADMIN_EMAIL    string
	ADMIN_PASSWORD string
}

func Get() (*EnvironmentVariable, error) {
	goEnv := os.Getenv("GO_ENV")

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
		if goEnv == "production" {
			logMode = "production"
		}
	}

	envVariables := &EnvironmentVariable{
		GO_ENV:   goEnv,
		LOG_MODE: logMode,
		PORT:     getInt("PORT", 8080),
		// Database
		DB_DRIVER:    getEnvOrDefault("DB_DRIVER", "postgres"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      getEnvOrDefault("DB_HOST", "localhost"),
		DB_PORT:      getEnvOrDefault("DB_PORT", "5432"),
		DB_SSL_MODE:  getEnvOrDefault("DB_SSL_MODE", "disable"),
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: getEnvOrDefault("JWT_ISSUER", "course-marketplace-api"),
		// Redis
		REDIS_URL: getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		// HTTP
		ALLOWED_ORIGINS: getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		CLIENT_BASE_URL: strings.TrimRight(getEnvOrDefault("CLIENT_BASE_URL", "http://localhost:5173"), "/"),
		COOKIE_SECURE:   goEnv == "production",
		// Payments
		STRIPE_SECRET_KEY:     os.Getenv("STRIPE_SECRET_KEY"),
		STRIPE_WEBHOOK_SECRET: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		PAYMENT_CURRENCY:      strings.ToLower(getEnvOrDefault("PAYMENT_CURRENCY", "inr")),
		// Catalog rules
		MIN_COURSE_PRICE: int64(getInt("MIN_COURSE_PRICE", 399)),
		MAX_COURSE_PRICE: int64(getInt("MAX_COURSE_PRICE", 99999)),
		// DigitalOcean Spaces
		DO_SPACES_ACCESS_KEY:   os.Getenv("DO_SPACES_ACCESS_KEY"),
		DO_SPACES_SECRET_KEY:   os.Getenv("DO_SPACES_SECRET_KEY"),
		DO_SPACES_BUCKET:       os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:       os.Getenv("DO_SPACES_REGION"),
		DO_SPACES_ENDPOINT:     os.Getenv("DO_SPACES_ENDPOINT"),
		DO_SPACES_CDN_ENDPOINT: os.Getenv("DO_SPACES_CDN_ENDPOINT"),
		// Mail
		SMTP_HOST:        getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTP_PORT:        getInt("SMTP_PORT", 587),
		SMTP_USERNAME:    os.Getenv("SMTP_USERNAME"),
		SMTP_PASSWORD:    os.Getenv("SMTP_PASSWORD"),
		MAIL_FROM:        getEnvOrDefault("MAIL_FROM", "noreply@coursemarket.app"),
		SENDGRID_API_KEY: os.Getenv("SENDGRID_API_KEY"),
		// Realtime
		CHAT_BUS: strings.ToLower(getEnvOrDefault("CHAT_BUS", "local")),
		// Background jobs, enabled unless explicitly disabled
		CRON_ENABLED: os.Getenv("CRON_ENABLED") != "false",
		// Seed
		ADMIN_EMAIL:    os.Getenv("ADMIN_EMAIL"),
		ADMIN_PASSWORD: os.Getenv("ADMIN_PASSWORD"),
	}

	return envVariables, nil
}

// Validate reports configuration that the server cannot start without.
func (e *EnvironmentVariable) Validate() error {
	if e.JWT_SECRET == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}
	if e.MIN_COURSE_PRICE < 0 || e.MAX_COURSE_PRICE < e.MIN_COURSE_PRICE {
		return errors.New("MIN_COURSE_PRICE and MAX_COURSE_PRICE are inconsistent")
	}
	switch e.CHAT_BUS {
	case "local", "redis", "postgres":
	default:
		return errors.New("CHAT_BUS must be one of local, redis, postgres")
	}
	return nil
}

// PostgresDSN builds the DSN used by both gorm and the lib/pq listener.
func (e *EnvironmentVariable) PostgresDSN() string {
	return "host=" + e.DB_HOST +
		" user=" + e.DB_USER_NAME +
		" password=" + e.DB_PASSWORD +
		" dbname=" + e.DB_NAME +
		" port=" + e.DB_PORT +
		" sslmode=" + e.DB_SSL_MODE +
		" TimeZone=UTC"
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return v
}
