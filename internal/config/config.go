package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	APIPort     int    `env:"API_PORT,default=8080"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	MailTransport string `env:"MAIL_TRANSPORT"`
	MailFrom      string `env:"MAIL_FROM,required=true"`
	MailTimeoutMS int    `env:"MAIL_TIMEOUT_MS,default=30000"`
	SMTPHost      string `env:"SMTP_HOST"`
	SMTPPort      int    `env:"SMTP_PORT,default=587"`
	SMTPUser      string `env:"SMTP_USER"`
	SMTPPass      string `env:"SMTP_PASS"`
	SMTPSecure    bool   `env:"SMTP_SECURE,default=false"`
	ResendAPIKey  string `env:"RESEND_API_KEY"`
	ResendBaseURL string `env:"RESEND_BASE_URL,default=https://api.resend.com"`

	BaseURL             string `env:"BASE_URL"`
	DefaultPractitioner string `env:"DEFAULT_PRACTITIONER,default=Kinesiologo/a"`
	ClinicName          string `env:"CLINIC_NAME,default=FisioMove"`
	ClinicTimezone      string `env:"CLINIC_TIMEZONE,default=America/Santiago"`
	LogoPath            string `env:"LOGO_PATH,default=public/logo.png"`
	RateLimitPerSec     int    `env:"RATE_LIMIT_PER_SEC,default=2"`
	HistoryLimit        int    `env:"HISTORY_LIMIT,default=50"`
}

// Load reads optional .env files (default ".env") and then the environment.
// Variables already set in the environment take precedence.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.MailFrom) == "" {
		return fmt.Errorf("MAIL_FROM is required")
	}
	if c.MailTimeoutMS <= 0 {
		return fmt.Errorf("MAIL_TIMEOUT_MS must be positive, got %d", c.MailTimeoutMS)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) MailTimeout() time.Duration {
	return time.Duration(c.MailTimeoutMS) * time.Millisecond
}

// Location resolves the clinic time zone used for calendar dates.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(c.ClinicTimezone))
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err)
	}
	return loc, nil
}
