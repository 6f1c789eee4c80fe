package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"medvault"`

	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	ResetTokenTTL      time.Duration `env:"RESET_TOKEN_TTL" envDefault:"10m"`
	ShareCodeTTL       time.Duration `env:"SHARE_CODE_TTL" envDefault:"15m"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`

	SMTPHost    string `env:"SMTP_HOST"`
	SMTPPort    int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser    string `env:"SMTP_USER"`
	SMTPPass    string `env:"SMTP_PASSWORD"`
	MailFrom    string `env:"MAIL_FROM" envDefault:"noreply@medvault.local"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	UseS3     bool   `env:"USE_S3" envDefault:"false"`
	S3Bucket  string `env:"S3_BUCKET"`
	S3Region  string `env:"S3_REGION"`
	UploadDir string `env:"UPLOAD_DIR" envDefault:"./uploads"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.ValidateSecrets(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateSecrets runs at startup so a misconfigured deployment dies
// immediately instead of failing on the first token operation.
func (c *Config) ValidateSecrets() error {
	if c.AccessTokenSecret == "" {
		return fmt.Errorf("ACCESS_TOKEN_SECRET environment variable is required")
	}
	if c.RefreshTokenSecret == "" {
		return fmt.Errorf("REFRESH_TOKEN_SECRET environment variable is required")
	}
	if len(c.AccessTokenSecret) < 32 {
		return fmt.Errorf("ACCESS_TOKEN_SECRET must be at least 32 characters long (current: %d)", len(c.AccessTokenSecret))
	}
	if len(c.RefreshTokenSecret) < 32 {
		return fmt.Errorf("REFRESH_TOKEN_SECRET must be at least 32 characters long (current: %d)", len(c.RefreshTokenSecret))
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be distinct")
	}
	return nil
}
