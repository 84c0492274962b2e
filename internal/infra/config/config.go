package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Mail transports understood by the worker.
const (
	MailTransportLog  = "log"
	MailTransportSMTP = "smtp"
	MailTransportAMQP = "amqp"
)

// maxHorizonMonths matches app.MaxHorizonMonths.
const maxHorizonMonths = 120

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	Environment string `mapstructure:"ENVIRONMENT"`

	CronSpecNotificationTick string `mapstructure:"CRON_SPEC_NOTIFICATION_TICK"`
	CronSpecMaterialize      string `mapstructure:"CRON_SPEC_MATERIALIZE"`
	TickTimeoutSeconds       int    `mapstructure:"TICK_TIMEOUT_SECONDS"`

	MaterializeHorizonMonths  int `mapstructure:"MATERIALIZE_HORIZON_MONTHS"`
	NotificationWindowMinutes int `mapstructure:"NOTIFICATION_WINDOW_MINUTES"`

	MailTransport  string `mapstructure:"MAIL_TRANSPORT"`
	MailFrom       string `mapstructure:"MAIL_FROM"`
	SMTPHost       string `mapstructure:"SMTP_HOST"`
	SMTPPort       int    `mapstructure:"SMTP_PORT"`
	SMTPUsername   string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword   string `mapstructure:"SMTP_PASSWORD"`
	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	MailExchange   string `mapstructure:"MAIL_EXCHANGE"`
	MailRoutingKey string `mapstructure:"MAIL_ROUTING_KEY"`

	TelegramToken   string `mapstructure:"TELEGRAM_TOKEN"`
	AdminTelegramID int64  `mapstructure:"ADMIN_TELEGRAM_ID"`

	HTTPPort       string `mapstructure:"HTTP_PORT"`
	InternalAPIKey string `mapstructure:"INTERNAL_API_KEY"`
}

var envKeys = []string{
	"DATABASE_URL", "LOG_LEVEL", "ENVIRONMENT",
	"CRON_SPEC_NOTIFICATION_TICK", "CRON_SPEC_MATERIALIZE", "TICK_TIMEOUT_SECONDS",
	"MATERIALIZE_HORIZON_MONTHS", "NOTIFICATION_WINDOW_MINUTES",
	"MAIL_TRANSPORT", "MAIL_FROM", "SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD",
	"RABBITMQ_URL", "MAIL_EXCHANGE", "MAIL_ROUTING_KEY",
	"TELEGRAM_TOKEN", "ADMIN_TELEGRAM_ID",
	"HTTP_PORT", "INTERNAL_API_KEY",
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("CRON_SPEC_NOTIFICATION_TICK", "5 * * * *") // minute 5 of every hour
	viper.SetDefault("CRON_SPEC_MATERIALIZE", "0 3 * * *")       // 03:00 daily
	viper.SetDefault("TICK_TIMEOUT_SECONDS", 300)
	viper.SetDefault("MATERIALIZE_HORIZON_MONTHS", 6)
	viper.SetDefault("NOTIFICATION_WINDOW_MINUTES", 1)
	viper.SetDefault("MAIL_TRANSPORT", MailTransportLog)
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("MAIL_EXCHANGE", "notifications")
	viper.SetDefault("MAIL_ROUTING_KEY", "email.send")
	viper.SetDefault("HTTP_PORT", "8080")
	viper.AutomaticEnv()

	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	cfg := &AppConfig{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Environment = strings.ToLower(cfg.Environment)
	cfg.MailTransport = strings.ToLower(strings.TrimSpace(cfg.MailTransport))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *AppConfig) validate() error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.MaterializeHorizonMonths < 1 || cfg.MaterializeHorizonMonths > maxHorizonMonths {
		return fmt.Errorf("invalid MATERIALIZE_HORIZON_MONTHS: %d", cfg.MaterializeHorizonMonths)
	}
	if cfg.NotificationWindowMinutes < 1 {
		return fmt.Errorf("invalid NOTIFICATION_WINDOW_MINUTES: %d", cfg.NotificationWindowMinutes)
	}

	switch cfg.MailTransport {
	case MailTransportLog:
	case MailTransportSMTP:
		if cfg.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is not set")
		}
		if cfg.MailFrom == "" {
			return fmt.Errorf("MAIL_FROM is not set")
		}
	case MailTransportAMQP:
		if cfg.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is not set")
		}
	default:
		return fmt.Errorf("unsupported MAIL_TRANSPORT %q", cfg.MailTransport)
	}

	if cfg.TelegramToken != "" && cfg.AdminTelegramID == 0 {
		return fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	return nil
}
