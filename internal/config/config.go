// Package config loads the alertd server configuration from defaults, an
// optional TOML file and ALERTD_ environment variables, in that order.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dikshakatiyar/alerting-system/pkg/models"
)

// Config is the root server configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	SQLite    SQLiteConfig    `koanf:"sqlite"`
	Logging   LoggingConfig   `koanf:"logging"`
	Reminders RemindersConfig `koanf:"reminders"`
	Channels  ChannelsConfig  `koanf:"channels"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	ReadTimeout time.Duration `koanf:"read_timeout"`
	IdleTimeout time.Duration `koanf:"idle_timeout"`
	CORSOrigins string        `koanf:"cors_origins"`
}

// SQLiteConfig holds database settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// RemindersConfig drives the reminder scheduler.
type RemindersConfig struct {
	// TickInterval is how often the internal runner triggers a pass.
	// Zero disables the runner; ticks can still be triggered over HTTP.
	TickInterval time.Duration `koanf:"tick_interval"`
	// DefaultInterval is applied to alerts created without an explicit
	// reminder interval.
	DefaultInterval time.Duration `koanf:"default_interval"`
	// DispatchTimeout bounds each channel delivery attempt.
	DispatchTimeout time.Duration `koanf:"dispatch_timeout"`
}

// ChannelsConfig groups the delivery channel settings.
type ChannelsConfig struct {
	InApp   InAppChannelConfig   `koanf:"inapp"`
	Email   EmailChannelConfig   `koanf:"email"`
	Webhook WebhookChannelConfig `koanf:"webhook"`
}

// InAppChannelConfig configures the in-app inbox channel.
type InAppChannelConfig struct {
	Enabled bool `koanf:"enabled"`
}

// EmailChannelConfig configures SMTP delivery.
type EmailChannelConfig struct {
	Enabled         bool   `koanf:"enabled"`
	Host            string `koanf:"host"`
	Port            int    `koanf:"port"`
	Username        string `koanf:"username"`
	Password        string `koanf:"password"`
	From            string `koanf:"from"`
	ReplyTo         string `koanf:"reply_to"`
	Security        string `koanf:"security"` // none, starttls, tls
	SubjectTemplate string `koanf:"subject_template"`
	BodyTemplate    string `koanf:"body_template"`
}

// WebhookChannelConfig configures JSON webhook delivery.
type WebhookChannelConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"`
	Timeout       time.Duration `koanf:"timeout"`
	SkipTLSVerify bool          `koanf:"skip_tls_verify"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8125,
			ReadTimeout: 30 * time.Second,
			IdleTimeout: time.Minute,
			CORSOrigins: "*",
		},
		SQLite: SQLiteConfig{
			Path: "alertd.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Reminders: RemindersConfig{
			TickInterval:    5 * time.Minute,
			DefaultInterval: models.DefaultReminderInterval,
			DispatchTimeout: 10 * time.Second,
		},
		Channels: ChannelsConfig{
			InApp: InAppChannelConfig{Enabled: true},
			Email: EmailChannelConfig{
				Port:            587,
				Security:        "starttls",
				SubjectTemplate: "[{{severity}}] {{alert_title}}",
				BodyTemplate:    "Hello {{user_name}},\n\n{{alert_message}}\n",
			},
			Webhook: WebhookChannelConfig{Timeout: 10 * time.Second},
		},
	}
}

// Load reads configuration from the given TOML file (optional) and
// ALERTD_ environment variables layered over the defaults.
// ALERTD_SERVER__PORT maps to server.port; a double underscore separates
// key segments so key names may contain single underscores.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("ALERTD_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "ALERTD_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SQLite.Path == "" {
		return fmt.Errorf("sqlite.path must not be empty")
	}
	if c.Reminders.DefaultInterval <= 0 {
		return fmt.Errorf("reminders.default_interval must be positive")
	}
	if c.Reminders.DispatchTimeout <= 0 {
		return fmt.Errorf("reminders.dispatch_timeout must be positive")
	}
	switch c.Channels.Email.Security {
	case "", "none", "starttls", "tls":
	default:
		return fmt.Errorf("channels.email.security must be one of none, starttls, tls")
	}
	if c.Channels.Webhook.Enabled && c.Channels.Webhook.URL == "" {
		return fmt.Errorf("channels.webhook.url is required when the webhook channel is enabled")
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
