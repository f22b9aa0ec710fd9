package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
	Google    GoogleConfig    `mapstructure:"google"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AssistantConfig struct {
	Timezone               string `mapstructure:"timezone"`
	IntentPolicy           string `mapstructure:"intent_policy"`
	DefaultReminderMinutes int    `mapstructure:"default_reminder_minutes"`
	PlaceholderName        string `mapstructure:"placeholder_name"`
}

type ReminderConfig struct {
	// Schedule is a robfig/cron spec, e.g. "@every 60s".
	Schedule        string `mapstructure:"schedule"`
	DeleteAfterFire bool   `mapstructure:"delete_after_fire"`
	WebhookURL      string `mapstructure:"webhook_url"`
}

type GoogleConfig struct {
	Enabled        bool           `mapstructure:"enabled"`
	CalendarID     string         `mapstructure:"calendar_id"`
	ServiceAccount map[string]any `mapstructure:"service_account"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "events.db")
	v.SetDefault("server.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("assistant.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("assistant.intent_policy", "keyword")
	v.SetDefault("assistant.default_reminder_minutes", 10)
	v.SetDefault("assistant.placeholder_name", "Sự kiện không tên")
	v.SetDefault("reminder.schedule", "@every 60s")
	v.SetDefault("reminder.delete_after_fire", false)
	v.SetDefault("reminder.webhook_url", "")
	v.SetDefault("google.enabled", false)
	v.SetDefault("google.calendar_id", "")
}

// Load reads .env, then config.toml (from path, or the working directory
// when path is empty), then LICHTRINH_* environment overrides. A missing
// config file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LICHTRINH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path is empty")
	}
	if c.Assistant.DefaultReminderMinutes < 0 {
		return errors.New("assistant.default_reminder_minutes must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Google.Enabled && c.Google.CalendarID == "" {
		return errors.New("google.calendar_id is required when google.enabled is set")
	}
	return nil
}

// Location resolves the assistant timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Assistant.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Assistant.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Assistant.Timezone, err)
	}
	return loc, nil
}
