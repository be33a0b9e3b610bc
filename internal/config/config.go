package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // IANA names must resolve on hosts without zoneinfo

	"github.com/spf13/viper"

	"bitor-console/internal/types"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Settings   SettingsConfig   `mapstructure:"settings"`
	PocketBase PocketBaseConfig `mapstructure:"pocketbase"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Refresh    RefreshConfig    `mapstructure:"refresh"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SettingsConfig holds the defaults used until the user saves settings
type SettingsConfig struct {
	Theme           string `mapstructure:"theme"`
	Notifications   bool   `mapstructure:"notifications"`
	AutoRefresh     bool   `mapstructure:"auto_refresh"`
	RefreshInterval int    `mapstructure:"refresh_interval"`
	Language        string `mapstructure:"language"`
	Timezone        string `mapstructure:"timezone"`
}

type PocketBaseConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	UserID  string        `mapstructure:"user_id"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

type RefreshConfig struct {
	DefaultInterval time.Duration `mapstructure:"default_interval"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	JSONFormat bool   `mapstructure:"json_format"`
}

// Load reads configuration from defaults, an optional config file and the
// environment. An empty path searches the usual locations.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("database.path", "./data/settings.db")
	v.SetDefault("settings.theme", "auto")
	v.SetDefault("settings.notifications", false)
	v.SetDefault("settings.auto_refresh", false)
	v.SetDefault("settings.refresh_interval", 0)
	v.SetDefault("settings.language", "")
	v.SetDefault("settings.timezone", "")
	v.SetDefault("pocketbase.base_url", "http://localhost:8090")
	v.SetDefault("pocketbase.token", "")
	v.SetDefault("pocketbase.user_id", "")
	v.SetDefault("pocketbase.timeout", "30s")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("refresh.default_interval", "30s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json_format", false)

	// Config file locations
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/bitor-console")
	}

	// Environment variables
	v.SetEnvPrefix("BITOR_CONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional unless given explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found is OK, use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Settings.Theme != "" && !types.Theme(c.Settings.Theme).Valid() {
		return fmt.Errorf("settings.theme must be one of light, dark, auto")
	}
	if c.Settings.RefreshInterval < 0 {
		return fmt.Errorf("settings.refresh_interval must not be negative")
	}
	if c.Settings.Timezone != "" {
		if _, err := time.LoadLocation(c.Settings.Timezone); err != nil {
			return fmt.Errorf("settings.timezone: %w", err)
		}
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	if c.Refresh.DefaultInterval < time.Second {
		return fmt.Errorf("refresh.default_interval must be at least 1s")
	}
	return nil
}

// DefaultSettings converts the configured defaults into settings. Empty
// strings and a zero interval stay absent.
func (c SettingsConfig) DefaultSettings() *types.AppSettings {
	s := &types.AppSettings{
		Theme:         types.Theme(c.Theme),
		Notifications: types.Bool(c.Notifications),
		AutoRefresh:   types.Bool(c.AutoRefresh),
		Language:      c.Language,
		Timezone:      c.Timezone,
	}
	if c.RefreshInterval > 0 {
		s.RefreshInterval = types.Int(c.RefreshInterval)
	}
	return s
}
