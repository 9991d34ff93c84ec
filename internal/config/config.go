package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for regdesk.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	User      UserConfig      `mapstructure:"user"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Download  DownloadConfig  `mapstructure:"download"`
	Community CommunityConfig `mapstructure:"community"`
	Log       LogConfig       `mapstructure:"log"`
}

// APIConfig locates the compliance-assistant backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// UserConfig carries the signed-in identity attached to chat and workflow
// calls. Empty means unauthenticated; those actions are rejected locally.
type UserConfig struct {
	ID string `mapstructure:"id"`
}

// FeedConfig controls feed polling.
type FeedConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	HistoryLimit int           `mapstructure:"history_limit"`
}

// DownloadConfig says where generated documents are saved.
type DownloadConfig struct {
	Dir string `mapstructure:"dir"`
}

// CommunityConfig carries externally injected product links.
type CommunityConfig struct {
	InviteURL string `mapstructure:"invite_url"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("REGDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:5000")
	v.SetDefault("api.timeout", "30s")

	v.SetDefault("user.id", "")

	v.SetDefault("feed.poll_interval", "5m")
	v.SetDefault("feed.history_limit", 50)

	v.SetDefault("download.dir", ".")

	v.SetDefault("community.invite_url", "")

	v.SetDefault("log.level", "info")
}
