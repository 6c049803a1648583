package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jan/streamchat/internal/client"
)

// Config holds the application configuration. Credentials are opaque
// strings; each platform adapter decides what it needs at connect time.
type Config struct {
	YouTube YouTubeConfig `yaml:"youtube"`
	Twitch  TwitchConfig  `yaml:"twitch"`
	Kick    KickConfig    `yaml:"kick"`
}

// YouTubeConfig holds YouTube-specific configuration
type YouTubeConfig struct {
	APIKey              string `yaml:"api_key"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
}

// TwitchConfig holds Twitch-specific configuration
type TwitchConfig struct {
	Username string `yaml:"username"`
	OAuth    string `yaml:"oauth"`
}

// KickConfig holds Kick-specific configuration
type KickConfig struct {
	AppKey        string `yaml:"app_key"`
	MaxReconnects int    `yaml:"max_reconnects"`
}

// Load loads configuration from a file. A missing file is not an error:
// configuration can come entirely from environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// env-only configuration
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	if key := os.Getenv("YOUTUBE_API_KEY"); key != "" {
		cfg.YouTube.APIKey = key
	}
	if oauth := os.Getenv("TWITCH_OAUTH"); oauth != "" {
		cfg.Twitch.OAuth = oauth
	}
	if username := os.Getenv("TWITCH_USERNAME"); username != "" {
		cfg.Twitch.Username = username
	}
	if appKey := os.Getenv("KICK_APP_KEY"); appKey != "" {
		cfg.Kick.AppKey = appKey
	}

	// Set defaults
	if cfg.YouTube.PollIntervalSeconds == 0 {
		cfg.YouTube.PollIntervalSeconds = 2
	}

	return &cfg, nil
}

// Client projects the file-level configuration into the facade's shared
// configuration bag.
func (c *Config) Client() client.Config {
	return client.Config{
		YouTubeAPIKey:       c.YouTube.APIKey,
		YouTubePollInterval: time.Duration(c.YouTube.PollIntervalSeconds) * time.Second,
		TwitchOAuthToken:    c.Twitch.OAuth,
		TwitchUsername:      c.Twitch.Username,
		KickAppKey:          c.Kick.AppKey,
		KickMaxReconnects:   c.Kick.MaxReconnects,
	}
}
