package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Render RenderConfig `mapstructure:"render" yaml:"render"`
	Theme  string       `mapstructure:"theme" yaml:"theme"` // "auto", "dark", "light", or "notty"
	Stats  bool         `mapstructure:"stats" yaml:"stats"` // Show the FPS and heap footer in TUI mode
}

// RenderConfig tunes the presentation scheduler and layout.
type RenderConfig struct {
	ChunkSize int `mapstructure:"chunk_size" yaml:"chunk_size"` // Max blocks materialized per refresh
	FPS       int `mapstructure:"fps" yaml:"fps"`               // Display refresh rate
	BackoffMS int `mapstructure:"backoff_ms" yaml:"backoff_ms"` // Delay after an over-budget refresh (0 = 4x refresh)
	Width     int `mapstructure:"width" yaml:"width"`           // Render width (0 = detect from terminal)
}

func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath(".")

	viper.SetDefault("render.chunk_size", 8)
	viper.SetDefault("render.fps", 60)
	viper.SetDefault("render.backoff_ms", 0)
	viper.SetDefault("render.width", 0)
	viper.SetDefault("theme", "auto")
	viper.SetDefault("stats", false)

	viper.SetEnvPrefix("STREAMDOWN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (optional - won't error if missing)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the scheduler cannot run with.
func (c *Config) Validate() error {
	if c.Render.ChunkSize < 1 {
		return fmt.Errorf("render.chunk_size must be at least 1, got %d", c.Render.ChunkSize)
	}
	if c.Render.FPS < 1 || c.Render.FPS > 240 {
		return fmt.Errorf("render.fps must be between 1 and 240, got %d", c.Render.FPS)
	}
	if c.Render.BackoffMS < 0 {
		return fmt.Errorf("render.backoff_ms must not be negative, got %d", c.Render.BackoffMS)
	}
	switch c.Theme {
	case "auto", "dark", "light", "notty":
	default:
		return fmt.Errorf("unknown theme %q (want auto, dark, light, or notty)", c.Theme)
	}
	return nil
}

// GetConfigDir returns the directory where the config file lives
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "streamdown"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "streamdown"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}
