package config

import (
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Render: RenderConfig{ChunkSize: 8, FPS: 60},
		Theme:  "auto",
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Render.ChunkSize = 0 }},
		{"zero fps", func(c *Config) { c.Render.FPS = 0 }},
		{"absurd fps", func(c *Config) { c.Render.FPS = 1000 }},
		{"negative backoff", func(c *Config) { c.Render.BackoffMS = -1 }},
		{"unknown theme", func(c *Config) { c.Theme = "solarized" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGetConfigDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	dir, err := GetConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg-test", "streamdown") {
		t.Errorf("dir = %q", dir)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	path, err := GetConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("path = %q", path)
	}
}
