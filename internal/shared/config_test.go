package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./godctl.db" {
			t.Errorf("expected database path ./godctl.db, got %s", config.Database.Path)
		}

		if config.Device.Port != 1234 {
			t.Errorf("expected device port 1234, got %d", config.Device.Port)
		}

		if config.EnrollTimeout() != 10*time.Second {
			t.Errorf("expected enroll timeout 10s, got %v", config.EnrollTimeout())
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})

	t.Run("URLs", func(t *testing.T) {
		config := DefaultConfig()
		config.Device.Host = "godible.local"
		config.Device.Port = 8080

		if got := config.WebSocketURL(); got != "ws://godible.local:8080/ws" {
			t.Errorf("expected ws://godible.local:8080/ws, got %s", got)
		}
		if got := config.BaseURL(); got != "http://godible.local:8080" {
			t.Errorf("expected http://godible.local:8080, got %s", got)
		}
		if got := config.StatePath(); got != "/state" {
			t.Errorf("expected /state, got %s", got)
		}

		config.Device.WSPath = ""
		if got := config.WebSocketURL(); got != "ws://godible.local:8080/ws" {
			t.Errorf("empty ws_path should fall back to /ws, got %s", got)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[device]
host = "10.0.0.7"
port = 9000

[enroll]
timeout_seconds = 15

[log]
level = "debug"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.DeviceAddr() != "10.0.0.7:9000" {
			t.Errorf("expected device addr 10.0.0.7:9000, got %s", config.DeviceAddr())
		}

		if config.EnrollTimeout() != 15*time.Second {
			t.Errorf("expected enroll timeout 15s, got %v", config.EnrollTimeout())
		}

		if config.Database.Path != "./godctl.db" {
			t.Errorf("missing keys should keep defaults, got database path %s", config.Database.Path)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(c *Config)
		}{
			{name: "empty host", mutate: func(c *Config) { c.Device.Host = "" }},
			{name: "zero port", mutate: func(c *Config) { c.Device.Port = 0 }},
			{name: "port too large", mutate: func(c *Config) { c.Device.Port = 70000 }},
			{name: "zero enroll timeout", mutate: func(c *Config) { c.Enroll.TimeoutSeconds = 0 }},
			{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				err := config.Validate()
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}
