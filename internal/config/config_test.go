package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[feed]
source_type = "http"
url = "http://192.168.1.10/tar1090/data/aircraft.json"

[alerts]
caution_radius_mi = 5.0
ceiling_ft = 1500
enabled_categories = ["danger", "warning"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Feed.SourceType != "http" {
		t.Errorf("Expected source type http, got %s", cfg.Feed.SourceType)
	}
	if cfg.Alerts.CautionRadiusMi != 5.0 {
		t.Errorf("Expected caution radius 5.0, got %f", cfg.Alerts.CautionRadiusMi)
	}
	if cfg.Alerts.CeilingFt != 1500 {
		t.Errorf("Expected ceiling 1500, got %d", cfg.Alerts.CeilingFt)
	}
	// Untouched keys keep their stock values
	if cfg.Alerts.DangerRadiusMi != 0.4 {
		t.Errorf("Expected danger radius 0.4, got %f", cfg.Alerts.DangerRadiusMi)
	}
	if cfg.GPS.Address != "127.0.0.1:2947" {
		t.Errorf("Expected gps address 127.0.0.1:2947, got %s", cfg.GPS.Address)
	}
	if got := cfg.Alerts.WarnCooldown(); got != 25*time.Second {
		t.Errorf("Expected warn cooldown 25s, got %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestLoadWithFallbackReportsDecodeErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[server\nport = "), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	_, err := LoadWithFallback(path)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected a decode error, got %v", err)
	}
}

func TestLoadWithFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 9090\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"rings out of order", func(c *Config) { c.Alerts.WarningRadiusMi = 0.3 }},
		{"unknown feed source", func(c *Config) { c.Feed.SourceType = "kafka" }},
		{"http without url", func(c *Config) { c.Feed.SourceType = "http"; c.Feed.URL = "" }},
		{"caution radius too large", func(c *Config) { c.Alerts.CautionRadiusMi = 12 }},
		{"unknown category", func(c *Config) { c.Alerts.EnabledCategories = []string{"panic"} }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"bad backoff", func(c *Config) { c.GPS.MaxBackoffSecs = 0 }},
		{"simulated speed", func(c *Config) {
			c.Feed.SourceType = "sim"
			c.Feed.Simulated = []SimulatedAircraftConfig{{DistanceMi: 2, SpeedKt: 900}}
		}},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config should validate, got %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidValue) {
				t.Errorf("Expected ErrInvalidValue, got %v", err)
			}
		})
	}
}

func TestLoadSimulatedFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[feed]
source_type = "sim"

[[feed.simulated]]
callsign = "N51SIM"
bearing_deg = 45
distance_mi = 2.5
altitude_ft = 800
track_deg = 225
speed_kt = 90

[[feed.simulated]]
distance_mi = 1.5
altitude_ft = 700
speed_kt = 70
turn_rate_dps = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(cfg.Feed.Simulated) != 2 {
		t.Fatalf("Expected 2 simulated aircraft, got %d", len(cfg.Feed.Simulated))
	}
	if got := cfg.Feed.Simulated[1].TurnRateDps; got != 3 {
		t.Errorf("Expected turn rate 3, got %f", got)
	}
}
