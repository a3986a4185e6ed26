package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.FacePort != 9000 || cfg.TickRate != 200 {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soma.yaml")
	doc := "face_port: 9100\nquality: premium\nstale_timeout: 250ms\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.FacePort != 9100 {
		t.Errorf("Expected face port 9100, got %d", cfg.FacePort)
	}
	if cfg.Quality != "premium" {
		t.Errorf("Expected premium quality, got %s", cfg.Quality)
	}
	if cfg.StaleTimeout != 250*time.Millisecond {
		t.Errorf("Expected 250ms stale timeout, got %v", cfg.StaleTimeout)
	}
	// Untouched fields keep their defaults.
	if cfg.BodyPort != 9005 {
		t.Errorf("Expected default body port, got %d", cfg.BodyPort)
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load("/nonexistent/soma.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soma.yaml")
	if err := os.WriteFile(path, []byte("web_port: 8000\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SOMA_WEB_PORT", "8777")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WebPort != 8777 {
		t.Errorf("Expected env override 8777, got %d", cfg.WebPort)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick rate", func(c *Config) { c.TickRate = 0 }},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"inverted pitch band", func(c *Config) { c.PitchCeilHz = c.PitchFloorHz - 1 }},
		{"negative stale timeout", func(c *Config) { c.StaleTimeout = -time.Second }},
		{"unknown quality", func(c *Config) { c.Quality = "ultra" }},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
