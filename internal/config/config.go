// Package config provides configuration loading for go-soma commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tunable parameters for the bridge daemon.
type Config struct {
	// Network
	FacePort  int `yaml:"face_port" json:"facePort"`   // FACE packets
	BodyPort  int `yaml:"body_port" json:"bodyPort"`   // BODY + SKEL packets (shared socket)
	AudioPort int `yaml:"audio_port" json:"audioPort"` // RTP audio, 0 disables

	// Control tick
	TickRate int `yaml:"tick_rate" json:"tickRate"` // control frames per second

	// Staleness and smoothing
	StaleTimeout time.Duration `yaml:"stale_timeout" json:"staleTimeout"` // decay to neutral past this
	SmoothTime   time.Duration `yaml:"smooth_time" json:"smoothTime"`     // slew time constant

	// Audio analysis
	SampleRate   int     `yaml:"sample_rate" json:"sampleRate"`
	Quality      string  `yaml:"quality" json:"quality"` // light, balanced, premium
	PitchFloorHz float64 `yaml:"pitch_floor_hz" json:"pitchFloorHz"`
	PitchCeilHz  float64 `yaml:"pitch_ceil_hz" json:"pitchCeilHz"`

	// Onset detection
	OnsetSensitivity float64       `yaml:"onset_sensitivity" json:"onsetSensitivity"` // 0..1
	OnsetCooldown    time.Duration `yaml:"onset_cooldown" json:"onsetCooldown"`

	// Diagnostics
	WebPort  int    `yaml:"web_port" json:"webPort"` // 0 disables the dashboard
	LogLevel string `yaml:"log_level" json:"logLevel"`
}

// DefaultConfig returns the recommended configuration for a local sensor rig.
func DefaultConfig() Config {
	return Config{
		FacePort:  9000,
		BodyPort:  9005,
		AudioPort: 0,

		TickRate: 200, // 5ms control period

		StaleTimeout: 500 * time.Millisecond,
		SmoothTime:   75 * time.Millisecond,

		SampleRate:   44100,
		Quality:      "balanced",
		PitchFloorHz: 30,
		PitchCeilHz:  5000,

		OnsetSensitivity: 0.5,
		OnsetCooldown:    50 * time.Millisecond,

		WebPort:  8090,
		LogLevel: "info",
	}
}

// Load reads a YAML config file over the defaults.
// A missing path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return applyEnv(cfg), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return applyEnv(cfg), nil
}

// applyEnv overlays SOMA_* environment variables, which win over file values.
func applyEnv(cfg Config) Config {
	if v := os.Getenv("SOMA_FACE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.FacePort = p
		}
	}
	if v := os.Getenv("SOMA_BODY_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.BodyPort = p
		}
	}
	if v := os.Getenv("SOMA_WEB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.WebPort = p
		}
	}
	if v := os.Getenv("SOMA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive, got %d", c.TickRate)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.PitchFloorHz <= 0 || c.PitchCeilHz <= c.PitchFloorHz {
		return fmt.Errorf("pitch band %.0f..%.0f Hz is not usable", c.PitchFloorHz, c.PitchCeilHz)
	}
	if c.StaleTimeout < 0 {
		return fmt.Errorf("stale_timeout must not be negative")
	}
	switch c.Quality {
	case "light", "balanced", "premium":
	default:
		return fmt.Errorf("unknown quality %q (want light, balanced or premium)", c.Quality)
	}
	return nil
}
