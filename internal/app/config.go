package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProfilePath   string // bot profile, one .hcl file
	ScenariosPath string // manifest.json + scenario files

	BridgeURL    string // live client endpoint; empty runs the simulated world
	TickInterval time.Duration

	LogFormat string
	LogLevel  string

	// CheckOnly validates the profile and every scenario file, then exits.
	CheckOnly bool
}

// NewConfig validates a Config and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProfilePath == "" {
		return nil, errors.New("ProfilePath is a required configuration field and cannot be empty")
	}
	if cfg.ScenariosPath == "" {
		cfg.ScenariosPath = "scenarios"
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	return &cfg, nil
}
