// Package config loads wraphound settings from file, environment, and
// defaults.
package config

import (
	"errors"
	"fmt"
)

// Config is the top-level configuration struct for wraphound.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Detect  DetectConfig  `mapstructure:"detect"`
	Match   MatchConfig   `mapstructure:"match"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// DetectConfig holds wrapper-detection knobs.
type DetectConfig struct {
	Workers            int      `mapstructure:"workers"`
	Mode               string   `mapstructure:"mode"`
	StatementTolerance int      `mapstructure:"statement_tolerance"`
	PathMaps           []string `mapstructure:"path_maps"`
}

// MatchConfig holds catalog-matching knobs.
type MatchConfig struct {
	Catalog       string   `mapstructure:"catalog"`
	Threshold     float64  `mapstructure:"threshold"`
	ShowUnmatched bool     `mapstructure:"show_unmatched"`
	TopK          int      `mapstructure:"top_k"`
	StripPrefixes []string `mapstructure:"strip_prefixes"`
	StripSuffixes []string `mapstructure:"strip_suffixes"`
}

// MetricsConfig holds the Prometheus scrape endpoint settings.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Default configuration values.
const (
	DefaultDetectWorkers      = 0 // 0 = one per CPU
	DefaultDetectMode         = "strict"
	DefaultStatementTolerance = 1
	DefaultMatchThreshold     = 0.6
	DefaultMatchTopK          = 3
)

// Detection modes.
const (
	ModeStrict  = "strict"
	ModeRelaxed = "relaxed"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("workers must be non-negative")
	// ErrInvalidMode indicates an unknown detection mode.
	ErrInvalidMode = errors.New("mode must be strict or relaxed")
	// ErrInvalidTolerance indicates a negative statement tolerance.
	ErrInvalidTolerance = errors.New("statement tolerance must be non-negative")
	// ErrInvalidThreshold indicates a match threshold outside [0,1].
	ErrInvalidThreshold = errors.New("threshold must be in [0,1]")
	// ErrInvalidTopK indicates a negative alternatives count.
	ErrInvalidTopK = errors.New("top_k must be non-negative")
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Detect.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Detect.Workers)
	}

	if c.Detect.Mode != ModeStrict && c.Detect.Mode != ModeRelaxed {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Detect.Mode)
	}

	if c.Detect.StatementTolerance < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTolerance, c.Detect.StatementTolerance)
	}

	if c.Match.Threshold < 0 || c.Match.Threshold > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, c.Match.Threshold)
	}

	if c.Match.TopK < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTopK, c.Match.TopK)
	}

	return nil
}
