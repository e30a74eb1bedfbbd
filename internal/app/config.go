package app

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/specialistvlad/paramgrid/internal/report"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// Seeds are files or directories with parameter seeds and bounds.
	Seeds []string `env:"PARAMGRID_SEEDS" envSeparator:","`
	// Certificates are files or directories with certificate definitions.
	Certificates []string `env:"PARAMGRID_CERTIFICATES" envSeparator:","`

	// Workers is the worker pool size; 0 means one per CPU.
	Workers   int    `env:"PARAMGRID_WORKERS"    envDefault:"0"`
	LogLevel  string `env:"PARAMGRID_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"PARAMGRID_LOG_FORMAT" envDefault:"text"`
	Output    string `env:"PARAMGRID_OUTPUT"     envDefault:"json"`
}

// ConfigFromEnv reads the PARAMGRID_* environment variables. The result is
// not validated; flags usually override it first.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// NewConfig normalizes and validates cfg. Seed paths are checked by Run, so
// a Config without seeds can still list units.
func NewConfig(cfg Config) (*Config, error) {
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.Output = strings.ToLower(cfg.Output)
	cfg.Seeds = compact(cfg.Seeds)
	cfg.Certificates = compact(cfg.Certificates)

	if cfg.Workers < 0 {
		return nil, fmt.Errorf("invalid workers %d: must not be negative", cfg.Workers)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	if _, err := report.ParseFormat(cfg.Output); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func compact(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
