package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ccollicutt/loglens/pkg/analyzer"
	"github.com/ccollicutt/loglens/pkg/parser"
)

// Default values for configuration.
const (
	DefaultWorkers        = 1
	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvGranularity = "LOGLENS_GRANULARITY"
	EnvWorkers     = "LOGLENS_WORKERS"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogSources:  []string{},
		Extensions:  append([]string(nil), parser.DefaultExtensions...),
		Granularity: string(analyzer.DefaultGranularity),
		Workers:     DefaultWorkers,
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() error {
	if g := os.Getenv(EnvGranularity); g != "" {
		c.Granularity = g
	}

	if w := os.Getenv(EnvWorkers); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", EnvWorkers, w)
		}
		c.Workers = n
	}

	return nil
}
