// Package config provides configuration loading and validation for loglens.
package config

import (
	"fmt"
	"time"

	"github.com/ccollicutt/loglens/pkg/analyzer"
	"github.com/ccollicutt/loglens/pkg/filter"
	"github.com/ccollicutt/loglens/pkg/parser"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// LogSources lists files, directories and glob patterns to analyze.
	LogSources []string `yaml:"log_sources"`

	// Extensions selects which files are collected from directories.
	Extensions []string `yaml:"extensions,omitempty"`

	// Granularity is the timeline bucket width: minute, hour or day.
	Granularity string `yaml:"granularity,omitempty"`

	// Workers is the number of files analyzed concurrently.
	Workers int `yaml:"workers,omitempty"`

	// Filters select the records reported by --print-matches.
	Filters filter.Criteria `yaml:"filters,omitempty"`

	// Patterns are tried after the built-in line patterns, in order.
	Patterns []PatternConfig `yaml:"patterns,omitempty"`

	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`

	// Populated during validation
	granularity analyzer.Granularity
	filters     *filter.Filters
}

// GranularityValue returns the validated granularity.
func (c *Config) GranularityValue() analyzer.Granularity {
	if c.granularity == "" {
		return analyzer.DefaultGranularity
	}
	return c.granularity
}

// CompiledFilters returns the filters built during validation.
func (c *Config) CompiledFilters() *filter.Filters {
	return c.filters
}

// LinePatterns returns the compiled extra patterns in configured order.
func (c *Config) LinePatterns() []*parser.LinePattern {
	patterns := make([]*parser.LinePattern, 0, len(c.Patterns))
	for i := range c.Patterns {
		if p := c.Patterns[i].compiled; p != nil {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// PatternConfig defines an extra line pattern. Regex must define the named
// groups ts, level and msg.
type PatternConfig struct {
	Name  string `yaml:"name"`
	Regex string `yaml:"regex"`

	// Style is datetime (the default) or syslog.
	Style string `yaml:"style,omitempty"`

	compiled *parser.LinePattern
}

// Compiled returns the pattern compiled during validation.
func (p *PatternConfig) Compiled() *parser.LinePattern {
	return p.compiled
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnErrors fires only when Error-level records were seen (default).
	WebhookTriggerOnErrors WebhookTrigger = "on_errors"
	// WebhookTriggerAlways fires after every analysis.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// ParseWebhookTrigger checks s against the known triggers. An empty string
// means WebhookTriggerOnErrors.
func ParseWebhookTrigger(s string) (WebhookTrigger, error) {
	switch t := WebhookTrigger(s); t {
	case "":
		return WebhookTriggerOnErrors, nil
	case WebhookTriggerOnErrors, WebhookTriggerAlways, WebhookTriggerNever:
		return t, nil
	default:
		return "", fmt.Errorf("invalid trigger %q (must be on_errors, always, or never)", s)
	}
}

// WebhookConfig defines a webhook endpoint for sending analysis results.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	// $VAR and ${VAR} are expanded from the environment.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_errors" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
