package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/loglens/pkg/analyzer"
	"github.com/ccollicutt/loglens/pkg/filter"
	"github.com/ccollicutt/loglens/pkg/parser"
)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration for errors, fills in defaults and
// compiles patterns and filters. A bad filter value fails here with a
// *filter.ConstructionError so no analysis starts with partial filters.
func Validate(cfg *Config) error {
	if cfg.Granularity == "" {
		cfg.Granularity = string(analyzer.DefaultGranularity)
	}
	g, err := analyzer.ParseGranularity(cfg.Granularity)
	if err != nil {
		return fmt.Errorf("granularity: %w", err)
	}
	cfg.granularity = g

	if cfg.Workers < 0 {
		return fmt.Errorf("workers: must be >= 1, got %d", cfg.Workers)
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}

	if len(cfg.Extensions) == 0 {
		cfg.Extensions = append([]string(nil), parser.DefaultExtensions...)
	}
	for i, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("extensions[%d]: %q must start with a dot, e.g. \".log\"", i, ext)
		}
	}

	f, err := filter.New(cfg.Filters)
	if err != nil {
		return fmt.Errorf("filters: %w", err)
	}
	cfg.filters = f

	seen := make(map[string]bool)
	for _, p := range parser.DefaultPatterns() {
		seen[p.Name] = true
	}
	for i := range cfg.Patterns {
		p := &cfg.Patterns[i]
		if err := validatePattern(p); err != nil {
			return fmt.Errorf("patterns[%d] (%s): %w", i, p.Name, err)
		}
		if seen[p.Name] {
			return fmt.Errorf("patterns[%d]: duplicate pattern name %q", i, p.Name)
		}
		seen[p.Name] = true
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validatePattern(p *PatternConfig) error {
	if p.Regex == "" {
		return errors.New("regex is required")
	}

	compiled, err := parser.NewLinePattern(p.Name, p.Regex, parser.TimestampStyle(p.Style))
	if err != nil {
		return err
	}
	p.compiled = compiled
	p.Style = string(compiled.Style)

	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	// Validate URL format
	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	trigger, err := ParseWebhookTrigger(string(wh.Trigger))
	if err != nil {
		return err
	}
	wh.Trigger = trigger

	// Default timeout
	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		varName := s[1:]
		return os.Getenv(varName)
	}

	return s
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// LoadOptional loads path, or returns the validated defaults with
// environment overrides applied when path is empty.
func LoadOptional(ctx context.Context, path string) (*Config, error) {
	if path != "" {
		return Load(ctx, path)
	}

	cfg := DefaultConfig()
	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Overrides are command-line values. Zero fields leave the configured
// value alone; filter criteria are overridden field by field.
type Overrides struct {
	Granularity string
	Workers     int
	Filters     filter.Criteria
}

// ApplyOverrides merges o into a validated config and rebuilds the values
// derived from it.
func (c *Config) ApplyOverrides(o Overrides) error {
	if o.Granularity != "" {
		g, err := analyzer.ParseGranularity(o.Granularity)
		if err != nil {
			return err
		}
		c.Granularity = string(g)
		c.granularity = g
	}

	if o.Workers < 0 {
		return fmt.Errorf("workers: must be >= 1, got %d", o.Workers)
	}
	if o.Workers > 0 {
		c.Workers = o.Workers
	}

	merged := c.Filters
	if o.Filters.Keyword != "" {
		merged.Keyword = o.Filters.Keyword
	}
	if o.Filters.From != "" {
		merged.From = o.Filters.From
	}
	if o.Filters.To != "" {
		merged.To = o.Filters.To
	}
	if o.Filters.Level != "" {
		merged.Level = o.Filters.Level
	}

	f, err := filter.New(merged)
	if err != nil {
		return err
	}
	c.Filters = merged
	c.filters = f

	return nil
}
