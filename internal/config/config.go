// Package config loads patrolaudit settings from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/patrolaudit/internal/engine/compactor"
	"github.com/crimson-sun/patrolaudit/internal/engine/roster"
	"github.com/crimson-sun/patrolaudit/internal/logging"
	"github.com/crimson-sun/patrolaudit/internal/model"
	"github.com/crimson-sun/patrolaudit/internal/output"
)

// Config holds all patrolaudit configuration.
type Config struct {
	Settings    model.Settings    `yaml:"settings"`
	Vocabulary  roster.Vocabulary `yaml:"vocabulary"`
	Source      SourceConfig      `yaml:"source"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
	Concurrency int               `yaml:"concurrency"`
}

// SourceConfig holds settings for remote log sources.
type SourceConfig struct {
	Token      string        `yaml:"token,omitempty"`
	Timeout    time.Duration `yaml:"timeout"`
	HTTPFormat string        `yaml:"http_format,omitempty"` // "" (plain text) or "json"
}

// OutputConfig holds output destination settings.
type OutputConfig struct {
	Format         string            `yaml:"format"`    // "json", "report", "csv"
	Path           string            `yaml:"path"`      // empty writes to stdout
	Verbosity      string            `yaml:"verbosity"` // "minimal", "standard", "full"
	Pretty         bool              `yaml:"pretty"`
	RotateBytes    int64             `yaml:"rotate_bytes"` // 0 disables archive rotation
	RotateKeep     int               `yaml:"rotate_keep"`
	WebhookURL     string            `yaml:"webhook_url,omitempty"`
	WebhookHeaders map[string]string `yaml:"webhook_headers,omitempty"`
	WebhookSecret  string            `yaml:"webhook_secret,omitempty"` // HMAC key; never saved
}

// LoggingConfig holds diagnostic logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Settings:   model.DefaultSettings(),
		Vocabulary: roster.DefaultVocabulary(),
		Source:     SourceConfig{Timeout: 30 * time.Second},
		Output: OutputConfig{
			Format:    string(output.JSON),
			Verbosity:  compactor.Standard.String(),
			RotateKeep: 5,
		},
		Logging:     LoggingConfig{Level: "info"},
		Concurrency: 4,
	}
}

// Load reads configuration from a YAML file, then applies PATROL_*
// environment overrides. A missing file yields the defaults; an empty path
// skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file, creating parent directories.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.YAML()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// YAML encodes the configuration. Credentials are never written.
func (c *Config) YAML() ([]byte, error) {
	redacted := *c
	redacted.Source.Token = ""
	redacted.Output.WebhookSecret = ""
	data, err := yaml.Marshal(&redacted)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Validate checks every section and joins all problems found.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Settings.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := roster.New(c.Vocabulary); err != nil {
		errs = append(errs, err)
	}
	if _, err := output.ParseFormat(c.Output.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := compactor.ParseVerbosity(c.Output.Verbosity); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.CheckLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Source.HTTPFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown http_format %q (want text or json)", c.Source.HTTPFormat))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.Output.RotateBytes < 0 {
		errs = append(errs, fmt.Errorf("rotate_bytes must not be negative"))
	}
	if c.Output.RotateKeep < 1 {
		errs = append(errs, fmt.Errorf("rotate_keep must be at least 1, got %d", c.Output.RotateKeep))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	var errs []error
	envFloat("PATROL_MAX_INTERVAL", &c.Settings.MaxIntervalMinutes, &errs)
	envInt("PATROL_TOTAL_LOCATIONS", &c.Settings.TotalLocations, &errs)
	if v := os.Getenv("PATROL_DATE_ORDER"); v != "" {
		c.Settings.DateOrder = model.DateOrder(v)
	}
	if v, ok := os.LookupEnv("PATROL_DINNER"); ok {
		iv, err := ParseDinnerIntervals(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PATROL_DINNER: %w", err))
		} else {
			c.Settings.DinnerIntervals = iv
		}
	}

	if v := os.Getenv("PATROL_SOURCE_TOKEN"); v != "" {
		c.Source.Token = v
	}
	if v := os.Getenv("PATROL_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("PATROL_HTTP_TIMEOUT: %w", err))
		} else {
			c.Source.Timeout = d
		}
	}
	c.Source.HTTPFormat = getenv("PATROL_HTTP_FORMAT", c.Source.HTTPFormat)

	c.Output.Format = getenv("PATROL_OUTPUT", c.Output.Format)
	c.Output.Path = getenv("PATROL_OUT", c.Output.Path)
	c.Output.Verbosity = getenv("PATROL_VERBOSITY", c.Output.Verbosity)
	c.Output.WebhookURL = getenv("PATROL_WEBHOOK_URL", c.Output.WebhookURL)
	c.Output.WebhookSecret = getenv("PATROL_WEBHOOK_SECRET", c.Output.WebhookSecret)
	envBool("PATROL_OUTPUT_PRETTY", &c.Output.Pretty, &errs)

	c.Logging.Level = getenv("PATROL_LOG_LEVEL", c.Logging.Level)
	envBool("PATROL_LOG_JSON", &c.Logging.JSON, &errs)

	envInt("PATROL_CONCURRENCY", &c.Concurrency, &errs)
	return errors.Join(errs...)
}

// ParseDinnerIntervals parses "HH:MM-HH:MM[,HH:MM-HH:MM...]". Empty yields none.
func ParseDinnerIntervals(s string) ([]model.DinnerInterval, error) {
	out := []model.DinnerInterval{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, part := range strings.Split(s, ",") {
		start, end, ok := strings.Cut(strings.TrimSpace(part), "-")
		if !ok {
			return nil, fmt.Errorf("malformed interval %q (want HH:MM-HH:MM)", part)
		}
		iv := model.DinnerInterval{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}
		if _, err := model.ParseClock(iv.Start); err != nil {
			return nil, err
		}
		if _, err := model.ParseClock(iv.End); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, dst *int, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func envFloat(key string, dst *float64, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = f
}

func envBool(key string, dst *bool, errs *[]error) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}
