// Package config loads and validates the dataq runtime configuration.
//
// Configuration is a YAML file validated against an embedded CUE schema;
// defaults live in the schema, so decoding the unified value fills in
// every field the file leaves out.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Config is the validated runtime configuration.
type Config struct {
	Connection    string `json:"connection"`
	Schema        string `json:"schema"`
	DynamicSchema bool   `json:"dynamicSchema"`
	MaxTop        int    `json:"maxTop"`
	Retry         Retry  `json:"retry"`
	LogLevel      string `json:"logLevel"`
}

// Retry tunes the transient-error retry policy.
type Retry struct {
	MaxAttempts int    `json:"maxAttempts"`
	Interval    string `json:"interval"`
}

// ValidationError reports a configuration file that failed schema
// validation. Details holds the CUE error listing, one finding per line.
type ValidationError struct {
	Path    string
	Details string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration %s:\n%s", e.Path, e.Details)
}

// IsValidationError reports whether err is a configuration validation
// failure, as opposed to an I/O or YAML syntax problem.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Load reads, validates, and decodes the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	return Parse(path, data)
}

// Parse validates and decodes configuration bytes. The path is used only
// in error messages.
func Parse(path string, data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing configuration %s: %w", path, err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling configuration schema: %w", err)
	}
	schema = schema.LookupPath(cue.ParsePath("#Config"))

	unified := schema.Unify(ctx.Encode(raw))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &ValidationError{Path: path, Details: cueerrors.Details(err, nil)}
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration %s: %w", path, err)
	}
	if _, err := time.ParseDuration(cfg.Retry.Interval); err != nil {
		return nil, &ValidationError{
			Path:    path,
			Details: fmt.Sprintf("retry.interval: %v", err),
		}
	}
	return &cfg, nil
}

// RetryInterval returns the parsed retry delay. Load rejects unparseable
// intervals, so this never fails on a loaded configuration.
func (c *Config) RetryInterval() time.Duration {
	d, err := time.ParseDuration(c.Retry.Interval)
	if err != nil {
		return time.Second
	}
	return d
}

// Level maps the configured log level name onto slog's scale.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
