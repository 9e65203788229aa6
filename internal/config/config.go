// Package config reads the formschema command configuration from FORMSCHEMA_*
// environment variables. Command flags override the loaded values.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/goliatone/go-formschema/internal/logging"
)

// EnvPrefix prefixes every variable read by Load.
const EnvPrefix = "FORMSCHEMA_"

// Config represents the command configuration.
type Config struct {
	Logging LoggingConfig
	Loader  LoaderConfig
	Form    FormConfig
	Prompt  PromptConfig
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	// Log level: "debug", "info", "warn", "error"
	Level string `env:"LOG_LEVEL" envDefault:"warn"`

	// Log format: "json", "text"
	Format string `env:"LOG_FORMAT" envDefault:"text"`

	// Log file path (empty for stderr)
	Output string `env:"LOG_OUTPUT" envDefault:""`

	Rotation   bool `env:"LOG_ROTATION" envDefault:"true"`
	MaxSize    int  `env:"LOG_MAX_SIZE" envDefault:"10"`
	MaxBackups int  `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	MaxAge     int  `env:"LOG_MAX_AGE" envDefault:"7"`
}

// LoaderConfig controls how schema documents and their references are read.
type LoaderConfig struct {
	// Allow http(s) sources and remote $ref targets.
	AllowHTTP bool `env:"ALLOW_HTTP" envDefault:"false"`

	// Timeout for a single remote fetch.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

// FormConfig holds form construction defaults.
type FormConfig struct {
	IDPrefix     string `env:"ID_PREFIX" envDefault:"root"`
	LiveValidate bool   `env:"LIVE_VALIDATE" envDefault:"false"`
}

// PromptConfig holds terminal prompt defaults.
type PromptConfig struct {
	MaxAttempts int    `env:"MAX_ATTEMPTS" envDefault:"3"`
	Output      string `env:"OUTPUT" envDefault:"json"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom reads the configuration from environ, keyed by full variable name
// (FORMSCHEMA_LOG_LEVEL). A nil map reads the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Loader.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.Loader.RequestTimeout)
	}
	if c.Prompt.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.Prompt.MaxAttempts)
	}

	validOutputs := map[string]bool{
		"json":   true,
		"form":   true,
		"pretty": true,
	}
	if !validOutputs[strings.ToLower(c.Prompt.Output)] {
		return fmt.Errorf("invalid prompt output: %s", c.Prompt.Output)
	}
	return nil
}

// LoggerConfig converts the logging section for logging.Init.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		Output:     c.Logging.Output,
		Rotation:   c.Logging.Rotation,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}
