// Package config loads CLI configuration.
//
// Precedence (highest to lowest): flags > FORMFLOW_ env vars > formflow.yaml >
// defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix namespaces environment overrides.
const EnvPrefix = "FORMFLOW_"

// Defaults.
const (
	DefaultAddr         = ":8080"
	DefaultOutput       = "json"
	DefaultLogEncoding  = "json"
	DefaultMaxBodyBytes = 1 << 20
	DefaultFetchTimeout = 10 * time.Second
)

// Config holds all CLI configuration options.
type Config struct {
	Verbose      bool          `koanf:"verbose"`
	Output       string        `koanf:"output"`
	LogEncoding  string        `koanf:"log_encoding"`
	Addr         string        `koanf:"addr"`
	MaxBodyBytes int64         `koanf:"max_body_bytes"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
	// Headers are sent with every data source and upload request.
	Headers map[string]string `koanf:"headers"`

	// File is the configuration file that was read, if any.
	File string `koanf:"-"`
}

// findConfigFile returns the file to read.
// Priority: explicit path > formflow.yaml > formflow.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"formflow.yaml", "formflow.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load reads configuration from defaults, the config file, environment
// variables and flags. Only flags that were set on the command line override
// lower layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"verbose":        false,
		"output":         DefaultOutput,
		"log_encoding":   DefaultLogEncoding,
		"addr":           DefaultAddr,
		"max_body_bytes": DefaultMaxBodyBytes,
		"fetch_timeout":  DefaultFetchTimeout.String(),
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", used, err)
		}
	}

	// FORMFLOW_MAX_BODY_BYTES -> max_body_bytes
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("config: load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.File = used
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated and bounded values.
func (c *Config) Validate() error {
	var errs []error
	switch c.Output {
	case "json", "form", "pretty":
	default:
		errs = append(errs, fmt.Errorf("output must be json, form or pretty, got %q", c.Output))
	}
	switch c.LogEncoding {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log_encoding must be json or console, got %q", c.LogEncoding))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch_timeout must be positive, got %s", c.FetchTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
