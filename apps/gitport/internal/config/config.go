// Package config loads gitport settings from defaults, an optional YAML
// file, GITPORT_ environment variables and command-line flags, in that
// order of increasing precedence.
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

// DefaultFile is read from the working directory when no --config is given.
const DefaultFile = "gitport.yaml"

// EnvPrefix marks environment variables that map onto config keys.
const EnvPrefix = "GITPORT_"

// Defaults.
const (
	DefaultAPIURL         = "https://api.github.com/"
	DefaultWorkers        = 4
	DefaultMaxDepth       = 64
	DefaultRequestTimeout = 5 * time.Minute
	DefaultLogLevel       = "warn"
	DefaultLogFormat      = "text"
)

// Config holds every setting a mirror run needs.
type Config struct {
	APIURL         string        `koanf:"api_url"`
	Workers        int           `koanf:"workers"`
	MaxDepth       int           `koanf:"max_depth"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	FailFast       bool          `koanf:"fail_fast"`
	CredentialFile string        `koanf:"credential_file"`

	LogLevel    string `koanf:"log_level"`
	LogFormat   string `koanf:"log_format"`
	OTelEnabled bool   `koanf:"otel_enabled"`

	AppID             int64  `koanf:"app_id"`
	AppInstallationID int64  `koanf:"app_installation_id"`
	AppPrivateKeyPath string `koanf:"app_private_key_path"`

	// Dir and URL skip the matching prompt when set.
	Dir string `koanf:"dir"`
	URL string `koanf:"url"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// UseApp reports whether GitHub App credentials are configured.
func (c *Config) UseApp() bool {
	return c.AppID != 0 && c.AppInstallationID != 0 && c.AppPrivateKeyPath != ""
}

// Load builds a Config. cfgFile may be empty; flags may be nil. Only flags
// the operator actually set override lower layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"api_url":         DefaultAPIURL,
		"workers":         DefaultWorkers,
		"max_depth":       DefaultMaxDepth,
		"request_timeout": DefaultRequestTimeout,
		"fail_fast":       false,
		"log_level":       DefaultLogLevel,
		"log_format":      DefaultLogFormat,
		"otel_enabled":    false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	used, err := findFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", used, err)
		}
	}

	// GITPORT_MAX_DEPTH -> max_depth
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no run can use.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if c.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("max_depth must be >= 0, got %d", c.MaxDepth))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be >= 0, got %s", c.RequestTimeout))
	}
	if c.APIURL == "" {
		errs = append(errs, errors.New("api_url must not be empty"))
	}
	partialApp := c.AppID != 0 || c.AppInstallationID != 0 || c.AppPrivateKeyPath != ""
	if partialApp && !c.UseApp() {
		errs = append(errs, errors.New("app_id, app_installation_id and app_private_key_path must be set together"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func findFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return explicit, nil
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile, nil
	}
	return "", nil
}
