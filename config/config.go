package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/fxnatic/filehash-go/sandbox"
	"github.com/fxnatic/filehash-go/solver"
)

type FetchConfig struct {
	LoginPath      string `yaml:"login_path"`
	ScriptPattern  string `yaml:"script_pattern"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Config struct {
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`
	WrapperIndex int           `yaml:"wrapper_index"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxCallStack int           `yaml:"max_call_stack"`
	Workers      int           `yaml:"workers"`
	Include      string        `yaml:"include"`
	Fetch        FetchConfig   `yaml:"fetch"`
}

func Default() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "text",
		WrapperIndex: sandbox.DefaultWrapperIndex,
		Timeout:      10 * time.Second,
		MaxCallStack: sandbox.DefaultMaxCallStackSize,
		Workers:      4,
		Include:      "*.js",
		Fetch: FetchConfig{
			LoginPath:      solver.DefaultLoginPath,
			ScriptPattern:  solver.DefaultScriptPattern,
			UserAgent:      solver.DefaultUserAgent,
			TimeoutSeconds: 30,
		},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.WrapperIndex < 0 {
		errs = append(errs, errors.New("wrapper_index must not be negative"))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("timeout must not be negative"))
	}
	if c.Workers < 1 {
		errs = append(errs, errors.New("workers must be at least 1"))
	}
	if c.Include == "" {
		errs = append(errs, errors.New("include pattern is empty"))
	}
	return errors.Join(errs...)
}

// ConfigureLogger applies level and format to the standard logger.
func (c *Config) ConfigureLogger() error {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func (c *Config) SolverOptions() []solver.Option {
	return []solver.Option{
		solver.WithWrapperIndex(c.WrapperIndex),
		solver.WithMaxCallStackSize(c.MaxCallStack),
		solver.WithLogger(log.NewEntry(log.StandardLogger())),
	}
}

func (c *Config) FetchOptions() solver.FetchOptions {
	return solver.FetchOptions{
		LoginPath:      c.Fetch.LoginPath,
		ScriptPattern:  c.Fetch.ScriptPattern,
		UserAgent:      c.Fetch.UserAgent,
		TimeoutSeconds: c.Fetch.TimeoutSeconds,
	}
}
