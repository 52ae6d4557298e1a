package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cleanarch/internal/pattern"
)

// DefaultFile is the config file looked up in the workspace root.
const DefaultFile = ".cleanarch.yaml"

// Config holds all cleanarch configuration.
type Config struct {
	// Core settings
	Name string `yaml:"name"`

	// Package roles
	Paths PathsConfig `yaml:"paths"`

	// Extra packages entities may depend on besides std and themselves.
	AcceptedEntityDependencies []string `yaml:"accepted_entity_dependencies"`

	// Package loading
	Load LoadConfig `yaml:"load"`

	// Rule selection and failure policy
	Rules RulesConfig `yaml:"rules"`

	// Mangle kernel
	Mangle MangleConfig `yaml:"mangle"`

	// Output
	Report ReportConfig `yaml:"report"`

	// Run history
	Store StoreConfig `yaml:"store"`

	// Report upload
	Publish PublishConfig `yaml:"publish"`

	// HTTP report server
	Server ServerConfig `yaml:"server"`

	// Watch mode
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// MangleConfig configures the Mangle kernel.
type MangleConfig struct {
	FactLimit int `yaml:"fact_limit"`
}

// ReportConfig configures report rendering.
type ReportConfig struct {
	Format string `yaml:"format"` // text, json, markdown
	Output string `yaml:"output"` // empty = stdout
	Color  bool   `yaml:"color"`
}

// ValidFormats lists all supported report formats.
var ValidFormats = []string{"text", "json", "markdown"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "cleanarch",
		Paths:   PathsConfig{MainProject: "./..."},
		Load:    DefaultLoadConfig(),
		Rules:   RulesConfig{Severity: map[string]string{}},
		Mangle:  MangleConfig{FactLimit: 500000},
		Report:  ReportConfig{Format: "text", Color: true},
		Store:   DefaultStoreConfig(),
		Publish: PublishConfig{Prefix: "cleanarch", UseSSL: true},
		Server: ServerConfig{
			Addr:         ":8088",
			ReadTimeout:  "15s",
			WriteTimeout: "2m",
		},
		Watch: WatchConfig{Debounce: "500ms"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML or HCL file, chosen by extension.
// A missing file yields the defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		if err := decodeHCL(path, data, cfg); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CLEANARCH_MAIN_PROJECT"); v != "" {
		c.Paths.MainProject = v
	}
	if v := os.Getenv("CLEANARCH_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("CLEANARCH_DB"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("CLEANARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CLEANARCH_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CLEANARCH_S3_ENDPOINT"); v != "" {
		c.Publish.Endpoint = v
	}
	if v := os.Getenv("CLEANARCH_S3_ACCESS_KEY"); v != "" {
		c.Publish.AccessKey = v
	}
	if v := os.Getenv("CLEANARCH_S3_SECRET_KEY"); v != "" {
		c.Publish.SecretKey = v
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.Report.Color = false
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Paths.Validate(); err != nil {
		return err
	}
	if _, err := pattern.CompileSet(c.AcceptedEntityDependencies...); err != nil {
		return fmt.Errorf("accepted_entity_dependencies: %w", err)
	}
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	if c.Load.Workers < 0 {
		return fmt.Errorf("load.workers must be >= 0, got %d", c.Load.Workers)
	}
	if !contains(ValidFormats, c.Report.Format) {
		return fmt.Errorf("invalid report format: %s (valid: %v)", c.Report.Format, ValidFormats)
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if c.Publish.Enabled {
		if err := c.Publish.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GetLoadTimeout returns the package load timeout as a duration.
func (c *Config) GetLoadTimeout() time.Duration {
	return parseDuration(c.Load.Timeout, 5*time.Minute)
}

// GetDebounce returns the watch debounce window as a duration.
func (c *Config) GetDebounce() time.Duration {
	return parseDuration(c.Watch.Debounce, 500*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
