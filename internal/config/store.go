package config

import "fmt"

// StoreConfig configures run history persistence.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"` // sqlite, postgres
	// DSN is a file path for sqlite or a connection string for postgres.
	DSN string `yaml:"dsn"`
}

// ValidDrivers lists all supported store drivers.
var ValidDrivers = []string{"sqlite", "postgres"}

// DefaultStoreConfig returns a local sqlite history.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Enabled: true,
		Driver:  "sqlite",
		DSN:     ".cleanarch/history.db",
	}
}

// Validate checks the driver and DSN.
func (s StoreConfig) Validate() error {
	if !s.Enabled {
		return nil
	}
	if !contains(ValidDrivers, s.Driver) {
		return fmt.Errorf("invalid store driver: %s (valid: %v)", s.Driver, ValidDrivers)
	}
	if s.DSN == "" {
		return fmt.Errorf("store.dsn is required when the store is enabled")
	}
	return nil
}

// PublishConfig configures uploading reports to S3-compatible storage.
type PublishConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	UseSSL   bool   `yaml:"use_ssl"`
	// Credentials come from CLEANARCH_S3_ACCESS_KEY / CLEANARCH_S3_SECRET_KEY.
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// Validate checks the upload target.
func (p PublishConfig) Validate() error {
	if p.Endpoint == "" {
		return fmt.Errorf("publish.endpoint is required")
	}
	if p.Bucket == "" {
		return fmt.Errorf("publish.bucket is required")
	}
	return nil
}

// ServerConfig configures the HTTP report server.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string   `yaml:"debounce"`
	Ignore   []string `yaml:"ignore"`
}
