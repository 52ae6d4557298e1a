package config

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, text
	DebugMode  bool            `yaml:"debug_mode"` // Master toggle for category log files
	Categories map[string]bool `yaml:"categories"` // Per-category toggles, see logging.IsCategoryEnabled
}
