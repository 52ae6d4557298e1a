package config

import "runtime"

// LoadConfig controls package loading and dependency extraction.
type LoadConfig struct {
	// Tests includes _test.go files in the model.
	Tests bool `yaml:"tests"`
	// Workers caps concurrent dependency extraction (0 = NumCPU).
	Workers int `yaml:"workers"`
	// AllowErrors keeps going when packages have type errors.
	AllowErrors bool `yaml:"allow_errors"`
	// BuildTags are passed to the build system as -tags.
	BuildTags []string `yaml:"build_tags"`
	// Timeout bounds the whole load.
	Timeout string `yaml:"timeout"`
}

// DefaultLoadConfig returns defaults for package loading.
func DefaultLoadConfig() LoadConfig {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	if workers < 2 {
		workers = 2
	}
	return LoadConfig{
		Workers: workers,
		Timeout: "5m",
	}
}
