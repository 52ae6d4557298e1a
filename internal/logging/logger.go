// Package logging provides config-driven categorized logging for cleanarch.
// Logs are written to .cleanarch/logs/ with a separate file per category.
// Logging is controlled by debug_mode in the logging config section; when it
// is false every category logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot   Category = "boot"   // Startup and config loading
	CategoryLoad   Category = "load"   // Package loading and dependency extraction
	CategoryRules  Category = "rules"  // Rule evaluation
	CategoryKernel Category = "kernel" // Mangle kernel operations
	CategoryReport Category = "report" // Report rendering and publishing
	CategoryStore  Category = "store"  // Run history persistence
	CategoryWatch  Category = "watch"  // File watching
	CategoryServer Category = "server" // HTTP report server
)

// AllCategories lists every known category in a stable order.
var AllCategories = []Category{
	CategoryBoot, CategoryLoad, CategoryRules, CategoryKernel,
	CategoryReport, CategoryStore, CategoryWatch, CategoryServer,
}

// Options mirrors the relevant parts of config.LoggingConfig
// to avoid an import cycle.
type Options struct {
	DebugMode  bool
	Level      string
	JSONFormat bool
	Categories map[string]bool
}

// Logger is a category-scoped logger. A Logger with a nil sugar is a no-op.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	opts      Options
	optsMu    sync.RWMutex
	level     = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	noop = &Logger{}
)

// Initialize sets up the logging directory for the given workspace.
// Should be called once at startup. Calling it again closes existing
// category files and applies the new options.
func Initialize(workspace string, o Options) error {
	if workspace == "" {
		return fmt.Errorf("workspace path required")
	}

	CloseAll()

	optsMu.Lock()
	opts = o
	logsDir = filepath.Join(workspace, ".cleanarch", "logs")
	level.SetLevel(parseLevel(o.Level))
	optsMu.Unlock()

	if !o.DebugMode {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("logging initialized")
	boot.Info("workspace: %s", workspace)
	boot.Info("logs directory: %s", logsDir)
	boot.Info("log level: %s", level.Level())
	return nil
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	optsMu.RLock()
	defer optsMu.RUnlock()
	return opts.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
// Categories missing from the toggle map are enabled.
func IsCategoryEnabled(category Category) bool {
	optsMu.RLock()
	defer optsMu.RUnlock()
	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, ok := opts.Categories[string(category)]
	return !ok || enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return noop
	}

	loggersMu.RLock()
	l, ok := loggers[category]
	loggersMu.RUnlock()
	if ok {
		return l
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	optsMu.RLock()
	dir, jsonFormat := logsDir, opts.JSONFormat
	optsMu.RUnlock()

	path := filepath.Join(dir, string(category)+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] cannot open %s: %v\n", path, err)
		return noop
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if jsonFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(f), level)

	l = &Logger{
		category: category,
		sugar:    zap.New(core).Named(string(category)).Sugar(),
		file:     f,
	}
	loggers[category] = l
	return l
}

// Category returns the logger's category, empty for the no-op logger.
func (l *Logger) Category() Category {
	return l.category
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Debugf(format, args...)
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Infof(format, args...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Warnf(format, args...)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar != nil {
		l.sugar.Errorf(format, args...)
	}
}

// With returns a logger carrying structured key-value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// CloseAll flushes and closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for cat, l := range loggers {
		if l.sugar != nil {
			_ = l.sugar.Sync()
		}
		if l.file != nil {
			_ = l.file.Close()
		}
		delete(loggers, cat)
	}
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// These are no-ops if the category is disabled
// =============================================================================

// Load logs to the load category
func Load(format string, args ...interface{}) {
	Get(CategoryLoad).Info(format, args...)
}

// LoadDebug logs debug to the load category
func LoadDebug(format string, args ...interface{}) {
	Get(CategoryLoad).Debug(format, args...)
}

// Rules logs to the rules category
func Rules(format string, args ...interface{}) {
	Get(CategoryRules).Info(format, args...)
}

// RulesDebug logs debug to the rules category
func RulesDebug(format string, args ...interface{}) {
	Get(CategoryRules).Debug(format, args...)
}

// Kernel logs to the kernel category
func Kernel(format string, args ...interface{}) {
	Get(CategoryKernel).Info(format, args...)
}

// KernelDebug logs debug to the kernel category
func KernelDebug(format string, args ...interface{}) {
	Get(CategoryKernel).Debug(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// Watch logs to the watch category
func Watch(format string, args ...interface{}) {
	Get(CategoryWatch).Info(format, args...)
}

// WatchDebug logs debug to the watch category
func WatchDebug(format string, args ...interface{}) {
	Get(CategoryWatch).Debug(format, args...)
}

// Report logs to the report category
func Report(format string, args ...interface{}) {
	Get(CategoryReport).Info(format, args...)
}
