package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/conneroisu/fileclaim/internal/errors"
	"github.com/conneroisu/fileclaim/internal/logging"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// Err returns the errors as a single configuration error, or nil.
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	msgs := make([]string, 0, len(vr.Errors))
	for _, e := range vr.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return errors.NewConfigError("invalid configuration: "+strings.Join(msgs, "; ")).
		WithContext("fields", len(vr.Errors))
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	write := func(title string, issues []ValidationError) {
		if len(issues) == 0 {
			return
		}
		builder.WriteString(title + ":\n")
		for _, issue := range issues {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", issue.Field, issue.Message))
			for _, suggestion := range issue.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}

	write("Validation errors", vr.Errors)
	write("Validation warnings", vr.Warnings)
	return builder.String()
}

func (vr *ValidationResult) fail(field string, value interface{}, msg string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

func (vr *ValidationResult) warn(field string, value interface{}, msg string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: msg, Suggestions: suggestions})
}

// Validate checks every section and collects errors and warnings.
func Validate(config *Config) *ValidationResult {
	result := &ValidationResult{}

	validateSource(&config.Source, result)
	validateFilter(&config.Filter, result)
	validateLocker(&config.Locker, result)
	validateTrigger(&config.Trigger, result)
	validateConsumer(&config.Consumer, result)
	validateStore(&config.Store, &config.Filter, result)
	validateLogging(&config.Logging, result)

	return result
}

func validateSource(config *SourceConfig, result *ValidationResult) {
	if strings.TrimSpace(config.Directory) == "" {
		result.fail("source.directory", config.Directory, "directory is required",
			"Set source.directory in .fileclaim.yml or pass --dir")
	}
	switch config.Release {
	case "emit", "ack":
	default:
		result.fail("source.release", config.Release, fmt.Sprintf("unknown release policy %q", config.Release),
			"Use 'emit' or 'ack'")
	}
}

func validateFilter(config *FilterConfig, result *ValidationResult) {
	for _, pattern := range config.Patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			result.fail("filter.patterns", pattern, fmt.Sprintf("invalid glob pattern %q", pattern))
		}
	}
	if config.Regex != "" {
		if _, err := regexp.Compile(config.Regex); err != nil {
			result.fail("filter.regex", config.Regex, err.Error())
		}
	}
	if config.AcceptOnceCapacity < 0 {
		result.fail("filter.accept_once_capacity", config.AcceptOnceCapacity, "capacity must not be negative",
			"Use 0 for an unbounded accept-once memory")
	}
	if config.MinAge < 0 {
		result.fail("filter.min_age", config.MinAge, "min_age must not be negative")
	}
	if config.Persistent && !config.AcceptOnce {
		result.warn("filter.persistent", config.Persistent, "persistent has no effect without accept_once")
	}
	if !config.AcceptOnce {
		result.warn("filter.accept_once", config.AcceptOnce,
			"files that are not moved or deleted will be emitted on every cycle")
	}
}

func validateLocker(config *LockerConfig, result *ValidationResult) {
	switch strings.ToLower(config.Kind) {
	case "marker", "none", "stub":
	case "nio":
		if runtime.GOOS == "windows" || runtime.GOOS == "plan9" {
			result.fail("locker.kind", config.Kind, "nio locker is not supported on "+runtime.GOOS,
				"Use the marker locker")
		}
	default:
		result.fail("locker.kind", config.Kind, fmt.Sprintf("unknown locker kind %q", config.Kind),
			"Use 'marker', 'nio' or 'none'")
	}
	if strings.ContainsRune(config.Suffix, '/') || strings.ContainsRune(config.Suffix, filepath.Separator) {
		result.fail("locker.suffix", config.Suffix, "suffix must not contain a path separator")
	}
}

func validateTrigger(config *TriggerConfig, result *ValidationResult) {
	switch config.Kind {
	case "interval", "watch":
		if config.Interval <= 0 {
			result.fail("trigger.interval", config.Interval, "interval must be positive")
		} else if config.Interval < 100*time.Millisecond {
			result.warn("trigger.interval", config.Interval, "very short intervals keep the directory busy")
		}
	case "cron":
		if strings.TrimSpace(config.Cron) == "" {
			result.fail("trigger.cron", config.Cron, "cron expression is required for the cron trigger",
				"Example: '*/5 * * * *'")
		}
	default:
		result.fail("trigger.kind", config.Kind, fmt.Sprintf("unknown trigger kind %q", config.Kind),
			"Use 'interval', 'cron' or 'watch'")
	}
	if config.Debounce < 0 {
		result.fail("trigger.debounce", config.Debounce, "debounce must not be negative")
	}
}

func validateConsumer(config *ConsumerConfig, result *ValidationResult) {
	if config.Timeout < 0 {
		result.fail("consumer.timeout", config.Timeout, "timeout must not be negative")
	}
	if config.MaxConcurrent < 1 {
		result.fail("consumer.max_concurrent", config.MaxConcurrent, "max_concurrent must be at least 1")
	}
	if len(config.Command) == 0 && config.ArchiveDir == "" {
		result.warn("consumer", nil, "no command or archive_dir configured, claimed files are only logged")
	}
}

func validateStore(config *StoreConfig, filter *FilterConfig, result *ValidationResult) {
	switch config.Driver {
	case "memory":
		if filter.Persistent {
			result.warn("store.driver", config.Driver, "accept-once state is lost on restart with the memory store",
				"Use sqlite3 or postgres for state that survives restarts")
		}
	case "sqlite3", "postgres":
		if config.DSN == "" {
			result.fail("store.dsn", config.DSN, fmt.Sprintf("dsn is required for driver %q", config.Driver))
		}
	default:
		result.fail("store.driver", config.Driver, fmt.Sprintf("unknown store driver %q", config.Driver),
			"Use 'memory', 'sqlite3' or 'postgres'")
	}
}

func validateLogging(config *LoggingConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.fail("logging.level", config.Level, err.Error(), "Use debug, info, warn or error")
	}
	switch config.Format {
	case "text", "json":
	default:
		result.fail("logging.format", config.Format, fmt.Sprintf("unknown log format %q", config.Format),
			"Use 'text' or 'json'")
	}
}
