package config

import (
	"time"
)

// ConfigBuilder provides a fluent interface for building configurations in
// code, starting from the same defaults Load applies.
//
// Usage:
//
//	config, err := NewConfigBuilder("/var/spool/in").
//	    WithPatterns("*.csv").
//	    WithLocker("nio").
//	    WithCron("*/5 * * * *").
//	    Build()
type ConfigBuilder struct {
	config     *Config
	validators []ValidatorFunc
}

// ValidatorFunc represents an extra configuration validation function
type ValidatorFunc func(*Config) error

// Default returns a configuration with every default applied and the given
// source directory.
func Default(dir string) *Config {
	return &Config{
		Source: SourceConfig{Directory: dir, Release: DefaultRelease},
		Filter: FilterConfig{IgnoreHidden: true, AcceptOnce: true},
		Locker: LockerConfig{Kind: DefaultLockerKind, Suffix: DefaultLockSuffix},
		Trigger: TriggerConfig{
			Kind:     DefaultTriggerKind,
			Interval: DefaultInterval,
			Debounce: DefaultDebounce,
		},
		Consumer: ConsumerConfig{MaxConcurrent: DefaultMaxConcurrent},
		Store:    StoreConfig{Driver: DefaultStoreDriver, KeyPrefix: DefaultKeyPrefix},
		Logging:  LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

// NewConfigBuilder creates a builder seeded with Default(dir).
func NewConfigBuilder(dir string) *ConfigBuilder {
	return &ConfigBuilder{config: Default(dir)}
}

// WithPatterns restricts accepted files to the given glob patterns.
func (cb *ConfigBuilder) WithPatterns(patterns ...string) *ConfigBuilder {
	cb.config.Filter.Patterns = append(cb.config.Filter.Patterns, patterns...)
	return cb
}

// WithRegex restricts accepted file names to expr.
func (cb *ConfigBuilder) WithRegex(expr string) *ConfigBuilder {
	cb.config.Filter.Regex = expr
	return cb
}

// WithAcceptOnce toggles the accept-once filter.
func (cb *ConfigBuilder) WithAcceptOnce(enabled bool, capacity int) *ConfigBuilder {
	cb.config.Filter.AcceptOnce = enabled
	cb.config.Filter.AcceptOnceCapacity = capacity
	return cb
}

// WithMinAge skips files modified more recently than age.
func (cb *ConfigBuilder) WithMinAge(age time.Duration) *ConfigBuilder {
	cb.config.Filter.MinAge = age
	return cb
}

// WithLocker selects the locker kind.
func (cb *ConfigBuilder) WithLocker(kind string) *ConfigBuilder {
	cb.config.Locker.Kind = kind
	return cb
}

// WithRelease selects the release policy.
func (cb *ConfigBuilder) WithRelease(policy string) *ConfigBuilder {
	cb.config.Source.Release = policy
	return cb
}

// WithInterval uses the interval trigger.
func (cb *ConfigBuilder) WithInterval(every time.Duration) *ConfigBuilder {
	cb.config.Trigger.Kind = "interval"
	cb.config.Trigger.Interval = every
	return cb
}

// WithCron uses the cron trigger.
func (cb *ConfigBuilder) WithCron(spec string) *ConfigBuilder {
	cb.config.Trigger.Kind = "cron"
	cb.config.Trigger.Cron = spec
	return cb
}

// WithWatch uses the watch trigger.
func (cb *ConfigBuilder) WithWatch(debounce, fallback time.Duration) *ConfigBuilder {
	cb.config.Trigger.Kind = "watch"
	cb.config.Trigger.Debounce = debounce
	cb.config.Trigger.Interval = fallback
	return cb
}

// WithCommand runs argv for every claimed file.
func (cb *ConfigBuilder) WithCommand(argv ...string) *ConfigBuilder {
	cb.config.Consumer.Command = argv
	return cb
}

// WithArchive moves claimed files into dir.
func (cb *ConfigBuilder) WithArchive(dir string) *ConfigBuilder {
	cb.config.Consumer.ArchiveDir = dir
	return cb
}

// WithStore sets the metadata store and enables persistent accept-once.
func (cb *ConfigBuilder) WithStore(driver, dsn string) *ConfigBuilder {
	cb.config.Store.Driver = driver
	cb.config.Store.DSN = dsn
	cb.config.Filter.Persistent = true
	return cb
}

// WithValidator adds a custom validator
func (cb *ConfigBuilder) WithValidator(validator ValidatorFunc) *ConfigBuilder {
	cb.validators = append(cb.validators, validator)
	return cb
}

// Build validates and returns the configuration.
func (cb *ConfigBuilder) Build() (*Config, error) {
	if err := Validate(cb.config).Err(); err != nil {
		return nil, err
	}
	for _, validator := range cb.validators {
		if err := validator(cb.config); err != nil {
			return nil, err
		}
	}

	config := *cb.config
	return &config, nil
}
