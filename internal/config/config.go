// Package config provides configuration management for fileclaim using
// Viper for loading from files, environment variables, and command-line
// flags.
//
// The configuration is read from .fileclaim.yml, overridden by environment
// variables with the FILECLAIM_ prefix, and finally by flags bound in the
// cmd package. It describes the directory being polled and how its files
// are filtered, claimed, triggered, and consumed.
package config

import (
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/conneroisu/fileclaim/internal/errors"
)

// Config is the full fileclaim configuration.
type Config struct {
	Source   SourceConfig   `mapstructure:"source" yaml:"source"`
	Filter   FilterConfig   `mapstructure:"filter" yaml:"filter"`
	Locker   LockerConfig   `mapstructure:"locker" yaml:"locker"`
	Trigger  TriggerConfig  `mapstructure:"trigger" yaml:"trigger"`
	Consumer ConsumerConfig `mapstructure:"consumer" yaml:"consumer"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

type SourceConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	Release   string `mapstructure:"release" yaml:"release"`
}

type FilterConfig struct {
	Patterns           []string      `mapstructure:"patterns" yaml:"patterns"`
	Regex              string        `mapstructure:"regex" yaml:"regex"`
	IgnoreHidden       bool          `mapstructure:"ignore_hidden" yaml:"ignore_hidden"`
	AcceptOnce         bool          `mapstructure:"accept_once" yaml:"accept_once"`
	AcceptOnceCapacity int           `mapstructure:"accept_once_capacity" yaml:"accept_once_capacity"`
	Persistent         bool          `mapstructure:"persistent" yaml:"persistent"`
	MinAge             time.Duration `mapstructure:"min_age" yaml:"min_age"`
}

type LockerConfig struct {
	Kind   string `mapstructure:"kind" yaml:"kind"`
	Suffix string `mapstructure:"suffix" yaml:"suffix"`
}

type TriggerConfig struct {
	Kind     string        `mapstructure:"kind" yaml:"kind"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Cron     string        `mapstructure:"cron" yaml:"cron"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type ConsumerConfig struct {
	Command       []string      `mapstructure:"command" yaml:"command"`
	ArchiveDir    string        `mapstructure:"archive_dir" yaml:"archive_dir"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxConcurrent int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

type StoreConfig struct {
	Driver    string `mapstructure:"driver" yaml:"driver"`
	DSN       string `mapstructure:"dsn" yaml:"dsn"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Dir    string `mapstructure:"dir" yaml:"dir"`
}

// Defaults.
const (
	DefaultRelease       = "emit"
	DefaultLockerKind    = "marker"
	DefaultLockSuffix    = ".lock"
	DefaultTriggerKind   = "interval"
	DefaultInterval      = 5 * time.Second
	DefaultDebounce      = 250 * time.Millisecond
	DefaultMaxConcurrent = 4
	DefaultStoreDriver   = "memory"
	DefaultKeyPrefix     = "fileclaim:"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// Load reads the global viper instance, applies defaults and validates.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load for a specific viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	config, err := Decode(v)
	if err != nil {
		return nil, err
	}

	if result := Validate(config); result.HasErrors() {
		return nil, result.Err()
	}

	return config, nil
}

// Decode unmarshals and applies defaults without validating.
func Decode(v *viper.Viper) (*Config, error) {
	var config Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&config, hook); err != nil {
		return nil, errors.WrapConfig(err, "decoding configuration")
	}

	applyDefaults(v, &config)
	return &config, nil
}

func applyDefaults(v *viper.Viper, config *Config) {
	if config.Source.Release == "" {
		config.Source.Release = DefaultRelease
	}

	// Booleans default to true, so only an explicit setting can turn them off
	if !v.IsSet("filter.ignore_hidden") {
		config.Filter.IgnoreHidden = true
	}
	if !v.IsSet("filter.accept_once") {
		config.Filter.AcceptOnce = true
	}

	if config.Locker.Kind == "" {
		config.Locker.Kind = DefaultLockerKind
	}
	if config.Locker.Suffix == "" {
		config.Locker.Suffix = DefaultLockSuffix
	}

	if config.Trigger.Kind == "" {
		config.Trigger.Kind = DefaultTriggerKind
	}
	if config.Trigger.Interval == 0 {
		config.Trigger.Interval = DefaultInterval
	}
	if !v.IsSet("trigger.debounce") {
		config.Trigger.Debounce = DefaultDebounce
	}

	if config.Consumer.MaxConcurrent == 0 {
		config.Consumer.MaxConcurrent = DefaultMaxConcurrent
	}

	if config.Store.Driver == "" {
		config.Store.Driver = DefaultStoreDriver
	}
	if !v.IsSet("store.key_prefix") {
		config.Store.KeyPrefix = DefaultKeyPrefix
	}

	if config.Logging.Level == "" {
		config.Logging.Level = DefaultLogLevel
	}
	if config.Logging.Format == "" {
		config.Logging.Format = DefaultLogFormat
	}
}

// Keys lists every configuration key. Environment variables are only seen
// by Unmarshal for keys viper knows about, so BindEnv registers them all.
var Keys = []string{
	"source.directory", "source.release",
	"filter.patterns", "filter.regex", "filter.ignore_hidden", "filter.accept_once",
	"filter.accept_once_capacity", "filter.persistent", "filter.min_age",
	"locker.kind", "locker.suffix",
	"trigger.kind", "trigger.interval", "trigger.cron", "trigger.debounce",
	"consumer.command", "consumer.archive_dir", "consumer.timeout", "consumer.max_concurrent",
	"store.driver", "store.dsn", "store.key_prefix",
	"logging.level", "logging.format", "logging.dir",
}

// BindEnv binds every key in Keys to its environment variable.
func BindEnv(v *viper.Viper) error {
	for _, key := range Keys {
		if err := v.BindEnv(key); err != nil {
			return errors.WrapConfig(err, "binding environment variable for "+key)
		}
	}
	return nil
}
