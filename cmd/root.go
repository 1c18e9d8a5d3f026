package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/fileclaim/internal/config"
	"github.com/conneroisu/fileclaim/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fileclaim",
	Short: "Claim files from a shared directory, exactly one poller per file",
	Long: `fileclaim polls a directory, filters what it finds, and claims each
accepted file with a lock before handing it to a consumer. Several fileclaim
processes can share one directory: a file locked by one is skipped by the
others until it is released.

Configuration is read from .fileclaim.yml (or --config, or
FILECLAIM_CONFIG_FILE) and can be overridden by FILECLAIM_<SECTION>_<OPTION>
environment variables and by flags.

Quick Start:
  fileclaim init --dir inbox      Write a starter configuration
  fileclaim once                  Claim whatever is there now
  fileclaim poll                  Keep polling until interrupted`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .fileclaim.yml, can also use FILECLAIM_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig initializes the configuration system.
//
// Configuration file priority (highest to lowest):
//  1. --config flag
//  2. FILECLAIM_CONFIG_FILE environment variable
//  3. .fileclaim.yml in the current directory
//
// Every key can also be set through the environment with the FILECLAIM_
// prefix, e.g. FILECLAIM_SOURCE_DIRECTORY or FILECLAIM_TRIGGER_INTERVAL.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("FILECLAIM_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".fileclaim")
	}

	viper.SetEnvPrefix("FILECLAIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := config.BindEnv(viper.GetViper()); err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}

	// A missing file is fine; a malformed one is reported by the command
	// that loads the configuration.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Warning: reading config file:", err)
	}
}

// newLogger builds the process logger from the logging section. The
// returned close function releases the log file, if any.
func newLogger(cfg config.LoggingConfig) (logging.Logger, func() error, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	loggerConfig := &logging.LoggerConfig{
		Level:  level,
		Format: cfg.Format,
		Output: os.Stderr,
	}
	console := logging.NewLogger(loggerConfig)
	if cfg.Dir == "" {
		return console, func() error { return nil }, nil
	}

	file, err := logging.NewFileLogger(loggerConfig, cfg.Dir)
	if err != nil {
		return nil, nil, err
	}
	return logging.NewMultiLogger(console, file), file.Close, nil
}
