package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/fileclaim/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging the config file, environment
variables and flags, with defaults filled in, as YAML. Validation problems
are reported on stderr; the command fails if there are errors.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindSourceFlags(cmd.Flags())
	},
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	addSourceFlags(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Decode(viper.GetViper())
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return err
	}

	result := config.Validate(cfg)
	if result.HasErrors() || result.HasWarnings() {
		fmt.Fprint(cmd.ErrOrStderr(), result.String())
	}
	return result.Err()
}
