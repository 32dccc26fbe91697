package main

import (
	"fmt"

	"github.com/open-edge-platform/artifact-validator/internal/config"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "artifact-validator.yml"

// createConfigCommand creates the config subcommand
func createConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage global configuration for the Artifact Validator.

Available commands:
  init    Initialize a new configuration file with default values`,
	}

	configCmd.AddCommand(createConfigInitCommand())

	return configCmd
}

// createConfigInitCommand creates the config init subcommand
func createConfigInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [config-file]",
		Short: "Initialize a new configuration file",
		Long: `Initialize a new configuration file with default values.

If no path is specified, the config will be created in the current directory as artifact-validator.yml

Examples:
  # Create config in current directory
  artifact-validator config init

  # Create config in user's home directory
  artifact-validator config init ~/.config/artifact-validator/config.yml`,
		Args: cobra.MaximumNArgs(1),
		RunE: executeConfigInit,
	}
}

// executeConfigInit handles the config init command logic
func executeConfigInit(cmd *cobra.Command, args []string) error {
	configPath := defaultConfigFile
	if len(args) > 0 {
		configPath = args[0]
	}

	defaultConfig := config.DefaultGlobalConfig()
	if err := defaultConfig.SaveGlobalConfigWithComments(configPath); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	fmt.Fprintf(out, "\nDefault configuration settings:\n")
	fmt.Fprintf(out, "  Strict: %t\n", defaultConfig.Strict)
	fmt.Fprintf(out, "  Log Level: %s\n", defaultConfig.Logging.Level)
	fmt.Fprintf(out, "  Definitions Extension: %s\n", defaultConfig.Definitions.Extension)
	fmt.Fprintf(out, "\nEdit the configuration file to customize these settings.\n")

	return nil
}
