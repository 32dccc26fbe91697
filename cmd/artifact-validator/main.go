package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/open-edge-platform/artifact-validator/internal/config"
	"github.com/open-edge-platform/artifact-validator/internal/utils/logger"
	"github.com/open-edge-platform/artifact-validator/internal/utils/security"
	"github.com/spf13/cobra"
)

// Command-line flags that can override config file settings
var (
	configFile string = "" // Path to config file
	logLevel   string = "" // Empty means use config file value
	logFile    string = "" // Empty means use config file value
)

// loggerCleanup flushes the logger and closes the log file on exit
var loggerCleanup func()

// errValidationFailed ends the process with exit status 1 after the
// validation result has been printed.
var errValidationFailed = errors.New("validation failed")

func init() {
	// Run the persistent hooks of every parent so the config is loaded before
	// the input checks of a sub command.
	cobra.EnableTraverseRunHooks = true
}

func main() {
	rootCmd := createRootCommand()
	security.AttachRecursive(rootCmd, security.DefaultLimits())

	err := rootCmd.Execute()
	if loggerCleanup != nil {
		loggerCleanup()
	}
	if err != nil {
		if !errors.Is(err, errValidationFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// createRootCommand creates and configures the root cobra command with all subcommands
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "artifact-validator",
		Short: "Validate forensic artifact definition files",
		Long: `Artifact Validator checks artifact definition files: YAML documents
describing where forensically relevant data lives on a system (files, paths,
Windows Registry keys and values, WMI queries, commands, or groups of other
artifact definitions).

Every definition is checked for missing fields, malformed sources, undefined
labels and operating systems, duplicate names and references to undefined
providers.

Use 'artifact-validator --help' to see available commands.
Use 'artifact-validator <command> --help' for more information about a command.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"Log file path to tee logs (overrides configuration file)")

	rootCmd.AddCommand(createValidateCommand())
	rootCmd.AddCommand(createVersionCommand())
	rootCmd.AddCommand(createConfigCommand())
	rootCmd.AddCommand(createInstallCompletionCommand())

	return rootCmd
}

// initConfig loads the configuration file, applies the flag overrides and
// sets up the logger.
func initConfig(cmd *cobra.Command, args []string) error {
	configFilePath := configFile
	if configFilePath == "" {
		configFilePath = config.FindConfigFile()
	}

	globalConfig, err := config.LoadGlobalConfig(configFilePath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if logLevel != "" {
		globalConfig.Logging.Level = logLevel
	}
	if logFile != "" {
		globalConfig.Logging.File = logFile
	}
	if err := globalConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	config.SetGlobal(globalConfig)

	if loggerCleanup != nil {
		loggerCleanup()
	}
	_, cleanup, err := logger.InitWithConfig(logger.Config{
		Level:    globalConfig.Logging.Level,
		FilePath: globalConfig.Logging.File,
	})
	if err != nil {
		return err
	}
	loggerCleanup = cleanup

	log := logger.Logger()
	if configFilePath != "" {
		log.Debugf("Using configuration from: %s", configFilePath)
	}
	log.Debugf("Config: strict=%t, extension=%s, provider_files=%v",
		globalConfig.Strict, globalConfig.Definitions.Extension, globalConfig.Definitions.ProviderFiles)
	return nil
}
