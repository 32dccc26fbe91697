package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/open-edge-platform/artifact-validator/internal/config"
	"github.com/open-edge-platform/artifact-validator/internal/reader"
	"github.com/open-edge-platform/artifact-validator/internal/utils/logger"
	"github.com/open-edge-platform/artifact-validator/internal/utils/slice"
	"github.com/open-edge-platform/artifact-validator/internal/validator"
	"github.com/open-edge-platform/artifact-validator/internal/watcher"
	"github.com/spf13/cobra"
)

// Validate command flags
var (
	providerFiles []string // Provider definition files, repeatable or comma separated
	strictMode    bool     = false
	watchMode     bool     = false
	extension     string   = ""
	ignoreList    []string
)

// validateOptions is the validate configuration after merging flags with the
// global config.
type validateOptions struct {
	providers []string
	strict    bool
	directory reader.DirectoryOptions
}

// createValidateCommand creates the validate subcommand
func createValidateCommand() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate [flags] [artifacts.yaml|directory]",
		Short: "Validate artifact definition files",
		Long: `Validate an artifact definitions file, or every definitions file of a
directory, and report format errors, duplicate artifact names and references
to undefined providers.

Examples:
  # Validate a single file
  artifact-validator validate artifacts/linux.yaml

  # Validate a directory, resolving provides against a provider file
  artifact-validator validate --providers providers.yaml artifacts/

  # Re-validate whenever the files change
  artifact-validator validate --watch artifacts/`,
		Args:              cobra.MaximumNArgs(1),
		RunE:              executeValidate,
		ValidArgsFunction: definitionsFileCompletion,
	}

	validateCmd.Flags().StringArrayVar(&providerFiles, "providers", []string{},
		"Provider definitions file, repeatable or comma separated")
	validateCmd.Flags().BoolVar(&strictMode, "strict", false,
		"Check every definition document against the JSON schema")
	validateCmd.Flags().BoolVar(&watchMode, "watch", false,
		"Validate again whenever the files change, until interrupted")
	validateCmd.Flags().StringVar(&extension, "extension", "",
		"Extension of the definition files read from a directory, \"*\" for all (overrides configuration file)")
	validateCmd.Flags().StringSliceVar(&ignoreList, "ignore", []string{},
		"File names skipped when reading a directory")

	return validateCmd
}

// executeValidate handles the validate command logic
func executeValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		fmt.Fprintln(out, "Source value is missing.")
		_ = cmd.Usage()
		return errValidationFailed
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(out, "No such file: %s\n", path)
		return errValidationFailed
	}

	opts := resolveValidateOptions(cmd, config.Global())

	if watchMode {
		return watchValidate(cmd, out, path, info.IsDir(), opts)
	}
	if !runValidation(out, path, info.IsDir(), opts) {
		return errValidationFailed
	}
	return nil
}

// resolveValidateOptions merges the command line flags into the global
// config. Flags set on the command line take precedence.
func resolveValidateOptions(cmd *cobra.Command, cfg *config.GlobalConfig) validateOptions {
	opts := validateOptions{
		strict: cfg.Strict,
		directory: reader.DirectoryOptions{
			Extension:  cfg.Definitions.Extension,
			IgnoreList: slice.Merge(cfg.Definitions.IgnoreList, ignoreList),
		},
	}

	var fromFlags []string
	for _, value := range providerFiles {
		fromFlags = append(fromFlags, slice.SplitCSV(value)...)
	}
	opts.providers = slice.Merge(cfg.Definitions.ProviderFiles, fromFlags)

	if cmd.Flags().Changed("strict") {
		opts.strict = strictMode
	}
	if cmd.Flags().Changed("extension") {
		opts.directory.Extension = extension
	}
	return opts
}

// runValidation validates path with a fresh validator and prints the result.
func runValidation(out io.Writer, path string, isDir bool, opts validateOptions) bool {
	v := validator.New(
		validator.WithVocabulary(config.Global().Vocabulary()),
		validator.WithStrict(opts.strict),
	)

	fmt.Fprintf(out, "Validating: %s\n", path)

	result := true
	for _, providers := range opts.providers {
		if !v.ReadProviders(providers) {
			result = false
		}
	}

	if isDir {
		result = v.CheckDirectory(path, opts.directory) && result
	} else {
		result = v.CheckFile(path) && result
	}

	if result {
		fmt.Fprintln(out, "SUCCESS")
	} else {
		fmt.Fprintln(out, "FAILURE")
	}
	return result
}

func watchValidate(cmd *cobra.Command, out io.Writer, path string, isDir bool, opts validateOptions) error {
	watchCfg := watcher.DefaultConfig(append([]string{path}, opts.providers...)...)
	if opts.directory.Extension != "" {
		watchCfg.Extension = opts.directory.Extension
	}
	w, err := watcher.New(watchCfg)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Logger().Infof("Watching %s for changes, press Ctrl+C to stop", path)
	return w.Run(ctx, func() {
		runValidation(out, path, isDir, opts)
	})
}

// definitionsFileCompletion provides completion for definition files
func definitionsFileCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
}
