package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/open-edge-platform/artifact-validator/internal/utils/security"
	"github.com/spf13/cobra"
)

// createInstallCompletionCommand creates the install-completion subcommand
func createInstallCompletionCommand() *cobra.Command {
	installCompletionCmd := &cobra.Command{
		Use:   "install-completion",
		Short: "Install shell completion script",
		Long: `Install shell completion script for Bash, Zsh, Fish, or PowerShell.
Automatically detects your shell and installs the appropriate completion script.`,
		Args: cobra.NoArgs,
		RunE: executeInstallCompletion,
	}

	installCompletionCmd.Flags().String("shell", "", "Specify shell type (bash, zsh, fish, powershell)")
	installCompletionCmd.Flags().Bool("force", false, "Force overwrite existing completion files")

	return installCompletionCmd
}

// executeInstallCompletion handles installation of shell completion scripts
func executeInstallCompletion(cmd *cobra.Command, args []string) error {
	shellType, err := cmd.Flags().GetString("shell")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if shellType == "" {
		if shellType, err = detectShell(); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := generateCompletion(cmd.Root(), shellType, &buf); err != nil {
		return err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("could not determine home directory: %w", err)
	}
	targetPath := completionPath(shellType, homeDir)
	if err := os.MkdirAll(filepath.Dir(targetPath), 0700); err != nil {
		return fmt.Errorf("could not create directory %s: %w", filepath.Dir(targetPath), err)
	}

	if _, err := os.Stat(targetPath); err == nil && !force {
		return fmt.Errorf("completion file already exists at %s. Use --force to overwrite", targetPath)
	}
	if err := security.SafeWriteFile(targetPath, buf.Bytes(), 0600, security.RejectSymlinks); err != nil {
		return fmt.Errorf("could not write completion file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Shell completion installed for %s at %s\n", shellType, targetPath)
	fmt.Fprintf(out, "Source the file from your shell profile to activate it.\n")
	return nil
}

func detectShell() (string, error) {
	shellEnv := os.Getenv("SHELL")
	if shellEnv == "" {
		// Windows has no $SHELL
		if os.Getenv("PSModulePath") != "" {
			return "powershell", nil
		}
		return "", fmt.Errorf("could not detect shell. Please specify with --shell flag")
	}
	for _, shell := range []string{"bash", "zsh", "fish"} {
		if strings.Contains(shellEnv, shell) {
			return shell, nil
		}
	}
	return "", fmt.Errorf("unsupported shell: %s. Please specify shell with --shell flag", shellEnv)
}

func generateCompletion(root *cobra.Command, shellType string, buf *bytes.Buffer) error {
	var err error
	switch shellType {
	case "bash":
		err = root.GenBashCompletion(buf)
	case "zsh":
		err = root.GenZshCompletion(buf)
	case "fish":
		err = root.GenFishCompletion(buf, true)
	case "powershell":
		err = root.GenPowerShellCompletion(buf)
	default:
		return fmt.Errorf("unsupported shell type: %s", shellType)
	}
	if err != nil {
		return fmt.Errorf("error generating %s completion: %w", shellType, err)
	}
	return nil
}

// completionPath returns the user-scoped completion file of shellType.
// Bash completions go to /etc/bash_completion.d when
// ARTIFACT_VALIDATOR_COMPLETION_SCOPE=system and the directory is writable.
func completionPath(shellType, homeDir string) string {
	switch shellType {
	case "bash":
		systemDir := "/etc/bash_completion.d"
		if os.Getenv("ARTIFACT_VALIDATOR_COMPLETION_SCOPE") == "system" && dirWritable(systemDir) {
			return filepath.Join(systemDir, "artifact-validator.bash")
		}
		return filepath.Join(homeDir, ".bash_completion.d", "artifact-validator.bash")
	case "zsh":
		return filepath.Join(homeDir, ".zsh", "completion", "_artifact-validator")
	case "fish":
		return filepath.Join(homeDir, ".config", "fish", "completions", "artifact-validator.fish")
	default:
		return filepath.Join(homeDir, "Documents", "WindowsPowerShell", "artifact-validator-completion.ps1")
	}
}

// dirWritable checks if the specified directory is writable by attempting to create and remove a temporary file.
func dirWritable(p string) bool {
	tf, err := os.CreateTemp(p, ".probe-*")
	if err != nil {
		return false
	}
	tf.Close()
	_ = os.Remove(tf.Name())
	return true
}
