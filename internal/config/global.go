// internal/config/global.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/open-edge-platform/artifact-validator/internal/config/validate"
	"github.com/open-edge-platform/artifact-validator/internal/definitions"
	"github.com/open-edge-platform/artifact-validator/internal/utils/logger"
	"github.com/open-edge-platform/artifact-validator/internal/utils/security"
	"github.com/open-edge-platform/artifact-validator/internal/utils/slice"
	"gopkg.in/yaml.v3"
)

var log = logger.Logger()

// GlobalConfig holds the tool-level settings of the validator
type GlobalConfig struct {
	// Strict enables the JSON schema checks of every definition document
	Strict bool `yaml:"strict" json:"strict"`

	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
	Definitions DefinitionsConfig `yaml:"definitions" json:"definitions"`
}

// LoggingConfig controls basic logging behavior
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`                   // debug, info (default), warn or error
	File  string `yaml:"file,omitempty" json:"file,omitempty"` // Optional log file path for teeing output to disk
}

// DefinitionsConfig selects the definition files and the vocabularies used
// to validate them
type DefinitionsConfig struct {
	Extension     string   `yaml:"extension" json:"extension"`                               // Extension of definition files in directories, "*" for all
	IgnoreList    []string `yaml:"ignore_list,omitempty" json:"ignore_list,omitempty"`       // File names skipped in directories
	ProviderFiles []string `yaml:"provider_files,omitempty" json:"provider_files,omitempty"` // Provider definition files read before validating
	Labels        []string `yaml:"labels,omitempty" json:"labels,omitempty"`                 // Label vocabulary, empty for the built-in one
	SupportedOS   []string `yaml:"supported_os,omitempty" json:"supported_os,omitempty"`     // Operating system vocabulary, empty for the built-in one
}

var (
	globalInstance *GlobalConfig
	globalMutex    sync.RWMutex
	once           sync.Once
)

// SetGlobal sets the global config instance (call once at startup in main.go)
func SetGlobal(config *GlobalConfig) {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	globalInstance = config
}

// Global returns the global config instance
func Global() *GlobalConfig {
	once.Do(func() {
		globalMutex.Lock()
		defer globalMutex.Unlock()
		if globalInstance == nil {
			globalInstance = DefaultGlobalConfig()
		}
	})

	globalMutex.RLock()
	defer globalMutex.RUnlock()
	return globalInstance
}

// DefaultGlobalConfig returns a GlobalConfig with the built-in defaults
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Logging: LoggingConfig{
			Level: "info",
		},
		Definitions: DefinitionsConfig{
			Extension: definitions.DefaultExtension,
		},
	}
}

// LoadGlobalConfig loads configuration from the specified path. A missing
// file yields the defaults.
func LoadGlobalConfig(configPath string) (*GlobalConfig, error) {
	config := DefaultGlobalConfig()
	if configPath == "" {
		return config, nil
	}

	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		if errors.Is(err, os.ErrPermission) {
			log.Warnf("Config file %s is not accessible (%v); using defaults", configPath, err)
			return config, nil
		}
		log.Errorf("Error accessing config file %s: %v", configPath, err)
		return nil, fmt.Errorf("accessing config file %s: %w", configPath, err)
	}

	ext := strings.ToLower(filepath.Ext(configPath))
	if ext != ".yaml" && ext != ".yml" {
		log.Errorf("Unsupported config file format: %s", ext)
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml)", ext)
	}

	data, err := security.SafeReadFile(configPath, security.RejectSymlinks)
	if err != nil {
		log.Errorf("Error reading config file %s: %v", configPath, err)
		return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		log.Errorf("Error parsing YAML config: %v", err)
		return nil, fmt.Errorf("parsing YAML config: %w", err)
	}
	// A file holding only comments keeps the defaults.
	if raw != nil {
		if err := validate.ValidateConfigYAML(data); err != nil {
			log.Errorf("Schema validation failed: %v", err)
			return nil, fmt.Errorf("schema validation failed: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			log.Errorf("Error parsing YAML config: %v", err)
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		log.Errorf("Config validation failed: %v", err)
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// SaveGlobalConfigWithComments writes the configuration with descriptive
// comments. Used by the config init command.
func (gc *GlobalConfig) SaveGlobalConfigWithComments(configPath string) error {
	if configPath == "" {
		return fmt.Errorf("config path is empty")
	}

	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			log.Errorf("Failed to create config directory: %v", err)
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	jsonData, err := json.Marshal(gc)
	if err != nil {
		log.Errorf("Error converting config to JSON for validation: %v", err)
		return fmt.Errorf("converting config to JSON for validation: %w", err)
	}
	if err := validate.ValidateConfigJSON(jsonData); err != nil {
		log.Errorf("Config validation failed before save: %v", err)
		return fmt.Errorf("config validation failed before save: %w", err)
	}

	if err := security.SafeWriteFile(configPath, []byte(gc.renderCommentedYAML()), 0600, security.RejectSymlinks); err != nil {
		log.Errorf("Error writing config file: %v", err)
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func (gc *GlobalConfig) renderCommentedYAML() string {
	var b strings.Builder

	b.WriteString("# Artifact Validator - Global Configuration\n")
	b.WriteString("# Settings applied to every validate run. Command line flags take precedence.\n\n")

	fmt.Fprintf(&b, "strict: %t\n", gc.Strict)
	b.WriteString("# Check every definition document against the JSON schema before the\n")
	b.WriteString("# semantic checks run. Unknown keys and malformed values are reported.\n\n")

	b.WriteString("# Logging configuration\n")
	b.WriteString("logging:\n")
	fmt.Fprintf(&b, "  level: %q\n", gc.Logging.Level)
	b.WriteString("  # Log verbosity level (default: info)\n")
	b.WriteString("  # - debug: Most verbose, shows every file read\n")
	b.WriteString("  # - info:  Normal output\n")
	b.WriteString("  # - warn:  Only validation findings and errors\n")
	b.WriteString("  # - error: Only errors\n")
	if gc.Logging.File != "" {
		fmt.Fprintf(&b, "  file: %q\n", gc.Logging.File)
		b.WriteString("  # Tee logs to this file in addition to stderr (overwritten on each run)\n")
	}
	b.WriteString("\n")

	b.WriteString("# Definition files\n")
	b.WriteString("definitions:\n")
	fmt.Fprintf(&b, "  extension: %q\n", gc.Definitions.Extension)
	b.WriteString("  # Extension of the files read from a directory, \"*\" reads every file\n")
	writeList(&b, "ignore_list", gc.Definitions.IgnoreList,
		"File names or paths skipped when reading a directory")
	writeList(&b, "provider_files", gc.Definitions.ProviderFiles,
		"Provider definition files read before validating \"provides\" references")
	writeList(&b, "labels", gc.Definitions.Labels,
		"Label vocabulary, leave empty for the built-in labels")
	writeList(&b, "supported_os", gc.Definitions.SupportedOS,
		"Operating system vocabulary, leave empty for Darwin, Linux and Windows")

	return b.String()
}

func writeList(b *strings.Builder, key string, values []string, comment string) {
	if len(values) == 0 {
		fmt.Fprintf(b, "  %s: []\n", key)
	} else {
		fmt.Fprintf(b, "  %s:\n", key)
		for _, v := range values {
			fmt.Fprintf(b, "    - %q\n", v)
		}
	}
	fmt.Fprintf(b, "  # %s\n", comment)
}

// Validate checks the configuration for consistency
// Note: This should NOT set defaults - that's done in DefaultGlobalConfig()
func (gc *GlobalConfig) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slice.Contains(validLevels, gc.Logging.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s",
			gc.Logging.Level, strings.Join(validLevels, ", "))
	}
	gc.Logging.File = strings.TrimSpace(gc.Logging.File)

	ext := strings.TrimPrefix(strings.TrimSpace(gc.Definitions.Extension), ".")
	if strings.ContainsAny(ext, `/\`) {
		return fmt.Errorf("invalid definitions extension %q", gc.Definitions.Extension)
	}
	gc.Definitions.Extension = ext

	for _, list := range []struct {
		name   string
		values []string
	}{
		{"labels", gc.Definitions.Labels},
		{"supported_os", gc.Definitions.SupportedOS},
		{"provider_files", gc.Definitions.ProviderFiles},
	} {
		for _, v := range list.values {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("definitions %s must not contain empty values", list.name)
			}
		}
	}
	return nil
}

// Vocabulary returns the label and supported OS vocabularies of the config.
// Empty lists select the built-in vocabularies.
func (gc *GlobalConfig) Vocabulary() definitions.Vocabulary {
	vocabulary := definitions.DefaultVocabulary()
	if len(gc.Definitions.Labels) > 0 {
		vocabulary.Labels = slice.Merge(nil, gc.Definitions.Labels)
	}
	if len(gc.Definitions.SupportedOS) > 0 {
		vocabulary.SupportedOS = slice.Merge(nil, gc.Definitions.SupportedOS)
	}
	return vocabulary
}

// GetConfigPaths returns the standard configuration file paths to check
func GetConfigPaths() []string {
	homeDir, _ := os.UserHomeDir()

	paths := []string{
		"artifact-validator.yml",
		".artifact-validator.yml",
		"artifact-validator.yaml",
		".artifact-validator.yaml",
	}

	if homeDir != "" {
		paths = append(paths,
			filepath.Join(homeDir, ".artifact-validator", "config.yml"),
			filepath.Join(homeDir, ".artifact-validator", "config.yaml"),
			filepath.Join(homeDir, ".config", "artifact-validator", "config.yml"),
			filepath.Join(homeDir, ".config", "artifact-validator", "config.yaml"),
		)
	}

	paths = append(paths,
		"/etc/artifact-validator/config.yml",
		"/etc/artifact-validator/config.yaml",
	)
	return paths
}

// FindConfigFile searches for a configuration file in standard locations
func FindConfigFile() string {
	for _, path := range GetConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func LogLevel() string {
	return Global().Logging.Level
}

func IsDebugMode() bool {
	return Global().Logging.Level == "debug"
}
