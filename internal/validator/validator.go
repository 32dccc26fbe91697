// Package validator checks artifact definition files for format errors,
// duplicate names and references to undefined providers.
package validator

import (
	"errors"
	"iter"

	"go.uber.org/zap"

	"github.com/open-edge-platform/artifact-validator/internal/artifact"
	"github.com/open-edge-platform/artifact-validator/internal/definitions"
	"github.com/open-edge-platform/artifact-validator/internal/reader"
	"github.com/open-edge-platform/artifact-validator/internal/registry"
	"github.com/open-edge-platform/artifact-validator/internal/utils/logger"
	"github.com/open-edge-platform/artifact-validator/internal/utils/slice"
)

// FindingKind classifies a validation failure.
type FindingKind string

const (
	FindingFormat            FindingKind = "format"
	FindingRead              FindingKind = "read"
	FindingDuplicate         FindingKind = "duplicate"
	FindingDuplicateProvider FindingKind = "duplicate-provider"
	FindingUndefinedProvider FindingKind = "undefined-provider"
)

// Finding is one reported validation failure.
type Finding struct {
	Kind       FindingKind
	File       string
	Definition string
	Detail     string
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger replaces the global logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(v *Validator) { v.log = log }
}

// WithVocabulary sets the label and supported OS vocabularies.
func WithVocabulary(vocabulary definitions.Vocabulary) Option {
	return func(v *Validator) { v.vocabulary = vocabulary }
}

// WithStrict enables the schema checks of the readers.
func WithStrict(strict bool) Option {
	return func(v *Validator) { v.strict = strict }
}

// Validator drives the readers and the registry over a set of files. A
// Validator keeps its state across calls, so duplicates are detected across
// every file it checks. It is not safe for concurrent use.
type Validator struct {
	log        *zap.SugaredLogger
	vocabulary definitions.Vocabulary
	strict     bool

	artifacts *reader.ArtifactReader
	providers *reader.ProviderReader
	registry  *registry.Registry

	providerDefinitions map[string]*artifact.Provider
	findings            []Finding
}

func New(opts ...Option) *Validator {
	v := &Validator{
		vocabulary:          definitions.DefaultVocabulary(),
		registry:            registry.New(),
		providerDefinitions: make(map[string]*artifact.Provider),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.log == nil {
		v.log = logger.Logger()
	}

	readerOpts := []reader.Option{
		reader.WithVocabulary(v.vocabulary),
		reader.WithStrict(v.strict),
	}
	v.artifacts = reader.NewArtifactReader(readerOpts...)
	v.providers = reader.NewProviderReader(readerOpts...)
	return v
}

// ReadProviders adds the providers defined in path. A provider defined more
// than once is reported and the later definition replaces the earlier one.
func (v *Validator) ReadProviders(path string) bool {
	result := true
	for provider, err := range v.providers.ReadFile(path) {
		if err != nil {
			v.readFailure(path, err)
			return false
		}
		if _, exists := v.providerDefinitions[provider.Name]; exists {
			v.report(Finding{
				Kind:       FindingDuplicateProvider,
				File:       path,
				Definition: provider.Name,
			}, "Duplicate provider definition: %s in file: %s", provider.Name, path)
			result = false
		}
		v.providerDefinitions[provider.Name] = provider
	}
	return result
}

// CheckFile reads the artifact definitions in path and registers them.
// It returns false when the file holds a format error, a duplicate name or a
// reference to an undefined provider.
func (v *Validator) CheckFile(path string) bool {
	v.log.Debugf("Checking artifact definitions file: %s", path)
	return v.check(path, v.artifacts.ReadFile(path))
}

// CheckDirectory checks every matching file in dir. Every file is checked
// even after a failure.
func (v *Validator) CheckDirectory(dir string, opts reader.DirectoryOptions) bool {
	files, err := opts.Files(dir)
	if err != nil {
		v.readFailure(dir, err)
		return false
	}
	if len(files) == 0 {
		v.log.Warnf("No artifact definitions files found in: %s", dir)
	}

	result := true
	for _, path := range files {
		if !v.CheckFile(path) {
			result = false
		}
	}
	return result
}

func (v *Validator) check(path string, defs iter.Seq2[*artifact.Definition, error]) bool {
	result := true
	for def, err := range defs {
		if err != nil {
			v.readFailure(path, err)
			return false
		}

		if err := v.registry.Register(def); err != nil {
			v.report(Finding{
				Kind:       FindingDuplicate,
				File:       path,
				Definition: def.Name,
			}, "Duplicate artifact definition: %s in file: %s", def.Name, path)
			result = false
		}

		for _, provider := range def.Provides {
			if _, ok := v.providerDefinitions[provider]; ok {
				continue
			}
			v.report(Finding{
				Kind:       FindingUndefinedProvider,
				File:       path,
				Definition: def.Name,
				Detail:     provider,
			}, "Undefined provider: %s in artifact definition: %s in file: %s", provider, def.Name, path)
			result = false
		}
	}
	return result
}

func (v *Validator) readFailure(path string, err error) {
	finding := Finding{Kind: FindingRead, File: path, Detail: err.Error()}
	var formatErr *artifact.FormatError
	if errors.As(err, &formatErr) {
		finding.Kind = FindingFormat
		finding.Definition = formatErr.Name
	}
	v.report(finding, "%v", err)
}

func (v *Validator) report(finding Finding, format string, args ...any) {
	v.log.Warnf(format, args...)
	v.findings = append(v.findings, finding)
}

// Findings returns the failures reported so far, in the order found.
func (v *Validator) Findings() []Finding {
	out := make([]Finding, len(v.findings))
	copy(out, v.findings)
	return out
}

// Registry returns the definitions registered so far.
func (v *Validator) Registry() *registry.Registry {
	return v.registry
}

// ProviderNames returns the names of the providers read so far, sorted.
func (v *Validator) ProviderNames() []string {
	return slice.SortedKeys(v.providerDefinitions)
}
