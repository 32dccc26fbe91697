// Package definitions holds the fixed vocabularies an artifact definition is
// checked against: source type indicators, labels, supported operating systems
// and the provider document header values.
package definitions

import (
	"slices"

	"github.com/open-edge-platform/artifact-validator/internal/utils/slice"
)

// TypeIndicator identifies a source type variant in a definition document.
type TypeIndicator string

const (
	TypeIndicatorArtifact             TypeIndicator = "ARTIFACT"
	TypeIndicatorCommand              TypeIndicator = "COMMAND"
	TypeIndicatorFile                 TypeIndicator = "FILE"
	TypeIndicatorPath                 TypeIndicator = "PATH"
	TypeIndicatorWindowsRegistryKey   TypeIndicator = "REGISTRY_KEY"
	TypeIndicatorWindowsRegistryValue TypeIndicator = "REGISTRY_VALUE"
	TypeIndicatorWMIQuery             TypeIndicator = "WMI"
)

// TypeIndicators lists every known source type indicator.
var TypeIndicators = []TypeIndicator{
	TypeIndicatorArtifact,
	TypeIndicatorCommand,
	TypeIndicatorFile,
	TypeIndicatorPath,
	TypeIndicatorWindowsRegistryKey,
	TypeIndicatorWindowsRegistryValue,
	TypeIndicatorWMIQuery,
}

// Provider document header values.
const (
	ProviderFormatVersion  = 20150618
	ProviderDefinitionType = "provider"
)

// DefaultExtension is the file extension read from a definitions directory.
const DefaultExtension = "yaml"

// Labels is the built-in label vocabulary.
var Labels = []string{
	"Antivirus",
	"Authentication",
	"Browser",
	"Cloud Storage",
	"Configuration Files",
	"Execution",
	"External Media",
	"KnowledgeBase",
	"Logs",
	"Mail",
	"Network",
	"Processes",
	"Software",
	"System",
	"Users",
	"iOS",
}

// SupportedOS is the built-in operating system vocabulary.
var SupportedOS = []string{
	"Darwin",
	"Linux",
	"Windows",
}

// Vocabulary is the set of values the reader accepts for labels and
// supported operating systems.
type Vocabulary struct {
	Labels      []string
	SupportedOS []string
}

// DefaultVocabulary returns a copy of the built-in vocabularies.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Labels:      slices.Clone(Labels),
		SupportedOS: slices.Clone(SupportedOS),
	}
}

// IsLabel reports whether label is part of the vocabulary.
func (v Vocabulary) IsLabel(label string) bool {
	return slice.Contains(v.Labels, label)
}

// IsSupportedOS reports whether name is part of the vocabulary.
func (v Vocabulary) IsSupportedOS(name string) bool {
	return slice.Contains(v.SupportedOS, name)
}
