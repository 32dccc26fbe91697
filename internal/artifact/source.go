package artifact

import (
	"sort"
	"strings"

	"github.com/open-edge-platform/artifact-validator/internal/definitions"
	"github.com/open-edge-platform/artifact-validator/internal/utils/slice"
)

// DefaultSeparator is the path segment separator of file and path sources.
const DefaultSeparator = "/"

// Source is one source clause of an artifact definition. The set of
// implementations is closed: ArtifactSource, FileSource, PathSource,
// CommandSource, RegistryKeySource, RegistryValueSource and WMIQuerySource.
type Source interface {
	TypeIndicator() definitions.TypeIndicator
	Common() SourceCommon
	withCommon(SourceCommon) Source
}

// SourceCommon holds the fields left over from the collector format. They are
// copied from the source entry of the document and are not validated beyond
// the supported OS vocabulary.
type SourceCommon struct {
	Conditions    []string
	ReturnedTypes []string
	SupportedOS   []string
}

// Common returns the legacy fields of the source.
func (c SourceCommon) Common() SourceCommon { return c }

// WithCommon returns a copy of src carrying the given legacy fields.
func WithCommon(src Source, common SourceCommon) Source {
	return src.withCommon(common)
}

// ArtifactSource refers to other artifact definitions by name.
type ArtifactSource struct {
	SourceCommon
	Names []string
}

func NewArtifactSource(names []string) (ArtifactSource, error) {
	if len(names) == 0 {
		return ArtifactSource{}, Errorf("", "missing names value")
	}
	return ArtifactSource{Names: names}, nil
}

func (ArtifactSource) TypeIndicator() definitions.TypeIndicator {
	return definitions.TypeIndicatorArtifact
}

func (s ArtifactSource) withCommon(c SourceCommon) Source {
	s.SourceCommon = c
	return s
}

// FileSource describes file entries that contain data. Paths are relative to
// the root of the file system.
type FileSource struct {
	SourceCommon
	Paths     []string
	Separator string
}

func NewFileSource(paths []string, separator string) (FileSource, error) {
	if len(paths) == 0 {
		return FileSource{}, Errorf("", "missing paths value")
	}
	if separator == "" {
		separator = DefaultSeparator
	}
	return FileSource{Paths: paths, Separator: separator}, nil
}

func (FileSource) TypeIndicator() definitions.TypeIndicator {
	return definitions.TypeIndicatorFile
}

func (s FileSource) withCommon(c SourceCommon) Source {
	s.SourceCommon = c
	return s
}

// PathSource describes file entries that define a location, such as
// %SystemRoot% pointing at C:\Windows.
type PathSource struct {
	SourceCommon
	Paths     []string
	Separator string
}

func NewPathSource(paths []string, separator string) (PathSource, error) {
	if len(paths) == 0 {
		return PathSource{}, Errorf("", "missing paths value")
	}
	if separator == "" {
		separator = DefaultSeparator
	}
	return PathSource{Paths: paths, Separator: separator}, nil
}

func (PathSource) TypeIndicator() definitions.TypeIndicator {
	return definitions.TypeIndicatorPath
}

func (s PathSource) withCommon(c SourceCommon) Source {
	s.SourceCommon = c
	return s
}

// CommandSource describes a command and its arguments. Args is never nil on a
// constructed value; an empty slice means the command takes no arguments.
type CommandSource struct {
	SourceCommon
	Cmd  string
	Args []string
}

// NewCommandSource requires both values. A nil args slice means the
// attribute was absent.
func NewCommandSource(cmd string, args []string) (CommandSource, error) {
	if cmd == "" || args == nil {
		return CommandSource{}, Errorf("", "missing args or cmd value")
	}
	return CommandSource{Cmd: cmd, Args: args}, nil
}

func (CommandSource) TypeIndicator() definitions.TypeIndicator {
	return definitions.TypeIndicatorCommand
}

func (s CommandSource) withCommon(c SourceCommon) Source {
	s.SourceCommon = c
	return s
}

// RegistryKeySource lists Windows Registry key paths, relative to the root of
// the Registry.
type RegistryKeySource struct {
	SourceCommon
	Keys []string
}

func NewRegistryKeySource(keys []string) (RegistryKeySource, error) {
	if len(keys) == 0 {
		return RegistryKeySource{}, Errorf("", "missing keys value")
	}
	return RegistryKeySource{Keys: keys}, nil
}

func (RegistryKeySource) TypeIndicator() definitions.TypeIndicator {
	return definitions.TypeIndicatorWindowsRegistryKey
}

func (s RegistryKeySource) withCommon(c SourceCommon) Source {
	s.SourceCommon = c
	return s
}

// KeyValuePair names one Windows Registry value. An empty Value refers to the
// default value of the key.
type KeyValuePair struct {
	Key   string `yaml:"key" json:"key"`
	Value string `yaml:"value" json:"value"`
}

// RegistryValueSource lists Windows Registry values.
type RegistryValueSource struct {
	SourceCommon
	KeyValuePairs []KeyValuePair
}

func NewRegistryValueSource(pairs []KeyValuePair) (RegistryValueSource, error) {
	if len(pairs) == 0 {
		return RegistryValueSource{}, Errorf("", "missing key value pairs value")
	}
	for i, pair := range pairs {
		if pair.Key == "" {
			return RegistryValueSource{}, Errorf("", "key_value_pairs[%d] has an empty key", i)
		}
	}
	return RegistryValueSource{KeyValuePairs: pairs}, nil
}

func (RegistryValueSource) TypeIndicator() definitions.TypeIndicator {
	return definitions.TypeIndicatorWindowsRegistryValue
}

func (s RegistryValueSource) withCommon(c SourceCommon) Source {
	s.SourceCommon = c
	return s
}

// WMIQuerySource holds a Windows Management Instrumentation query.
type WMIQuerySource struct {
	SourceCommon
	Query string
}

func NewWMIQuerySource(query string) (WMIQuerySource, error) {
	if query == "" {
		return WMIQuerySource{}, Errorf("", "missing query value")
	}
	return WMIQuerySource{Query: query}, nil
}

func (WMIQuerySource) TypeIndicator() definitions.TypeIndicator {
	return definitions.TypeIndicatorWMIQuery
}

func (s WMIQuerySource) withCommon(c SourceCommon) Source {
	s.SourceCommon = c
	return s
}

// NewSource builds the source variant named by typeIndicator from the
// attributes mapping of a source entry. A nil attributes map is treated as
// empty, so variants with mandatory fields fail.
func NewSource(typeIndicator definitions.TypeIndicator, attributes map[string]any) (Source, error) {
	switch typeIndicator {
	case definitions.TypeIndicatorArtifact:
		names, err := stringList(attributes, "names")
		if err != nil {
			return nil, err
		}
		return asSource(NewArtifactSource(names))

	case definitions.TypeIndicatorFile, definitions.TypeIndicatorPath:
		paths, err := stringList(attributes, "paths")
		if err != nil {
			return nil, err
		}
		separator, err := optionalString(attributes, "separator")
		if err != nil {
			return nil, err
		}
		if typeIndicator == definitions.TypeIndicatorFile {
			return asSource(NewFileSource(paths, separator))
		}
		return asSource(NewPathSource(paths, separator))

	case definitions.TypeIndicatorCommand:
		cmd, err := optionalString(attributes, "cmd")
		if err != nil {
			return nil, err
		}
		args, err := stringList(attributes, "args")
		if err != nil {
			return nil, err
		}
		return asSource(NewCommandSource(cmd, args))

	case definitions.TypeIndicatorWindowsRegistryKey:
		keys, err := stringList(attributes, "keys")
		if err != nil {
			return nil, err
		}
		return asSource(NewRegistryKeySource(keys))

	case definitions.TypeIndicatorWindowsRegistryValue:
		pairs, err := keyValuePairs(attributes["key_value_pairs"])
		if err != nil {
			return nil, err
		}
		return asSource(NewRegistryValueSource(pairs))

	case definitions.TypeIndicatorWMIQuery:
		query, err := optionalString(attributes, "query")
		if err != nil {
			return nil, err
		}
		return asSource(NewWMIQuerySource(query))

	default:
		return nil, Errorf("", "unsupported source type: %s (supported: %s)",
			typeIndicator, strings.Join(sortedIndicators(), ", "))
	}
}

func asSource(src Source, err error) (Source, error) {
	if err != nil {
		return nil, err
	}
	return src, nil
}

// stringList returns the list stored under key. Absent values yield nil; a
// present empty list yields an empty, non-nil slice.
func stringList(attributes map[string]any, key string) ([]string, error) {
	raw, ok := attributes[key]
	if !ok || raw == nil {
		return nil, nil
	}
	return StringList(key, raw)
}

// StringList converts a decoded list value into a slice of strings.
func StringList(key string, raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, Errorf("", "%s must be a list of strings, got: %v", key, raw)
	}
	values, ok := slice.ConvertToSliceOfT[string](items)
	if !ok {
		return nil, Errorf("", "%s must be a list of strings, got: %v", key, raw)
	}
	return values, nil
}

func optionalString(attributes map[string]any, key string) (string, error) {
	raw, ok := attributes[key]
	if !ok || raw == nil {
		return "", nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", Errorf("", "%s must be a string, got: %v", key, raw)
	}
	return value, nil
}

func keyValuePairs(raw any) ([]KeyValuePair, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, Errorf("", "key_value_pairs must be a list")
	}

	pairs := make([]KeyValuePair, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, Errorf("", "key_value_pair must be a mapping")
		}

		keys := slice.SortedKeys(entry)
		if len(keys) != 2 || keys[0] != "key" || keys[1] != "value" {
			return nil, Errorf("", `key_value_pair missing "key" and "value" keys, got: %s`,
				strings.Join(keys, ", "))
		}

		key, keyOK := entry["key"].(string)
		value, valueOK := entry["value"].(string)
		if !keyOK || !valueOK {
			return nil, Errorf("", "key_value_pair key and value must be strings")
		}
		pairs = append(pairs, KeyValuePair{Key: key, Value: value})
	}
	return pairs, nil
}

// Compile-time checks that every variant satisfies Source.
var (
	_ Source = ArtifactSource{}
	_ Source = FileSource{}
	_ Source = PathSource{}
	_ Source = CommandSource{}
	_ Source = RegistryKeySource{}
	_ Source = RegistryValueSource{}
	_ Source = WMIQuerySource{}
)

func sortedIndicators() []string {
	names := make([]string, 0, len(definitions.TypeIndicators))
	for _, ti := range definitions.TypeIndicators {
		names = append(names, string(ti))
	}
	sort.Strings(names)
	return names
}
