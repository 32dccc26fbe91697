// Package reader decodes artifact and provider definition documents into
// validated model values.
package reader

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/open-edge-platform/artifact-validator/internal/artifact"
	"github.com/open-edge-platform/artifact-validator/internal/config/validate"
	"github.com/open-edge-platform/artifact-validator/internal/definitions"
	"github.com/open-edge-platform/artifact-validator/internal/utils/logger"
	"github.com/open-edge-platform/artifact-validator/internal/utils/security"
	"github.com/open-edge-platform/artifact-validator/internal/utils/slice"
)

type options struct {
	vocabulary definitions.Vocabulary
	decoder    Decoder
	strict     bool
}

// Option configures a reader.
type Option func(*options)

// WithVocabulary sets the label and supported OS vocabularies.
func WithVocabulary(v definitions.Vocabulary) Option {
	return func(o *options) { o.vocabulary = v }
}

// WithDecoder replaces the YAML decoder.
func WithDecoder(d Decoder) Option {
	return func(o *options) { o.decoder = d }
}

// WithStrict enables JSON schema and string sanity checks of every record
// before the semantic rules run.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

func newOptions(opts []Option) options {
	o := options{
		vocabulary: definitions.DefaultVocabulary(),
		decoder:    YAMLDecoder{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ArtifactReader reads artifact definitions.
type ArtifactReader struct {
	opts options
}

func NewArtifactReader(opts ...Option) *ArtifactReader {
	return &ArtifactReader{opts: newOptions(opts)}
}

// ReadRecord turns one decoded record into a complete definition.
func (r *ArtifactReader) ReadRecord(record Record) (*artifact.Definition, error) {
	if record == nil {
		return nil, artifact.Errorf("", "missing YAML definition")
	}

	name, _ := record["name"].(string)
	if name == "" {
		return nil, artifact.Errorf("", "invalid artifact definition missing name")
	}

	description, _ := record["doc"].(string)
	if description == "" {
		return nil, artifact.Errorf(name, "invalid artifact definition: %s missing description", name)
	}

	if isNonEmpty(record["collectors"]) {
		return nil, artifact.Errorf(name,
			"invalid artifact definition: %s still uses collectors, a removed field", name)
	}

	if r.opts.strict {
		if err := checkRecord(name, record, validate.ValidateArtifactJSON); err != nil {
			return nil, err
		}
	}

	b := artifact.NewBuilder(name, description)

	if err := r.readSources(record, b); err != nil {
		return nil, err
	}

	conditions, err := stringListField(record, "conditions", name)
	if err != nil {
		return nil, err
	}
	provides, err := stringListField(record, "provides", name)
	if err != nil {
		return nil, err
	}
	labels, err := r.readLabels(record, name)
	if err != nil {
		return nil, err
	}
	supportedOS, err := r.readSupportedOS(record, name)
	if err != nil {
		return nil, err
	}
	urls, err := stringListField(record, "urls", name)
	if err != nil {
		return nil, err
	}

	return b.SetConditions(conditions).
		SetProvides(provides).
		SetLabels(labels).
		SetSupportedOS(supportedOS).
		SetURLs(urls).
		Build(), nil
}

func (r *ArtifactReader) readSources(record Record, b *artifact.Builder) error {
	name := b.Name()

	raw, ok := record["sources"]
	if !ok || raw == nil {
		return nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return artifact.Errorf(name, "invalid artifact definition: %s sources must be a list", name)
	}

	for index, item := range entries {
		entry, ok := item.(map[string]any)
		if !ok {
			return artifact.Errorf(name, "invalid artifact definition: %s source %d is not a mapping", name, index)
		}

		typeIndicator, _ := entry["type"].(string)
		if typeIndicator == "" {
			return artifact.Errorf(name, "invalid artifact definition: %s source %d missing type", name, index)
		}

		var attributes map[string]any
		if rawAttributes, present := entry["attributes"]; present && rawAttributes != nil {
			attributes, ok = rawAttributes.(map[string]any)
			if !ok {
				return artifact.Errorf(name,
					"invalid artifact definition: %s source %d attributes must be a mapping", name, index)
			}
		}

		src, err := artifact.NewSource(definitions.TypeIndicator(typeIndicator), attributes)
		if err != nil {
			return &artifact.FormatError{
				Name: name,
				Msg:  fmt.Sprintf("invalid artifact definition: %s", name),
				Err:  err,
			}
		}

		// TODO: reject these once the collector leftovers are removed from
		// the published definitions, like collectors already is.
		common, err := r.readSourceCommon(entry, name)
		if err != nil {
			return err
		}
		b.AddSource(artifact.WithCommon(src, common))
	}
	return nil
}

func (r *ArtifactReader) readSourceCommon(entry map[string]any, name string) (artifact.SourceCommon, error) {
	conditions, err := stringListField(entry, "conditions", name)
	if err != nil {
		return artifact.SourceCommon{}, err
	}
	returnedTypes, err := stringListField(entry, "returned_types", name)
	if err != nil {
		return artifact.SourceCommon{}, err
	}
	supportedOS, err := r.readSupportedOS(entry, name)
	if err != nil {
		return artifact.SourceCommon{}, err
	}
	return artifact.SourceCommon{
		Conditions:    conditions,
		ReturnedTypes: returnedTypes,
		SupportedOS:   supportedOS,
	}, nil
}

func (r *ArtifactReader) readLabels(record Record, name string) ([]string, error) {
	labels, err := stringListField(record, "labels", name)
	if err != nil {
		return nil, err
	}
	if undefined := slice.Missing(labels, r.opts.vocabulary.IsLabel); len(undefined) > 0 {
		return nil, artifact.Errorf(name, "artifact definition: %s label(s): %s not defined",
			name, strings.Join(undefined, ", "))
	}
	return labels, nil
}

// readSupportedOS reads supported_os from a definition or a source entry. An
// empty list means no restriction; a value that is not a list is an error.
func (r *ArtifactReader) readSupportedOS(values map[string]any, name string) ([]string, error) {
	raw, ok := values["supported_os"]
	if !ok || raw == nil {
		return nil, nil
	}
	supportedOS, err := artifact.StringList("supported_os", raw)
	if err != nil {
		return nil, &artifact.FormatError{Name: name, Msg: fmt.Sprintf("artifact definition: %s", name), Err: err}
	}
	if undefined := slice.Missing(supportedOS, r.opts.vocabulary.IsSupportedOS); len(undefined) > 0 {
		return nil, artifact.Errorf(name, "artifact definition: %s supported operating system: %s not defined",
			name, strings.Join(undefined, ", "))
	}
	return supportedOS, nil
}

// ReadFileObject yields the definitions of every document in rd. Iteration
// stops after the first error, which is yielded to the caller.
func (r *ArtifactReader) ReadFileObject(rd io.Reader) iter.Seq2[*artifact.Definition, error] {
	return func(yield func(*artifact.Definition, error) bool) {
		previous := ""
		for record, err := range r.opts.decoder.Records(rd) {
			var def *artifact.Definition
			if err == nil {
				def, err = r.ReadRecord(record)
			}
			if err != nil {
				yield(nil, withLocation(previous, err))
				return
			}
			previous = def.Name
			if !yield(def, nil) {
				return
			}
		}
	}
}

// ReadFile yields the definitions stored in the file at path. The file is
// closed when iteration ends, including when the caller stops early.
func (r *ArtifactReader) ReadFile(path string) iter.Seq2[*artifact.Definition, error] {
	return func(yield func(*artifact.Definition, error) bool) {
		file, err := openDefinitionsFile(path)
		if err != nil {
			yield(nil, err)
			return
		}
		defer file.Close()

		for def, err := range r.ReadFileObject(file) {
			if err != nil {
				yield(nil, fmt.Errorf("%s: %w", path, err))
				return
			}
			if !yield(def, nil) {
				return
			}
		}
	}
}

// ReadDirectory yields the definitions of every matching file in dir. Sub
// directories are not visited.
func (r *ArtifactReader) ReadDirectory(dir string, opts DirectoryOptions) iter.Seq2[*artifact.Definition, error] {
	return func(yield func(*artifact.Definition, error) bool) {
		files, err := opts.Files(dir)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, path := range files {
			for def, err := range r.ReadFile(path) {
				if !yield(def, err) || err != nil {
					return
				}
			}
		}
	}
}

// DirectoryOptions selects the files read from a directory.
type DirectoryOptions struct {
	// Extension without the leading dot. Empty means definitions.DefaultExtension,
	// "*" means every file.
	Extension string
	// IgnoreList holds base names or full paths of files to skip.
	IgnoreList []string
}

// Files returns the matching regular files of dir in lexical order.
func (o DirectoryOptions) Files(dir string) ([]string, error) {
	extension := strings.TrimPrefix(o.Extension, ".")
	if extension == "" {
		extension = definitions.DefaultExtension
	}

	pattern := filepath.Join(dir, "*")
	if extension != "*" {
		pattern = filepath.Join(dir, "*."+extension)
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", pattern, err)
	}

	files := make([]string, 0, len(matches))
	for _, path := range matches {
		if slice.Contains(o.IgnoreList, path) || slice.Contains(o.IgnoreList, filepath.Base(path)) {
			logger.Logger().Debugf("Ignoring definitions file: %s", path)
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("accessing %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

func openDefinitionsFile(path string) (*os.File, error) {
	file, err := security.SafeOpenFile(path, security.ResolveSymlinks)
	if err != nil {
		return nil, fmt.Errorf("opening definitions file %s: %w", path, err)
	}
	return file, nil
}

// checkRecord runs the schema check and the string sanity walker on a record.
func checkRecord(name string, record Record, check func([]byte) error) error {
	if err := security.ValidateStructStrings(record, security.DefaultLimits()); err != nil {
		return &artifact.FormatError{Name: name, Msg: fmt.Sprintf("definition: %s has invalid strings", name), Err: err}
	}
	data, err := json.Marshal(record)
	if err != nil {
		return &artifact.FormatError{Name: name, Msg: fmt.Sprintf("definition: %s cannot be converted to JSON", name), Err: err}
	}
	if err := check(data); err != nil {
		return &artifact.FormatError{Name: name, Msg: fmt.Sprintf("definition: %s does not match schema", name), Err: err}
	}
	return nil
}

func withLocation(previous string, err error) error {
	if previous == "" {
		return err
	}
	return fmt.Errorf("after definition %s: %w", previous, err)
}

func stringListField(values map[string]any, key, name string) ([]string, error) {
	raw, ok := values[key]
	if !ok || raw == nil {
		return nil, nil
	}
	list, err := artifact.StringList(key, raw)
	if err != nil {
		return nil, &artifact.FormatError{Name: name, Msg: fmt.Sprintf("artifact definition: %s", name), Err: err}
	}
	return list, nil
}

func isNonEmpty(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case []any:
		return len(value) > 0
	case map[string]any:
		return len(value) > 0
	case string:
		return value != ""
	default:
		return true
	}
}
