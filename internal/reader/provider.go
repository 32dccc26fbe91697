package reader

import (
	"fmt"
	"io"
	"iter"

	"github.com/open-edge-platform/artifact-validator/internal/artifact"
	"github.com/open-edge-platform/artifact-validator/internal/config/validate"
	"github.com/open-edge-platform/artifact-validator/internal/definitions"
)

// ProviderReader reads provider definition files. The first document of a
// file is a header declaring the format version and definition type; every
// following document is a provider.
type ProviderReader struct {
	opts options
}

func NewProviderReader(opts ...Option) *ProviderReader {
	return &ProviderReader{opts: newOptions(opts)}
}

func (r *ProviderReader) readMetadata(record Record) error {
	if record == nil {
		return artifact.Errorf("", "missing YAML definition")
	}

	if r.opts.strict {
		if err := checkRecord("header", record, validate.ValidateProviderHeaderJSON); err != nil {
			return err
		}
	}

	formatVersion := record["_format_version"]
	if version, ok := formatVersion.(int); !ok || version != definitions.ProviderFormatVersion {
		return artifact.Errorf("", "unsupported format version: %v", formatVersion)
	}

	definitionType := record["_definition_type"]
	if definitionType != definitions.ProviderDefinitionType {
		return artifact.Errorf("", "unsupported definition type: %v", definitionType)
	}
	return nil
}

// ReadRecord turns one provider document into a provider definition.
func (r *ProviderReader) ReadRecord(record Record) (*artifact.Provider, error) {
	if record == nil {
		return nil, artifact.Errorf("", "missing YAML definition")
	}

	name, _ := record["name"].(string)
	if name == "" {
		return nil, artifact.Errorf("", "invalid provider definition missing name")
	}

	description, _ := record["doc"].(string)
	if description == "" {
		return nil, artifact.Errorf(name, "invalid provider definition: %s missing description", name)
	}

	if r.opts.strict {
		if err := checkRecord(name, record, validate.ValidateProviderJSON); err != nil {
			return nil, err
		}
	}

	provider := artifact.NewProvider(name, description)
	urls, err := stringListField(record, "urls", name)
	if err != nil {
		return nil, err
	}
	if urls != nil {
		provider.URLs = urls
	}
	return provider, nil
}

// ReadFileObject validates the header and yields every provider in rd.
func (r *ProviderReader) ReadFileObject(rd io.Reader) iter.Seq2[*artifact.Provider, error] {
	return func(yield func(*artifact.Provider, error) bool) {
		header := true
		for record, err := range r.opts.decoder.Records(rd) {
			if err != nil {
				yield(nil, err)
				return
			}
			if header {
				header = false
				if err := r.readMetadata(record); err != nil {
					yield(nil, err)
					return
				}
				continue
			}

			provider, err := r.ReadRecord(record)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(provider, nil) {
				return
			}
		}
		if header {
			yield(nil, artifact.Errorf("", "missing provider definitions header"))
		}
	}
}

// ReadFile yields the providers stored in the file at path.
func (r *ProviderReader) ReadFile(path string) iter.Seq2[*artifact.Provider, error] {
	return func(yield func(*artifact.Provider, error) bool) {
		file, err := openDefinitionsFile(path)
		if err != nil {
			yield(nil, err)
			return
		}
		defer file.Close()

		for provider, err := range r.ReadFileObject(file) {
			if err != nil {
				yield(nil, fmt.Errorf("%s: %w", path, err))
				return
			}
			if !yield(provider, nil) {
				return
			}
		}
	}
}
