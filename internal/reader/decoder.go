package reader

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"gopkg.in/yaml.v3"

	"github.com/open-edge-platform/artifact-validator/internal/artifact"
)

// Record is one decoded document: a mapping from key to scalar, list or
// nested mapping values.
type Record = map[string]any

// Decoder turns a byte stream into its documents, in document order.
type Decoder interface {
	Records(r io.Reader) iter.Seq2[Record, error]
}

// YAMLDecoder decodes multi-document YAML streams.
type YAMLDecoder struct{}

// Records yields one Record per YAML document and stops at the first error.
func (YAMLDecoder) Records(r io.Reader) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		dec := yaml.NewDecoder(r)
		for index := 0; ; index++ {
			var doc any
			err := dec.Decode(&doc)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, &artifact.FormatError{
					Msg: fmt.Sprintf("invalid YAML document %d", index),
					Err: err,
				})
				return
			}

			record, ok := doc.(map[string]any)
			switch {
			case doc == nil:
				yield(nil, artifact.Errorf("", "missing YAML definition in document %d", index))
				return
			case !ok:
				yield(nil, artifact.Errorf("", "YAML document %d is not a mapping", index))
				return
			}

			if !yield(record, nil) {
				return
			}
		}
	}
}
