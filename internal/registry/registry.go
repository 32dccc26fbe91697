// Package registry accumulates artifact definitions keyed by name.
package registry

import (
	"github.com/open-edge-platform/artifact-validator/internal/artifact"
	"github.com/open-edge-platform/artifact-validator/internal/utils/slice"
)

// Registry maps definition names to definitions. It has a single owner and
// is not safe for concurrent use.
type Registry struct {
	definitions map[string]*artifact.Definition
}

func New() *Registry {
	return &Registry{definitions: make(map[string]*artifact.Definition)}
}

// Register stores def under its name. A name that is already registered
// yields a *artifact.DuplicateNameError and leaves the registry unchanged.
func (r *Registry) Register(def *artifact.Definition) error {
	if _, exists := r.definitions[def.Name]; exists {
		return &artifact.DuplicateNameError{Name: def.Name}
	}
	r.definitions[def.Name] = def
	return nil
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (*artifact.Definition, bool) {
	def, ok := r.definitions[name]
	return def, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	return slice.SortedKeys(r.definitions)
}

func (r *Registry) Len() int {
	return len(r.definitions)
}

// Definitions returns the registered definitions ordered by name.
func (r *Registry) Definitions() []*artifact.Definition {
	names := r.Names()
	defs := make([]*artifact.Definition, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.definitions[name])
	}
	return defs
}
