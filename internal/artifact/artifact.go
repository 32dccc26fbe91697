// Package artifact models artifact definitions, their source clauses and the
// provider definitions an artifact may claim to supply.
package artifact

import (
	"slices"

	"github.com/open-edge-platform/artifact-validator/internal/definitions"
)

// Definition is a named, documented description of where forensic data
// resides. Provides holds provider names; they are resolved by the validator,
// never by the model.
type Definition struct {
	Name        string
	Description string
	Sources     []Source
	Labels      []string
	SupportedOS []string
	Provides    []string
	Conditions  []string
	URLs        []string
}

// SourcesOf returns the sources of d with the given type indicator.
func (d *Definition) SourcesOf(typeIndicator definitions.TypeIndicator) []Source {
	var out []Source
	for _, src := range d.Sources {
		if src.TypeIndicator() == typeIndicator {
			out = append(out, src)
		}
	}
	return out
}

// Builder accumulates the parts of a Definition while a document record is
// decoded. Nothing is visible to other code until Build is called.
type Builder struct {
	def Definition
}

// NewBuilder starts a definition with its identity fields.
func NewBuilder(name, description string) *Builder {
	return &Builder{def: Definition{Name: name, Description: description}}
}

// Name returns the name the builder was started with.
func (b *Builder) Name() string { return b.def.Name }

func (b *Builder) AddSource(src Source) *Builder {
	b.def.Sources = append(b.def.Sources, src)
	return b
}

func (b *Builder) SetLabels(labels []string) *Builder {
	b.def.Labels = labels
	return b
}

func (b *Builder) SetSupportedOS(supportedOS []string) *Builder {
	b.def.SupportedOS = supportedOS
	return b
}

func (b *Builder) SetProvides(provides []string) *Builder {
	b.def.Provides = provides
	return b
}

func (b *Builder) SetConditions(conditions []string) *Builder {
	b.def.Conditions = conditions
	return b
}

func (b *Builder) SetURLs(urls []string) *Builder {
	b.def.URLs = urls
	return b
}

// Build returns the completed definition. The returned value shares no slice
// storage with the builder, and nil lists are normalised to empty ones.
func (b *Builder) Build() *Definition {
	return &Definition{
		Name:        b.def.Name,
		Description: b.def.Description,
		Sources:     cloneOrEmpty(b.def.Sources),
		Labels:      cloneOrEmpty(b.def.Labels),
		SupportedOS: cloneOrEmpty(b.def.SupportedOS),
		Provides:    cloneOrEmpty(b.def.Provides),
		Conditions:  cloneOrEmpty(b.def.Conditions),
		URLs:        cloneOrEmpty(b.def.URLs),
	}
}

func cloneOrEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return slices.Clone(in)
}
