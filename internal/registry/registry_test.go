package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/open-edge-platform/artifact-validator/internal/artifact"
)

func TestRegister(t *testing.T) {
	r := New()
	first := artifact.NewBuilder("Foo", "First definition.").Build()
	second := artifact.NewBuilder("Foo", "Second definition.").Build()
	other := artifact.NewBuilder("Bar", "Other definition.").Build()

	require.NoError(t, r.Register(first))
	require.NoError(t, r.Register(other))

	err := r.Register(second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, artifact.ErrDuplicateName))

	var dup *artifact.DuplicateNameError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "Foo", dup.Name)

	got, ok := r.Get("Foo")
	require.True(t, ok)
	assert.Same(t, first, got, "a duplicate must not replace the registered definition")
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"Bar", "Foo"}, r.Names())

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "Bar", defs[0].Name)
	assert.Equal(t, "Foo", defs[1].Name)

	_, ok = r.Get("Missing")
	assert.False(t, ok)
}

func TestNew_Empty(t *testing.T) {
	r := New()
	assert.Zero(t, r.Len())
	assert.Empty(t, r.Names())
	assert.Empty(t, r.Definitions())
}

// Registering any sequence of names succeeds exactly once per distinct name.
func TestRegister_DuplicateProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOf(rapid.SampledFrom([]string{"Foo", "Bar", "Baz", "Qux"})).Draw(t, "names")

		r := New()
		distinct := map[string]bool{}
		successes, duplicates := 0, 0
		for _, name := range names {
			err := r.Register(artifact.NewBuilder(name, "desc").Build())
			switch {
			case err == nil:
				successes++
			case errors.Is(err, artifact.ErrDuplicateName):
				duplicates++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
			distinct[name] = true
		}

		if successes != len(distinct) {
			t.Fatalf("expected %d successful registrations, got %d", len(distinct), successes)
		}
		if duplicates != len(names)-len(distinct) {
			t.Fatalf("expected %d duplicates, got %d", len(names)-len(distinct), duplicates)
		}
		if r.Len() != len(distinct) {
			t.Fatalf("registry holds %d definitions, want %d", r.Len(), len(distinct))
		}
	})
}
