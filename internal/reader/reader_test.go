package reader

import (
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-edge-platform/artifact-validator/internal/artifact"
	"github.com/open-edge-platform/artifact-validator/internal/definitions"
)

const passwdDefinition = `name: LinuxPasswd
doc: Linux password file.
sources:
- type: FILE
  attributes:
    paths: ['/etc/passwd']
labels: [Users, Authentication]
supported_os: [Linux]
`

func readAll(t *testing.T, r *ArtifactReader, data string) ([]*artifact.Definition, error) {
	t.Helper()
	var defs []*artifact.Definition
	for def, err := range r.ReadFileObject(strings.NewReader(data)) {
		if err != nil {
			return defs, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func TestReadRecord_FileSource(t *testing.T) {
	r := NewArtifactReader()
	def, err := r.ReadRecord(Record{
		"name": "Test",
		"doc":  "desc",
		"sources": []any{
			map[string]any{"type": "FILE", "attributes": map[string]any{"paths": []any{"/etc/passwd"}}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Test", def.Name)
	require.Len(t, def.Sources, 1)
	src, ok := def.Sources[0].(artifact.FileSource)
	require.True(t, ok, "expected a FileSource, got %T", def.Sources[0])
	assert.Equal(t, []string{"/etc/passwd"}, src.Paths)
	assert.Equal(t, "/", src.Separator)
}

func TestReadRecord_RegistryValueSource(t *testing.T) {
	r := NewArtifactReader()
	record := func(pair map[string]any) Record {
		return Record{
			"name": "Test",
			"doc":  "desc",
			"sources": []any{
				map[string]any{
					"type":       "REGISTRY_VALUE",
					"attributes": map[string]any{"key_value_pairs": []any{pair}},
				},
			},
		}
	}

	def, err := r.ReadRecord(record(map[string]any{"key": `HKEY_LOCAL_MACHINE\X`, "value": "Y"}))
	require.NoError(t, err)
	src := def.Sources[0].(artifact.RegistryValueSource)
	assert.Equal(t, []artifact.KeyValuePair{{Key: `HKEY_LOCAL_MACHINE\X`, Value: "Y"}}, src.KeyValuePairs)

	_, err = r.ReadRecord(record(map[string]any{"key": `HKEY_LOCAL_MACHINE\X`}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, artifact.ErrFormat))

	var fe *artifact.FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "Test", fe.Name)
}

func TestReadRecord_Labels(t *testing.T) {
	r := NewArtifactReader()

	def, err := r.ReadRecord(Record{"name": "Test", "doc": "desc", "labels": []any{"Users", "Authentication", "Logs"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Users", "Authentication", "Logs"}, def.Labels, "label order must be preserved")

	_, err = r.ReadRecord(Record{"name": "Test", "doc": "desc", "labels": []any{"Users", "NotARealLabel", "Bogus"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, artifact.ErrFormat))
	assert.Contains(t, err.Error(), "NotARealLabel, Bogus")
}

func TestReadRecord_CustomVocabulary(t *testing.T) {
	r := NewArtifactReader(WithVocabulary(definitions.Vocabulary{
		Labels:      []string{"Forensics"},
		SupportedOS: []string{"Plan9"},
	}))

	def, err := r.ReadRecord(Record{
		"name":         "Test",
		"doc":          "desc",
		"labels":       []any{"Forensics"},
		"supported_os": []any{"Plan9"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Plan9"}, def.SupportedOS)

	_, err = r.ReadRecord(Record{"name": "Test", "doc": "desc", "supported_os": []any{"Linux"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supported operating system: Linux not defined")
}

func TestReadRecord_SupportedOS(t *testing.T) {
	r := NewArtifactReader()
	tests := []struct {
		name        string
		supportedOS any
		want        []string
		wantErr     string
	}{
		{name: "absent", supportedOS: nil, want: []string{}},
		{name: "empty list", supportedOS: []any{}, want: []string{}},
		{name: "list", supportedOS: []any{"Windows", "Darwin"}, want: []string{"Windows", "Darwin"}},
		{name: "bare string", supportedOS: "Windows", wantErr: "supported_os must be a list of strings"},
		{name: "undefined", supportedOS: []any{"BeOS"}, wantErr: "supported operating system: BeOS not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := Record{"name": "Test", "doc": "desc"}
			if tt.supportedOS != nil {
				record["supported_os"] = tt.supportedOS
			}
			def, err := r.ReadRecord(record)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, artifact.ErrFormat))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, def.SupportedOS)
		})
	}
}

func TestReadRecord_Rejections(t *testing.T) {
	r := NewArtifactReader()
	tests := []struct {
		name    string
		record  Record
		wantErr string
	}{
		{
			name:    "nil record",
			record:  nil,
			wantErr: "missing YAML definition",
		},
		{
			name:    "missing name",
			record:  Record{"doc": "desc"},
			wantErr: "invalid artifact definition missing name",
		},
		{
			name:    "missing doc",
			record:  Record{"name": "Test"},
			wantErr: "invalid artifact definition: Test missing description",
		},
		{
			name:    "collectors",
			record:  Record{"name": "Test", "doc": "desc", "collectors": []any{map[string]any{"type": "FILE"}}},
			wantErr: "still uses collectors",
		},
		{
			name:    "sources not a list",
			record:  Record{"name": "Test", "doc": "desc", "sources": "FILE"},
			wantErr: "sources must be a list",
		},
		{
			name:    "source without type",
			record:  Record{"name": "Test", "doc": "desc", "sources": []any{map[string]any{"attributes": map[string]any{}}}},
			wantErr: "source 0 missing type",
		},
		{
			name: "unknown source type",
			record: Record{"name": "Test", "doc": "desc", "sources": []any{
				map[string]any{"type": "DIRECTORY", "attributes": map[string]any{"paths": []any{"/tmp"}}},
			}},
			wantErr: "unsupported source type: DIRECTORY",
		},
		{
			name: "source missing mandatory attribute",
			record: Record{"name": "Test", "doc": "desc", "sources": []any{
				map[string]any{"type": "WMI", "attributes": map[string]any{}},
			}},
			wantErr: "invalid artifact definition: Test: missing query value",
		},
		{
			name: "attributes not a mapping",
			record: Record{"name": "Test", "doc": "desc", "sources": []any{
				map[string]any{"type": "FILE", "attributes": []any{"/etc"}},
			}},
			wantErr: "attributes must be a mapping",
		},
		{
			name:    "urls not a list",
			record:  Record{"name": "Test", "doc": "desc", "urls": "https://example.com"},
			wantErr: "urls must be a list of strings",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := r.ReadRecord(tt.record)
			require.Error(t, err)
			assert.Nil(t, def)
			assert.True(t, errors.Is(err, artifact.ErrFormat), "expected a format error, got %T", err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReadRecord_EmptyCollectorsAllowed(t *testing.T) {
	r := NewArtifactReader()
	_, err := r.ReadRecord(Record{"name": "Test", "doc": "desc", "collectors": []any{}})
	assert.NoError(t, err)
}

func TestReadRecord_SourceCommonFields(t *testing.T) {
	r := NewArtifactReader()
	def, err := r.ReadRecord(Record{
		"name": "Test",
		"doc":  "desc",
		"sources": []any{
			map[string]any{
				"type":           "COMMAND",
				"attributes":     map[string]any{"cmd": "/usr/bin/last", "args": []any{}},
				"conditions":     []any{"os_major_version >= 6"},
				"returned_types": []any{"LoginEvent"},
				"supported_os":   []any{"Linux"},
			},
		},
	})
	require.NoError(t, err)

	common := def.Sources[0].Common()
	assert.Equal(t, []string{"os_major_version >= 6"}, common.Conditions)
	assert.Equal(t, []string{"LoginEvent"}, common.ReturnedTypes)
	assert.Equal(t, []string{"Linux"}, common.SupportedOS)

	cmd := def.Sources[0].(artifact.CommandSource)
	assert.Equal(t, "/usr/bin/last", cmd.Cmd)
	assert.Empty(t, cmd.Args)
}

func TestReadFileObject_MultipleDocuments(t *testing.T) {
	data := passwdDefinition + `---
name: WindowsRunKeys
doc: Windows Run and RunOnce keys.
sources:
- type: REGISTRY_KEY
  attributes:
    keys:
    - 'HKEY_LOCAL_MACHINE\Software\Microsoft\Windows\CurrentVersion\Run\*'
labels: [Software]
supported_os: [Windows]
urls: ['https://example.com/run-keys']
`
	defs, err := readAll(t, NewArtifactReader(), data)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "LinuxPasswd", defs[0].Name)
	assert.Equal(t, "WindowsRunKeys", defs[1].Name)
	assert.Len(t, defs[1].SourcesOf(definitions.TypeIndicatorWindowsRegistryKey), 1)
	assert.Equal(t, []string{"https://example.com/run-keys"}, defs[1].URLs)
}

func TestReadFileObject_StopsAtFirstError(t *testing.T) {
	data := passwdDefinition + `---
name: Broken
doc: No sources of a known type.
sources:
- type: UNKNOWN
---
name: NeverRead
doc: Follows the broken definition.
`
	defs, err := readAll(t, NewArtifactReader(), data)
	require.Error(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "LinuxPasswd", defs[0].Name)
	assert.True(t, errors.Is(err, artifact.ErrFormat))
	assert.Contains(t, err.Error(), "after definition LinuxPasswd")
}

func TestReadFileObject_DecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "empty document", data: "---\n---\n", wantErr: "missing YAML definition in document 0"},
		{name: "list document", data: "- a\n- b\n", wantErr: "YAML document 0 is not a mapping"},
		{name: "invalid YAML", data: "name: [unterminated\n", wantErr: "invalid YAML document 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readAll(t, NewArtifactReader(), tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, artifact.ErrFormat))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReadFileObject_EmptyStream(t *testing.T) {
	defs, err := readAll(t, NewArtifactReader(), "")
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestReadFileObject_EarlyStop(t *testing.T) {
	data := passwdDefinition + "---\n" + strings.Replace(passwdDefinition, "LinuxPasswd", "Other", 1)
	count := 0
	for def, err := range NewArtifactReader().ReadFileObject(strings.NewReader(data)) {
		require.NoError(t, err)
		require.NotNil(t, def)
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestReadFileObject_Strict(t *testing.T) {
	r := NewArtifactReader(WithStrict(true))

	defs, err := readAll(t, r, passwdDefinition)
	require.NoError(t, err)
	assert.Len(t, defs, 1)

	_, err = readAll(t, r, passwdDefinition+"unexpected: true\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, artifact.ErrFormat))
	assert.Contains(t, err.Error(), "does not match schema")

	_, err = readAll(t, NewArtifactReader(), passwdDefinition+"unexpected: true\n")
	assert.NoError(t, err, "unknown keys are only rejected in strict mode")
}

func TestReadFileObject_CustomDecoder(t *testing.T) {
	r := NewArtifactReader(WithDecoder(recordsDecoder{
		{"name": "FromMemory", "doc": "Decoded without YAML."},
	}))
	defs, err := readAll(t, r, "ignored")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "FromMemory", defs[0].Name)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "linux.yaml", passwdDefinition)

	var names []string
	for def, err := range NewArtifactReader().ReadFile(path) {
		require.NoError(t, err)
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"LinuxPasswd"}, names)

	bad := writeFile(t, dir, "bad.yaml", "name: Bad\n")
	for _, err := range NewArtifactReader().ReadFile(bad) {
		require.Error(t, err)
		assert.Contains(t, err.Error(), bad)
		assert.Contains(t, err.Error(), "missing description")
	}

	for _, err := range NewArtifactReader().ReadFile(filepath.Join(dir, "missing.yaml")) {
		require.Error(t, err)
		assert.False(t, errors.Is(err, artifact.ErrFormat))
	}
}

func TestReadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", strings.Replace(passwdDefinition, "LinuxPasswd", "Second", 1))
	writeFile(t, dir, "a.yaml", passwdDefinition)
	writeFile(t, dir, "notes.txt", "not a definition")
	writeFile(t, dir, "skipped.yaml", "name: Skipped\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0700))

	var names []string
	opts := DirectoryOptions{IgnoreList: []string{"skipped.yaml"}}
	for def, err := range NewArtifactReader().ReadDirectory(dir, opts) {
		require.NoError(t, err)
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"LinuxPasswd", "Second"}, names)
}

func TestDirectoryOptions_Files(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", passwdDefinition)
	b := writeFile(t, dir, "b.yml", passwdDefinition)
	c := writeFile(t, dir, "c.txt", "text")

	files, err := DirectoryOptions{}.Files(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{a}, files)

	files, err = DirectoryOptions{Extension: ".yml"}.Files(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{b}, files)

	files, err = DirectoryOptions{Extension: "*", IgnoreList: []string{a}}.Files(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{b, c}, files)
}

type recordsDecoder []Record

func (d recordsDecoder) Records(_ io.Reader) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for _, record := range d {
			if !yield(record, nil) {
				return
			}
		}
	}
}
