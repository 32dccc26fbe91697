package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/open-edge-platform/artifact-validator/internal/config/schema"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"
)

const (
	artifactSchemaName = "artifact-definition.schema.json"
	providerSchemaName = "provider-definition.schema.json"
	configSchemaName   = "artifact-validator-config.schema.json"
	headerRef          = "#/$defs/Header"
	providerRef        = "#/$defs/Provider"
)

// ValidateAgainstSchema compiles the given schema bytes and runs it against
// the JSON in data.  The `name` is only used to identify the schema in errors.
func ValidateAgainstSchema(name string, schemaBytes, data []byte, ref string) error {
	comp := jsonschema.NewCompiler()
	if err := comp.AddResource(name, bytes.NewReader(schemaBytes)); err != nil {
		return fmt.Errorf("loading schema %q: %w", name, err)
	}

	// If ref is empty we compile the root; otherwise compile the subschema.
	target := name
	if ref != "" {
		switch {
		case strings.HasPrefix(ref, "#"):
			target = name + ref
		default:
			target = name + "#" + ref
		}
	}
	sch, err := comp.Compile(target)
	if err != nil {
		return fmt.Errorf("compiling schema %q: %w", name, err)
	}

	// unmarshal into interface{} so the validator can walk it
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON for %q: %w", name, err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation against %q failed: %w", name, err)
	}
	return nil
}

// ValidateArtifactJSON runs the artifact definition schema against one document
func ValidateArtifactJSON(data []byte) error {
	return ValidateAgainstSchema(artifactSchemaName, schema.ArtifactDefinitionSchema, data, "")
}

// ValidateProviderHeaderJSON checks the header document of a providers file
func ValidateProviderHeaderJSON(data []byte) error {
	return ValidateAgainstSchema(providerSchemaName, schema.ProviderDefinitionSchema, data, headerRef)
}

// ValidateProviderJSON checks one provider entry
func ValidateProviderJSON(data []byte) error {
	return ValidateAgainstSchema(providerSchemaName, schema.ProviderDefinitionSchema, data, providerRef)
}

// ValidateConfigJSON runs the config schema against data
func ValidateConfigJSON(data []byte) error {
	return ValidateAgainstSchema(configSchemaName, schema.ConfigSchema, data, "")
}

// ValidateConfigYAML converts YAML config data to JSON and validates it
func ValidateConfigYAML(data []byte) error {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("converting config YAML to JSON: %w", err)
	}
	return ValidateConfigJSON(jsonData)
}
