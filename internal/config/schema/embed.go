package schema

import _ "embed"

//go:embed artifact-definition.schema.json
var ArtifactDefinitionSchema []byte

//go:embed provider-definition.schema.json
var ProviderDefinitionSchema []byte

//go:embed artifact-validator-config.schema.json
var ConfigSchema []byte
