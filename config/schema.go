package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// Schemas maps each config kind to its JSON schema.
var Schemas = map[string]*jsonschema.Schema{
	"rig":  jsonschema.Reflect(&Rig{}),
	"clip": jsonschema.Reflect(&Clip{}),
}

// SchemaJSON returns the indented JSON schema of a config kind.
func SchemaJSON(kind string) ([]byte, error) {
	s, ok := Schemas[kind]
	if !ok {
		return nil, errors.Errorf("unknown config kind %q", kind)
	}
	return json.MarshalIndent(s, "", "  ")
}
