package prompt

import "github.com/google/jsonschema-go/jsonschema"

// factSchema describes an object whose values are all strings.
func factSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Description:          "Fatos úteis para lembrar, chave para valor.",
		AdditionalProperties: &jsonschema.Schema{Type: "string"},
	}
}
