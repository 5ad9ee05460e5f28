/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package payload

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// reflector is wired with the defaults we need for tool parameter schemas:
// inline definitions (no $ref indirection) and required-by-default fields
// driven by jsonschema struct tags.
var reflector = jsonschema.Reflector{
	RequiredFromJSONSchemaTags: true,
	ExpandedStruct:             true,
	AllowAdditionalProperties:  true,
	DoNotReference:             true,
}

// SchemaFor derives a ToolSchema whose Parameters are the reflected JSON
// schema of T. Use it to declare tools from plain Go argument structs instead
// of hand-writing schema documents.
func SchemaFor[T any](name, description string) (ToolSchema, error) {
	var zero T
	raw, err := json.Marshal(reflector.Reflect(&zero))
	if err != nil {
		return ToolSchema{}, err
	}
	ts := ToolSchema{
		Name:       name,
		Parameters: raw,
		Strict:     true,
	}
	if description != "" {
		ts.Description = &description
	}
	return ts, nil
}
