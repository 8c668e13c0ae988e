package tool

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects the JSON schema of the input struct T. Fields without
// omitempty are required and unknown properties are rejected.
func SchemaFor[T any]() map[string]any {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	s := r.Reflect(new(T))

	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("tool: marshal schema for %T: %v", *new(T), err))
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("tool: decode schema for %T: %v", *new(T), err))
	}
	delete(out, "$schema")
	return out
}
