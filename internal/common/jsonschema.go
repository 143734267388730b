package common

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MustCompileSchema compiles a schema document known at build time. It panics
// on a malformed document, so call it from package-level vars.
func MustCompileSchema(url string, doc []byte) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(doc)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", url, err))
	}
	s, err := compiler.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", url, err))
	}
	return s
}

// ValidateJSON decodes data and checks it against s.
func ValidateJSON(s *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("json does not match %s: %w", s.Location, err)
	}
	return nil
}
