package policy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	schemavalidator "github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema reflects the JSON schema of a kind from its record type.
func Schema(kind Kind) (*jsonschema.Schema, error) {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		ExpandedStruct: true,
		DoNotReference: true,
	}
	var s *jsonschema.Schema
	switch kind {
	case KindSecurityRule:
		s = r.Reflect(&SecurityRule{})
		s.Title = "Security rule"
		s.Description = "A security policy rule in exactly one folder, snippet or device."
	case KindAddress:
		s = r.Reflect(&Address{})
		s.Title = "Address"
		s.Description = "An address object in exactly one folder, snippet or device."
	default:
		return nil, fmt.Errorf("no schema for kind %q", kind)
	}
	return s, nil
}

// SchemaJSON returns the indented JSON schema of kind.
func SchemaJSON(kind Kind) ([]byte, error) {
	s, err := Schema(kind)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(s, "", "  ")
}

var (
	compiledMu sync.Mutex
	compiled   = make(map[Kind]*schemavalidator.Schema)
)

func compiledSchema(kind Kind) (*schemavalidator.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if s, ok := compiled[kind]; ok {
		return s, nil
	}

	raw, err := SchemaJSON(kind)
	if err != nil {
		return nil, err
	}
	url := string(kind) + ".schema.json"
	compiler := schemavalidator.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource for %s: %w", kind, err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("invalid schema for %s: %w", kind, err)
	}
	compiled[kind] = s
	return s, nil
}

// ValidateDocument checks one decoded record (as produced by encoding/json)
// against the schema of kind.
func ValidateDocument(kind Kind, doc interface{}) error {
	s, err := compiledSchema(kind)
	if err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		var ve *schemavalidator.ValidationError
		if errors.As(err, &ve) {
			return schemaErrors(ve)
		}
		return err
	}
	return nil
}

// schemaErrors flattens the cause tree of a schema failure into one entry per
// leaf, keyed by the offending field path.
func schemaErrors(ve *schemavalidator.ValidationError) ValidationErrors {
	var errs ValidationErrors
	var walk func(*schemavalidator.ValidationError)
	walk = func(e *schemavalidator.ValidationError) {
		if len(e.Causes) == 0 {
			field := strings.ReplaceAll(strings.TrimPrefix(e.InstanceLocation, "/"), "/", ".")
			errs.Add(field, e.Message)
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return errs
}
