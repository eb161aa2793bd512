package payload

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[Format]*jsonschema.Schema
	schemasErr  error
)

// SchemaErrors lists every violation found in one document.
type SchemaErrors []error

func (se SchemaErrors) Error() string {
	var sb strings.Builder
	for i, err := range se {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

func compileSchemas() {
	compiler := jsonschema.NewCompiler()
	schemas = make(map[Format]*jsonschema.Schema)

	for _, f := range Formats() {
		name := f.String() + ".json"
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemasErr = fmt.Errorf("reading %s schema: %w", f, err)
			return
		}
		if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
			schemasErr = fmt.Errorf("invalid %s schema: %w", f, err)
			return
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			schemasErr = fmt.Errorf("invalid %s schema: %w", f, err)
			return
		}
		schemas[f] = schema
	}
}

// Validate checks an encoded payload against the schema of its format.
// A document that violates the schema yields SchemaErrors.
func Validate(f Format, body []byte) error {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return schemasErr
	}

	schema, ok := schemas[f]
	if !ok {
		return fmt.Errorf("no schema for %s", f)
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return flatten(verr)
		}
		return SchemaErrors{err}
	}
	return nil
}

// ValidatePayload encodes p and validates it.
func ValidatePayload(p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", p.Format(), err)
	}
	return Validate(p.Format(), body)
}

func flatten(err *jsonschema.ValidationError) SchemaErrors {
	var out SchemaErrors
	if err.Message != "" && len(err.Causes) == 0 {
		out = append(out, fmt.Errorf("%s: %s", locationOrRoot(err.InstanceLocation), err.Message))
	}
	for _, cause := range err.Causes {
		out = append(out, flatten(cause)...)
	}
	if len(out) == 0 {
		out = append(out, err)
	}
	return out
}

func locationOrRoot(loc string) string {
	if loc == "" {
		return "/"
	}
	return loc
}
