package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const methodItems = `{"type": "string", "enum": ["frequency", "entropy", "sentiment", "pos"]}`

const analyzeRequestSchema = `{
  "type": "object",
  "required": ["text", "methods"],
  "additionalProperties": false,
  "properties": {
    "text": {"type": "string"},
    "methods": {"type": "array", "uniqueItems": true, "items": ` + methodItems + `}
  }
}`

const textRequestSchema = `{
  "type": "object",
  "required": ["text"],
  "additionalProperties": false,
  "properties": {"text": {"type": "string"}}
}`

const methodsRequestSchema = `{
  "type": "object",
  "required": ["methods"],
  "additionalProperties": false,
  "properties": {
    "methods": {"type": "array", "uniqueItems": true, "items": ` + methodItems + `}
  }
}`

// requestValidator checks JSON request bodies against a compiled schema.
type requestValidator struct {
	schema *jsonschema.Schema
}

func newRequestValidator(name, schemaJSON string) (*requestValidator, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s schema: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	loc := name + ".json"
	if err := c.AddResource(loc, doc); err != nil {
		return nil, fmt.Errorf("add %s schema: %w", name, err)
	}
	schema, err := c.Compile(loc)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return &requestValidator{schema: schema}, nil
}

func mustValidator(name, schemaJSON string) *requestValidator {
	v, err := newRequestValidator(name, schemaJSON)
	if err != nil {
		panic(err)
	}
	return v
}

var (
	analyzeValidator = mustValidator("analyze_request", analyzeRequestSchema)
	textValidator    = mustValidator("text_request", textRequestSchema)
	methodsValidator = mustValidator("methods_request", methodsRequestSchema)
)

// requestError carries the HTTP status for a rejected body.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

// decode reads the body, validates it and unmarshals it into dst.
func (v *requestValidator) decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &requestError{status: http.StatusRequestEntityTooLarge, msg: "request body too large"}
		}
		return &requestError{status: http.StatusBadRequest, msg: "read body: " + err.Error()}
	}
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return &requestError{status: http.StatusBadRequest, msg: "invalid JSON: " + err.Error()}
	}
	if err := v.schema.Validate(parsed); err != nil {
		return &requestError{status: http.StatusBadRequest, msg: "schema validation failed: " + err.Error()}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &requestError{status: http.StatusBadRequest, msg: "decode body: " + err.Error()}
	}
	return nil
}
