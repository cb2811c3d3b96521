// Package llm defines the structured-output model backend used by every agent
// and its OpenAI-compatible implementation.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
)

// Schema is a named JSON schema describing the object a call must return.
type Schema struct {
	Name       string
	Definition map[string]interface{}
}

// Backend performs a structured call: given messages and a schema it decodes
// a conforming object into out.
type Backend interface {
	StructuredCall(ctx context.Context, messages []models.Message, schema Schema, out any) error
}

var reflector = &jsonschema.Reflector{
	AllowAdditionalProperties: false,
	DoNotReference:            true,
	ExpandedStruct:            true,
}

// SchemaFor derives the schema of T from its json and jsonschema tags.
func SchemaFor[T any]() (Schema, error) {
	var zero T
	t := reflect.TypeOf(zero)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return Schema{}, fmt.Errorf("schema type must be a struct, got %v", t)
	}

	raw, err := json.Marshal(reflector.ReflectFromType(t))
	if err != nil {
		return Schema{}, fmt.Errorf("marshal schema for %s: %w", t.Name(), err)
	}
	var def map[string]interface{}
	if err := json.Unmarshal(raw, &def); err != nil {
		return Schema{}, fmt.Errorf("decode schema for %s: %w", t.Name(), err)
	}
	delete(def, "$schema")
	delete(def, "$id")
	return Schema{Name: t.Name(), Definition: def}, nil
}

// Call runs a structured call whose output type is T.
func Call[T any](ctx context.Context, b Backend, messages []models.Message) (T, error) {
	var out T
	schema, err := SchemaFor[T]()
	if err != nil {
		return out, &models.ModelBackendError{Op: "schema", Err: err}
	}
	if err := b.StructuredCall(ctx, messages, schema, &out); err != nil {
		return out, err
	}
	return out, nil
}

// decodeStructured parses a model reply into out. Replies wrapped in a
// markdown code fence are accepted.
func decodeStructured(content string, out any) error {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}
	if content == "" {
		return fmt.Errorf("empty structured response")
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("decode structured response: %w", err)
	}
	return nil
}
