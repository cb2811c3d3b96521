// Package llmtest provides a scripted llm.Backend for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/llm"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
)

// Responder produces the reply for one call. Returning a non-nil error fails
// the call.
type Responder func(messages []models.Message, schema llm.Schema) (any, error)

// Call records one StructuredCall invocation.
type Call struct {
	Messages []models.Message
	Schema   llm.Schema
}

// Backend replays responders keyed by schema name, in order per schema. The
// last responder for a schema repeats once the script runs out.
type Backend struct {
	mu      sync.Mutex
	scripts map[string][]Responder
	next    map[string]int
	calls   []Call
}

func New() *Backend {
	return &Backend{scripts: make(map[string][]Responder), next: make(map[string]int)}
}

// On appends responders for the named schema.
func (b *Backend) On(schema string, rs ...Responder) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts[schema] = append(b.scripts[schema], rs...)
	return b
}

// Reply is a Responder returning v.
func Reply(v any) Responder {
	return func([]models.Message, llm.Schema) (any, error) { return v, nil }
}

// Fail is a Responder returning err.
func Fail(err error) Responder {
	return func([]models.Message, llm.Schema) (any, error) { return nil, err }
}

// Calls returns a copy of the recorded calls.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// StructuredCall implements llm.Backend. The reply is round-tripped through
// JSON so out is populated exactly as a real backend would populate it.
func (b *Backend) StructuredCall(ctx context.Context, messages []models.Message, schema llm.Schema, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	b.calls = append(b.calls, Call{Messages: append([]models.Message(nil), messages...), Schema: schema})
	script := b.scripts[schema.Name]
	if len(script) == 0 {
		b.mu.Unlock()
		return &models.ModelBackendError{Op: "scripted", Err: fmt.Errorf("no script for schema %q", schema.Name)}
	}
	idx := b.next[schema.Name]
	if idx >= len(script) {
		idx = len(script) - 1
	}
	b.next[schema.Name] = idx + 1
	respond := script[idx]
	b.mu.Unlock()

	v, err := respond(messages, schema)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
