// Package tools holds the tool registry researchers dispatch through and the
// capabilities registered in it.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
)

// Capability is an invocable tool backend. Arguments arrive as decoded JSON.
type Capability interface {
	Invoke(ctx context.Context, args map[string]interface{}) (string, error)
}

// CapabilityFunc adapts a function to Capability.
type CapabilityFunc func(ctx context.Context, args map[string]interface{}) (string, error)

func (f CapabilityFunc) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	return f(ctx, args)
}

// Descriptor advertises one registered tool to the model.
type Descriptor struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type entry struct {
	desc Descriptor
	cap  Capability
}

// Registry maps tool names to capabilities. It is populated at worker start
// and only read afterwards.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	byName  map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds a capability under name.
func (r *Registry) Register(name, description string, c Capability) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("tool name cannot be empty")
	}
	if c == nil {
		return fmt.Errorf("tool %q: nil capability", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.byName[name] = len(r.entries)
	r.entries = append(r.entries, entry{
		desc: Descriptor{ID: len(r.entries), Name: name, Description: description},
		cap:  c,
	})
	return nil
}

// Describe lists registered tools in registration order.
func (r *Registry) Describe() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.desc
	}
	return out
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byName[name]
	return ok
}

// Invoke runs the named capability. An unregistered name fails with
// models.ErrUnknownTool; a capability failure is returned as
// *models.ToolExecutionError.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	r.mu.RLock()
	idx, ok := r.byName[name]
	var c Capability
	if ok {
		c = r.entries[idx].cap
	}
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownTool, name)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	out, err := c.Invoke(ctx, args)
	if err != nil {
		return "", &models.ToolExecutionError{Tool: name, Err: err}
	}
	return out, nil
}

// FormatInstructions renders descriptors as the <tool_info> blocks embedded in
// agent system prompts.
func FormatInstructions(descs []Descriptor) string {
	var b strings.Builder
	for _, d := range descs {
		b.WriteString("\n<tool_info>\n")
		fmt.Fprintf(&b, "<tool_id> %d <tool_id>\n", d.ID)
		fmt.Fprintf(&b, "<tool_name> %s <tool_name>\n", d.Name)
		fmt.Fprintf(&b, "<tool_description>%s<tool_description>\n", d.Description)
		b.WriteString("<tool_info>\n")
	}
	return b.String()
}
