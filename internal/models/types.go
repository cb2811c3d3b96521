package models

import (
	"strings"
)

// Role identifies the author of a message in a conversation thread.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// ToolCall is a single invocation request emitted by the model. ID correlates
// the eventual ToolResult and is unique within its owning message.
type ToolCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// StringArg returns args[key] when it is a non-empty string.
func (c ToolCall) StringArg(key string) (string, bool) {
	if c.Args == nil {
		return "", false
	}
	v, ok := c.Args[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// ToolResult is the outcome of executing exactly one ToolCall.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}

// Message is one immutable entry of a conversation thread.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// Message converts the result into the tool message appended to a thread.
func (r ToolResult) Message() Message {
	return Message{Role: RoleTool, Content: r.Content, ToolCallID: r.ToolCallID, Name: r.Name}
}

// HasToolCalls reports whether the message requests any tool invocation.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// FilterMessages keeps messages whose role is one of roles, preserving order.
func FilterMessages(messages []Message, roles ...Role) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		for _, r := range roles {
			if m.Role == r {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// Contents returns the content of every message, in order.
func Contents(messages []Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Content)
	}
	return out
}

// Append returns a new thread with extra appended. The input slice is never
// written through, so earlier snapshots of a thread stay valid.
func Append(thread []Message, extra ...Message) []Message {
	out := make([]Message, 0, len(thread)+len(extra))
	out = append(out, thread...)
	return append(out, extra...)
}

// BufferString renders a conversation as "Human: ..." / "AI: ..." lines for
// prompts that embed the whole history as text.
func BufferString(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		var prefix string
		switch m.Role {
		case RoleUser:
			prefix = "Human"
		case RoleAssistant:
			prefix = "AI"
		case RoleSystem:
			prefix = "System"
		case RoleTool:
			prefix = "Tool"
		default:
			prefix = string(m.Role)
		}
		lines = append(lines, prefix+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
