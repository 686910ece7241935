// ABOUTME: Static single-entry tool catalog for the task_complete tool
// ABOUTME: Answers tools/list queries and validates tools/call targets

package mcp

import (
	"encoding/json"
	"errors"
)

// ToolTaskComplete is the name of the one registrable tool.
const ToolTaskComplete = "task_complete"

// ErrToolNotFound is returned when a requested tool is not in the catalog.
var ErrToolNotFound = errors.New("tool not found")

// ToolDescriptor describes a tool's name, purpose, and input schema.
// Descriptors are immutable: defined once at process start, never mutated.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// taskCompleteSchema is the JSON Schema for task_complete arguments. Only
// message is required; the recipient falls back to the configured default.
const taskCompleteSchema = `{
	"type": "object",
	"properties": {
		"message": {
			"type": "string",
			"description": "The message to send via SMS"
		},
		"to_phone_number": {
			"type": "string",
			"description": "The recipient phone number (E.164 format); defaults to the configured recipient"
		}
	},
	"required": ["message"]
}`

// Registry is the static tool catalog. Read-only after construction, safe
// for concurrent use.
type Registry struct {
	tools []ToolDescriptor
}

// NewRegistry creates the catalog with its single task_complete entry.
func NewRegistry() *Registry {
	return &Registry{
		tools: []ToolDescriptor{
			{
				Name:        ToolTaskComplete,
				Description: "Send SMS message via Twilio when a task is completed",
				InputSchema: json.RawMessage(taskCompleteSchema),
			},
		},
	}
}

// List returns all tool descriptors.
func (r *Registry) List() []ToolDescriptor {
	out := make([]ToolDescriptor, len(r.tools))
	copy(out, r.tools)
	return out
}

// Get returns the descriptor for the named tool, or ErrToolNotFound.
func (r *Registry) Get(name string) (*ToolDescriptor, error) {
	for i := range r.tools {
		if r.tools[i].Name == name {
			return &r.tools[i], nil
		}
	}
	return nil, ErrToolNotFound
}
