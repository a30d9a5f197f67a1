package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/taskmesh/internal/util"
)

// ToolCall is a function call request surfaced by a model provider, unified
// across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolResult carries the outcome of a previously requested tool call back to
// the model on the next turn.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (minimal subset).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Message is one conversational turn. Role is one of "system", "user",
// "assistant" or "tool". Assistant messages may carry tool calls; tool
// messages carry exactly one tool result.
type Message struct {
	Role       string      `json:"role"`
	Text       string      `json:"text,omitempty"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// UserMessage is a convenience constructor for a user turn.
func UserMessage(text string) Message { return Message{Role: "user", Text: text} }

// Request is the normalized oracle input. When Schema is non-nil the provider
// must return output conforming to it (surfaced via Response.Data) or fail
// with a ModelError. Tools and Schema are mutually exclusive in practice:
// structured decisions never include tool definitions.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	SchemaName   string           `json:"schema_name,omitempty"`
	Schema       map[string]any   `json:"schema,omitempty"`
}

// Response is the normalized oracle output. Exactly one of Data (structured
// requests), ToolCalls (tool-use turns) or Text (plain completions) is the
// primary payload; Text may accompany the others.
type Response struct {
	Text         string          `json:"text,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	ToolCalls    []ToolCall      `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// Info contains metadata about an oracle implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// Oracle is the language-model call abstraction: structured input in,
// schema-conforming output (or failure) out.
type Oracle interface {
	Invoke(ctx context.Context, req Request) (Response, error)

	// Info returns metadata about the oracle implementation.
	Info() Info
}

// ModelError reports malformed or non-schema-conforming model output.
type ModelError struct {
	Provider string
	Output   string
	Err      error
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	return fmt.Sprintf("model error (%s): %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ModelError) Unwrap() error { return e.Err }

// TimeoutError reports a model call exceeding its configured latency bound.
type TimeoutError struct {
	Provider string
	Elapsed  time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("model timeout (%s) after %s", e.Provider, e.Elapsed)
}

// Decode unmarshals a structured response into v. It prefers Data and falls
// back to extracting a JSON object from Text. A failure to produce v is a
// ModelError: the oracle did not honor its schema contract.
func Decode(resp Response, v any) error {
	raw := resp.Data
	if len(raw) == 0 {
		block, ok := ExtractJSON(resp.Text)
		if !ok {
			return &ModelError{Output: resp.Text, Err: fmt.Errorf("no JSON payload in response")}
		}
		raw = []byte(block)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &ModelError{Output: string(raw), Err: fmt.Errorf("decode structured response: %w", err)}
	}
	return nil
}

// ExtractJSON pulls the first JSON object out of free text, tolerating
// markdown code fences around it. Providers use it to honor the structured
// output contract with models that wrap JSON in prose.
func ExtractJSON(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if fenced := strings.Index(s, "```"); fenced >= 0 {
		s = s[fenced+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}

// ConformText validates that text satisfies schema and returns the raw JSON
// payload. Providers without native structured output call this after
// instructing the model to answer with JSON only.
func ConformText(provider, text string, schema map[string]any) (json.RawMessage, error) {
	block, ok := ExtractJSON(text)
	if !ok {
		return nil, &ModelError{Provider: provider, Output: text, Err: fmt.Errorf("expected JSON object, got none")}
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(block), &fields); err != nil {
		return nil, &ModelError{Provider: provider, Output: block, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if schema != nil {
		if err := util.ValidateArgs(fields, schema); err != nil {
			return nil, &ModelError{Provider: provider, Output: block, Err: fmt.Errorf("schema violation: %w", err)}
		}
	}
	return json.RawMessage(block), nil
}

// SchemaInstructions renders the JSON-only directive appended to the
// instructions of structured requests.
func SchemaInstructions(name string, schema map[string]any) string {
	data, err := json.Marshal(schema)
	if err != nil {
		data = []byte("{}")
	}
	return fmt.Sprintf(
		"\n\nRespond with a single JSON object named %q conforming to this JSON schema, with no surrounding prose:\n%s",
		name, data,
	)
}
