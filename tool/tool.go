// Package tool implements the capability subsystem that lets engine sub-agents
// invoke structured external functions (API queries, computations, analyses)
// with schema validated arguments and consistent error handling. Tools are
// external collaborators behind a fixed contract: they return plain result
// text and contribute shared-state patches through the ToolContext.
package tool

import (
	"fmt"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
)

// Tool is the fixed interface every capability implements. Implementations
// should be stateless after construction and safe for concurrent use; per
// invocation state belongs on the ToolContext.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case).
	Name() string

	// Description returns the description shown to the model so it knows when
	// and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool. Arguments are parsed from JSON and validated
	// against the schema before invocation. Shared-state contributions go
	// through toolCtx.SetState under a namespaced key; the returned value is
	// the plain result handed back to the model.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError re-exports the argument validation error type.
type ValidationError = util.ValidationError

// ToolError represents a failure during tool execution. Errors are never
// swallowed here; the engine decides fatal-vs-continue.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the given details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
