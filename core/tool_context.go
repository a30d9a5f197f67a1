package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/taskmesh/logging"
)

// ToolContext is the constrained surface handed to a tool invocation. It
// exposes a read view of the run's shared data merged with the tool's own
// staged writes, and accumulates those writes as a whole patch the engine
// merges after the step completes. Tools never mutate shared data directly;
// patches keep the merge discipline atomic.
type ToolContext struct {
	runCtx *RunContext
	callID string
	view   State
	patch  State

	*loggerAdapter
}

// NewToolContext binds a tool invocation to its parent run context. view is
// the shared-data snapshot taken when the step began; callID correlates the
// model's function call with the tool execution.
func NewToolContext(runCtx *RunContext, callID string, view State) *ToolContext {
	return &ToolContext{
		runCtx:        runCtx,
		callID:        callID,
		view:          view,
		patch:         State{},
		loggerAdapter: newLoggerAdapter(runCtx.Logger()),
	}
}

// Context returns the cancellation context of the run.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// CallID returns the function call identifier of this invocation.
func (tc *ToolContext) CallID() string { return tc.callID }

// RunID returns the identifier of the enclosing run.
func (tc *ToolContext) RunID() string {
	if tc.runCtx.Run == nil {
		return ""
	}
	return tc.runCtx.Run.ID
}

// Logger returns the logger bound to the run.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// GetState returns a staged value if the tool wrote one, else the snapshot
// value from the run's shared data.
func (tc *ToolContext) GetState(key string) (any, bool) {
	if v, ok := tc.patch[key]; ok {
		return v, true
	}
	v, ok := tc.view[key]
	return v, ok
}

// SetState stages a shared-data write under an explicit key. Producers must
// namespace their keys (see StateKey); overwriting another producer's key is
// a caller error, not silent data loss the store guards against.
func (tc *ToolContext) SetState(key string, value any) {
	tc.patch[key] = value
}

// StateKey returns the canonical namespaced key for this invocation:
// "<producer>.<call-id>".
func (tc *ToolContext) StateKey(producer string) string {
	return StateKey(producer, tc.callID)
}

// Patch returns the accumulated whole patch for this invocation. The engine
// merges it into the run's shared data in one step.
func (tc *ToolContext) Patch() State { return tc.patch }

// Notify emits a progress notice attributed to the named tool.
func (tc *ToolContext) Notify(author, text string) {
	tc.runCtx.Notify(author, text)
}

// Validate performs a structural sanity check of the context.
func (tc *ToolContext) Validate() error {
	if tc.runCtx == nil || tc.callID == "" {
		return fmt.Errorf("invalid ToolContext")
	}
	return nil
}
