package core

import (
	"errors"
	"fmt"
)

// FailureKind categorizes the fatal failure modes of a run. All kinds except
// FailureAggregation terminate the run; aggregation failures are policy
// dependent (see the aggregate package).
type FailureKind string

const (
	// FailurePlanning: the oracle could not produce a valid plan.
	FailurePlanning FailureKind = "planning"
	// FailureExecution: a tool or sub-agent step failed.
	FailureExecution FailureKind = "execution"
	// FailureReplanning: the oracle could not decide continue/conclude.
	FailureReplanning FailureKind = "replanning"
	// FailureRouting: classification failed or returned an unknown target.
	FailureRouting FailureKind = "routing"
	// FailureAggregation: a map-phase item call failed.
	FailureAggregation FailureKind = "aggregation"
)

// RunError is the structured error surfaced to callers when a run aborts.
// It carries the failure kind plus context (engine name, step description)
// and wraps the underlying cause. Engines never retry; the caller decides
// user-facing messaging.
type RunError struct {
	Kind   FailureKind
	Engine string
	Step   string
	Err    error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s failure", e.Kind)
	if e.Engine != "" {
		msg += fmt.Sprintf(" in engine %s", e.Engine)
	}
	if e.Step != "" {
		msg += fmt.Sprintf(" at step %q", e.Step)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *RunError) Unwrap() error { return e.Err }

// NewRunError constructs a RunError of the given kind wrapping cause.
func NewRunError(kind FailureKind, engine, step string, cause error) *RunError {
	return &RunError{Kind: kind, Engine: engine, Step: step, Err: cause}
}

// FailureKindOf extracts the failure kind from err, or "" if err carries no
// RunError in its chain.
func FailureKindOf(err error) FailureKind {
	var re *RunError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
