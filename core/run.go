package core

import (
	"encoding/json"
	"fmt"
)

// Phase labels the current stage of the plan-execute-replan state machine.
type Phase string

const (
	// PhasePlanning is the initial phase producing the first plan.
	PhasePlanning Phase = "planning"
	// PhaseExecuting runs the first step of the current plan.
	PhaseExecuting Phase = "executing"
	// PhaseReplanning decides whether to continue with a revised plan or conclude.
	PhaseReplanning Phase = "replanning"
	// PhaseTerminal is absorbing; no further operations run once reached.
	PhaseTerminal Phase = "terminal"
)

// StepRecord is one completed execute-step: the step description that was
// handed to the sub-agent and the textual result it produced.
type StepRecord struct {
	Step   string `json:"step"`
	Result string `json:"result"`
}

// RunState is the full mutable state of one plan-execute-replan run. The
// objective is immutable for the run; the plan is replaced wholesale on each
// replan; history is append-only; shared data is merged, never replaced; the
// final answer is set exactly once on the terminal transition.
//
// The zero-value invariants: Plan is empty only at run start or after a
// terminal replan, and len(History) always equals the number of completed
// execute-steps.
type RunState struct {
	ID          string       `json:"id"`
	Objective   string       `json:"objective"`
	Phase       Phase        `json:"phase"`
	Plan        []string     `json:"plan"`
	History     []StepRecord `json:"history"`
	SharedData  State        `json:"shared_data"`
	FinalAnswer string       `json:"final_answer,omitempty"`
}

// NewRunState creates a run in the planning phase, seeded with any initial
// shared data the caller passes across the boundary (may be nil).
func NewRunState(objective string, seed State) *RunState {
	return &RunState{
		ID:         NewID(),
		Objective:  objective,
		Phase:      PhasePlanning,
		Plan:       []string{},
		History:    []StepRecord{},
		SharedData: seed.Clone(),
	}
}

// Terminal reports whether the run has reached its absorbing final phase.
func (r *RunState) Terminal() bool { return r.Phase == PhaseTerminal }

// SetPlan replaces the plan wholesale and clears any stale final answer.
func (r *RunState) SetPlan(steps []string) {
	r.Plan = append([]string(nil), steps...)
	r.FinalAnswer = ""
}

// RecordStep appends a completed step to history and merges the patch the
// step contributed into the shared data as one atomic whole-patch merge.
func (r *RunState) RecordStep(step, result string, patch State) {
	r.History = append(r.History, StepRecord{Step: step, Result: result})
	if len(patch) > 0 {
		r.SharedData = r.SharedData.Merge(patch)
	}
}

// Conclude sets the final answer, empties the plan and transitions the run to
// its terminal phase. It returns an error if the run is already terminal:
// the final answer is set exactly once.
func (r *RunState) Conclude(answer string) error {
	if r.Terminal() {
		return fmt.Errorf("run %s is already terminal", r.ID)
	}
	r.FinalAnswer = answer
	r.Plan = []string{}
	r.Phase = PhaseTerminal
	return nil
}

// Checkpoint serializes the full run state to an opaque blob suitable for
// mid-run suspension. Restore with RestoreRun.
func (r *RunState) Checkpoint() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("checkpoint run %s: %w", r.ID, err)
	}
	return data, nil
}

// RestoreRun reconstructs a RunState from a checkpoint blob.
func RestoreRun(blob []byte) (*RunState, error) {
	var r RunState
	if err := json.Unmarshal(blob, &r); err != nil {
		return nil, fmt.Errorf("restore run: %w", err)
	}
	if r.SharedData == nil {
		r.SharedData = State{}
	}
	return &r, nil
}
