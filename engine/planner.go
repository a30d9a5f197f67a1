package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/oracle"
)

// planSchema constrains the planner to an ordered list of step descriptions.
var planSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"steps": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Ordered step descriptions, executed front to back.",
		},
	},
	"required": []string{"steps"},
}

// decisionSchema is the tagged union returned by the replanner: either a
// revised step list or a final answer, selected by the action field.
var decisionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"action": map[string]any{
			"type":        "string",
			"enum":        []string{"continue", "conclude"},
			"description": "continue with revised steps, or conclude with a final answer",
		},
		"steps": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Remaining steps. Required when action is continue.",
		},
		"answer": map[string]any{
			"type":        "string",
			"description": "Final answer. Required when action is conclude.",
		},
	},
	"required": []string{"action"},
}

type planPayload struct {
	Steps []string `json:"steps"`
}

// Decision is the parsed replanner output.
type Decision struct {
	Action string   `json:"action"`
	Steps  []string `json:"steps,omitempty"`
	Answer string   `json:"answer,omitempty"`
}

const (
	actionContinue = "continue"
	actionConclude = "conclude"
)

// plan asks the model for the initial step list.
func (e *Engine) plan(runCtx *core.RunContext) ([]string, error) {
	resp, err := e.oracle.Invoke(runCtx.Context, oracle.Request{
		Instructions: e.prompts.Planner,
		Messages:     []oracle.Message{oracle.UserMessage(runCtx.Run.Objective)},
		SchemaName:   "plan",
		Schema:       planSchema,
	})
	if err != nil {
		return nil, err
	}

	var p planPayload
	if err := oracle.Decode(resp, &p); err != nil {
		return nil, err
	}

	if len(p.Steps) == 0 {
		return nil, &oracle.ModelError{
			Provider: e.oracle.Info().Provider,
			Output:   resp.Text,
			Err:      fmt.Errorf("planner returned an empty plan"),
		}
	}

	return p.Steps, nil
}

// replan asks the model whether to continue with remaining steps or conclude.
// Steps that verbatim-match an already completed step are filtered out with a
// warning, so a model that re-lists finished work cannot loop the run.
func (e *Engine) replan(runCtx *core.RunContext) (Decision, error) {
	run := runCtx.Run

	resp, err := e.oracle.Invoke(runCtx.Context, oracle.Request{
		Instructions: e.prompts.Replanner,
		Messages:     []oracle.Message{oracle.UserMessage(replanInput(run))},
		SchemaName:   "decision",
		Schema:       decisionSchema,
	})
	if err != nil {
		return Decision{}, err
	}

	var d Decision
	if err := oracle.Decode(resp, &d); err != nil {
		return Decision{}, err
	}

	switch d.Action {
	case actionConclude:
		if d.Answer == "" {
			return Decision{}, &oracle.ModelError{
				Provider: e.oracle.Info().Provider,
				Output:   string(resp.Data),
				Err:      fmt.Errorf("conclude decision without an answer"),
			}
		}
	case actionContinue:
		d.Steps = e.filterCompleted(runCtx, d.Steps)
		if len(d.Steps) == 0 {
			return Decision{}, &oracle.ModelError{
				Provider: e.oracle.Info().Provider,
				Output:   string(resp.Data),
				Err:      fmt.Errorf("continue decision with no remaining steps"),
			}
		}
	default:
		return Decision{}, &oracle.ModelError{
			Provider: e.oracle.Info().Provider,
			Output:   string(resp.Data),
			Err:      fmt.Errorf("unknown replan action %q", d.Action),
		}
	}

	return d, nil
}

// filterCompleted drops steps whose description verbatim-matches a completed
// history entry. Nothing in the schema stops the model from re-listing
// finished work, so the loop guards against the repeat itself.
func (e *Engine) filterCompleted(runCtx *core.RunContext, steps []string) []string {
	done := make(map[string]struct{}, len(runCtx.Run.History))
	for _, rec := range runCtx.Run.History {
		done[rec.Step] = struct{}{}
	}

	kept := steps[:0]

	for _, step := range steps {
		if _, ok := done[step]; ok {
			runCtx.LogWarn("engine.replan.repeated_step", "engine", e.name, "run_id", runCtx.Run.ID, "step", step)
			continue
		}

		kept = append(kept, step)
	}

	return kept
}

// replanInput renders the full run context the replanner needs: the
// objective, the original plan and everything done so far.
func replanInput(run *core.RunState) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Objective: %s\n\n", run.Objective)

	sb.WriteString("Current plan:\n")

	for i, step := range run.Plan {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
	}

	sb.WriteString("\nCompleted steps:\n")

	if len(run.History) == 0 {
		sb.WriteString("(none)\n")
	}

	for _, rec := range run.History {
		fmt.Fprintf(&sb, "- %s\n  Result: %s\n", rec.Step, rec.Result)
	}

	if len(run.SharedData) > 0 {
		if blob, err := json.Marshal(run.SharedData.Keys()); err == nil {
			fmt.Fprintf(&sb, "\nShared memory keys: %s\n", blob)
		}
	}

	return sb.String()
}
