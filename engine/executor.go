package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/oracle"
)

// executeStep runs one tool-using model turn for the first pending plan step.
// It returns the textual result and the combined state patch contributed by
// the tools that ran. The plan itself is not mutated here; only the replanner
// rewrites the plan.
func (e *Engine) executeStep(runCtx *core.RunContext) (string, core.State, error) {
	run := runCtx.Run
	if len(run.Plan) == 0 {
		panic("engine: executeStep called with an empty plan")
	}

	step := run.Plan[0]

	runCtx.LogInfo("engine.step.start", "engine", e.name, "run_id", run.ID, "step", step)
	runCtx.Notify(e.name, fmt.Sprintf("Working on: %s", step))

	messages := []oracle.Message{oracle.UserMessage(e.stepInput(run, step))}
	patch := core.State{}

	for turn := 0; turn < e.opts.MaxToolTurns; turn++ {
		resp, err := e.oracle.Invoke(runCtx.Context, oracle.Request{
			Instructions: e.prompts.Executor,
			Messages:     messages,
			Tools:        e.tools.Definitions(),
		})
		if err != nil {
			return "", nil, err
		}

		if len(resp.ToolCalls) == 0 {
			runCtx.LogInfo("engine.step.done", "engine", e.name, "run_id", run.ID, "step", step, "turns", turn+1)
			return resp.Text, patch, nil
		}

		messages = append(messages, oracle.Message{
			Role:      "assistant",
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		// Tool calls within one turn run sequentially; each sees the run's
		// shared data plus everything staged earlier in this step.
		for _, tc := range resp.ToolCalls {
			result := e.invokeTool(runCtx, tc, run.SharedData.Merge(patch))
			patch = patch.Merge(result.patch)

			messages = append(messages, oracle.Message{
				Role: "tool",
				ToolResult: &oracle.ToolResult{
					CallID:  tc.ID,
					Name:    tc.Name,
					Content: result.content,
					IsError: result.isError,
				},
			})
		}
	}

	return "", nil, fmt.Errorf("step %q did not finish within %d tool turns", step, e.opts.MaxToolTurns)
}

type toolOutcome struct {
	content string
	patch   core.State
	isError bool
}

// invokeTool resolves and runs one tool call. Tool errors become tool-result
// content rather than aborting the step; the model decides how to proceed,
// and the replanner remains the sole authority on giving up.
func (e *Engine) invokeTool(runCtx *core.RunContext, tc oracle.ToolCall, view core.State) toolOutcome {
	impl, ok := e.tools.Get(tc.Name)
	if !ok {
		runCtx.LogWarn("engine.tool.unknown", "engine", e.name, "tool", tc.Name)
		return toolOutcome{content: fmt.Sprintf("tool %q not found", tc.Name), isError: true}
	}

	args := map[string]any{}
	if tc.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
			return toolOutcome{content: fmt.Sprintf("invalid arguments for %q: %v", tc.Name, err), isError: true}
		}
	}

	toolCtx := core.NewToolContext(runCtx, tc.ID, view)

	start := time.Now()
	result, err := impl.Call(toolCtx, args)
	dur := time.Since(start)

	runCtx.LogInfo("engine.tool.executed", "engine", e.name, "tool", tc.Name, "duration_ms", dur.Milliseconds(), "error", err != nil)

	if err != nil {
		return toolOutcome{content: err.Error(), isError: true}
	}

	return toolOutcome{content: renderToolResult(result), patch: toolCtx.Patch()}
}

// stepInput formats the current step with its position in the full plan, so
// the model sees where the step sits without being tempted to work ahead.
func (e *Engine) stepInput(run *core.RunState, step string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Objective: %s\n\nPlan:\n", run.Objective)

	for i, s := range run.Plan {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
	}

	fmt.Fprintf(&sb, "\nYou are working on step 1: %s", step)

	if keys := run.SharedData.Keys(); len(keys) > 0 {
		fmt.Fprintf(&sb, "\n\nShared memory keys from earlier steps: %s", strings.Join(keys, ", "))
	}

	return sb.String()
}

func renderToolResult(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		blob, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(blob)
	}
}
