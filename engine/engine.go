package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/oracle"
	"github.com/hupe1980/taskmesh/tool"
)

// ErrStepBudgetExhausted is returned when a run hits the configured step
// ceiling before the replanner concludes. It signals a runaway loop, not a
// normal termination.
var ErrStepBudgetExhausted = errors.New("step budget exhausted")

// Options configures an Engine.
type Options struct {
	// MaxSteps is the hard ceiling on executed steps per run. Defaults to 12.
	MaxSteps int

	// PerStepTimeout bounds one execute-step including its tool calls.
	// Zero means no per-step deadline beyond the ambient context.
	PerStepTimeout time.Duration

	// MaxToolTurns bounds the model/tool round trips within one step.
	// Defaults to 8.
	MaxToolTurns int

	// Logger is the engine logger. Defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// Engine drives the plan-execute-replan loop for one domain. It owns no
// mutable state of its own; all run state lives in core.RunState, so a single
// Engine value can serve concurrent runs.
type Engine struct {
	name    string
	oracle  oracle.Oracle
	tools   *tool.Registry
	prompts PromptSet
	opts    Options
}

// New creates an Engine named name, specialized by the given tool registry
// and prompt set.
func New(name string, o oracle.Oracle, tools *tool.Registry, prompts PromptSet, optFns ...func(o *Options)) *Engine {
	opts := Options{
		MaxSteps:     12,
		MaxToolTurns: 8,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if tools == nil {
		tools = tool.NewRegistry()
	}

	return &Engine{
		name:    name,
		oracle:  o,
		tools:   tools,
		prompts: prompts,
		opts:    opts,
	}
}

// Name returns the engine's name, used as the event author and in errors.
func (e *Engine) Name() string { return e.name }

// Tools returns the engine's tool registry.
func (e *Engine) Tools() *tool.Registry { return e.tools }

// Execute starts a fresh run for objective, seeded with the given shared
// data, and drives it to its terminal phase. It is a convenience wrapper over
// Run for callers without a session or observer channel.
func (e *Engine) Execute(ctx context.Context, objective string, seed core.State) (*core.RunState, error) {
	run := core.NewRunState(objective, seed)
	runCtx := core.NewRunContext(ctx, nil, run, nil, e.opts.Logger)

	return run, e.Run(runCtx)
}

// Run drives runCtx.Run from its current phase to the terminal phase. It
// supports resuming a run restored from a checkpoint: the loop picks up
// wherever the phase says it stopped. The first failure aborts the run and is
// returned as a core.RunError; no engine-level retry is performed.
func (e *Engine) Run(runCtx *core.RunContext) error {
	run := runCtx.Run

	runCtx.LogInfo("engine.run.start", "engine", e.name, "run_id", run.ID, "phase", run.Phase, "objective", run.Objective)

	for !run.Terminal() {
		if err := runCtx.Err(); err != nil {
			return core.NewRunError(core.FailureExecution, e.name, "", err)
		}

		switch run.Phase {
		case core.PhasePlanning:
			steps, err := e.plan(runCtx)
			if err != nil {
				return core.NewRunError(core.FailurePlanning, e.name, "", err)
			}

			run.SetPlan(steps)
			run.Phase = core.PhaseExecuting

			runCtx.LogInfo("engine.planned", "engine", e.name, "run_id", run.ID, "steps", len(steps))
			runCtx.Notify(e.name, fmt.Sprintf("Planned %d steps.", len(steps)))

		case core.PhaseExecuting:
			if len(run.History) >= e.opts.MaxSteps {
				return core.NewRunError(core.FailureExecution, e.name, "", fmt.Errorf("%w after %d steps", ErrStepBudgetExhausted, len(run.History)))
			}

			step := run.Plan[0]

			result, patch, err := e.runStep(runCtx)
			if err != nil {
				return core.NewRunError(core.FailureExecution, e.name, step, err)
			}

			run.RecordStep(step, result, patch)
			run.Phase = core.PhaseReplanning

		case core.PhaseReplanning:
			decision, err := e.replan(runCtx)
			if err != nil {
				return core.NewRunError(core.FailureReplanning, e.name, "", err)
			}

			if decision.Action == actionConclude {
				if err := run.Conclude(decision.Answer); err != nil {
					return core.NewRunError(core.FailureReplanning, e.name, "", err)
				}

				runCtx.LogInfo("engine.run.concluded", "engine", e.name, "run_id", run.ID, "steps", len(run.History))
				runCtx.Notify(e.name, "Concluded.")

				continue
			}

			run.SetPlan(decision.Steps)
			run.Phase = core.PhaseExecuting

			runCtx.LogInfo("engine.replanned", "engine", e.name, "run_id", run.ID, "remaining", len(decision.Steps))

		default:
			return core.NewRunError(core.FailureExecution, e.name, "", fmt.Errorf("unknown phase %q", run.Phase))
		}
	}

	return nil
}

// runStep applies the per-step timeout around executeStep.
func (e *Engine) runStep(runCtx *core.RunContext) (string, core.State, error) {
	if e.opts.PerStepTimeout <= 0 {
		return e.executeStep(runCtx)
	}

	stepCtx, cancel := context.WithTimeout(runCtx.Context, e.opts.PerStepTimeout)
	defer cancel()

	return e.executeStep(runCtx.WithContext(stepCtx))
}
