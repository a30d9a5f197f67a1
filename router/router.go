// Package router classifies an incoming request into one of a fixed set of
// domain targets and delegates the full run to the engine registered for that
// target. The classifier always picks exactly one target; it never abstains.
// Classification and the delegated run are independent state spaces joined
// only at the boundary: the router passes the initial shared data in and
// reads the final shared data out.
package router

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/engine"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/oracle"
)

// Target names a routing destination. The set of valid targets is fixed at
// router construction time by the registered engines.
type Target string

const (
	// TargetTracker is the issue-tracker domain.
	TargetTracker Target = "tracker"
	// TargetCodeHost is the code-hosting domain.
	TargetCodeHost Target = "codehost"
)

// Decision is the classifier's verdict for one request.
type Decision struct {
	Target     Target  `json:"target"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Result is what a delegated run produced: the terminal run state plus the
// classification that selected the engine.
type Result struct {
	Decision Decision
	Run      *core.RunState
}

// Options configures a Router.
type Options struct {
	// Instructions overrides the classifier system prompt. The valid target
	// list is always appended.
	Instructions string

	// Logger is the router logger. Defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// Router owns the classification oracle and the engines it can delegate to.
type Router struct {
	oracle  oracle.Oracle
	engines map[Target]*engine.Engine
	targets []Target
	opts    Options
}

// New creates a Router over the given engines. The map keys define the
// closed target set the classifier chooses from; at least one engine is
// required.
func New(o oracle.Oracle, engines map[Target]*engine.Engine, optFns ...func(o *Options)) (*Router, error) {
	if len(engines) == 0 {
		return nil, fmt.Errorf("router requires at least one engine")
	}

	opts := Options{
		Instructions: defaultInstructions,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	targets := make([]Target, 0, len(engines))
	for t := range engines {
		targets = append(targets, t)
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	return &Router{
		oracle:  o,
		engines: engines,
		targets: targets,
		opts:    opts,
	}, nil
}

// Targets returns the sorted target set this router can route to.
func (r *Router) Targets() []Target {
	return append([]Target(nil), r.targets...)
}

// Classify runs the classification call for request without delegating.
func (r *Router) Classify(ctx context.Context, request string) (Decision, error) {
	resp, err := r.oracle.Invoke(ctx, oracle.Request{
		Instructions: r.instructions(),
		Messages:     []oracle.Message{oracle.UserMessage(request)},
		SchemaName:   "route",
		Schema:       r.schema(),
	})
	if err != nil {
		return Decision{}, core.NewRunError(core.FailureRouting, "", "", err)
	}

	var d Decision
	if err := oracle.Decode(resp, &d); err != nil {
		return Decision{}, core.NewRunError(core.FailureRouting, "", "", err)
	}

	if _, ok := r.engines[d.Target]; !ok {
		return Decision{}, core.NewRunError(core.FailureRouting, "", "", fmt.Errorf("classifier chose unknown target %q", d.Target))
	}

	r.opts.Logger.Info("router.classified", "target", d.Target, "confidence", d.Confidence)

	return d, nil
}

// Route classifies request, constructs a fresh run for the selected engine
// seeded with seed, and drives it to its terminal phase. Session and notices
// may be nil.
func (r *Router) Route(ctx context.Context, sess *core.Session, request string, seed core.State, notices chan<- core.Event) (*Result, error) {
	decision, err := r.Classify(ctx, request)
	if err != nil {
		return nil, err
	}

	eng := r.engines[decision.Target]

	run := core.NewRunState(request, seed)
	runCtx := core.NewRunContext(ctx, sess, run, notices, r.opts.Logger)

	runCtx.Notify("router", fmt.Sprintf("Routing to %s (%.2f): %s", decision.Target, decision.Confidence, decision.Rationale))

	res := &Result{Decision: decision, Run: run}

	// On engine failure the partial result is returned alongside the error so
	// callers can checkpoint the interrupted run.
	if err := eng.Run(runCtx); err != nil {
		return res, err
	}

	return res, nil
}

func (r *Router) instructions() string {
	names := make([]string, len(r.targets))
	for i, t := range r.targets {
		names[i] = string(t)
	}

	return fmt.Sprintf("%s\nValid targets: %s. You must pick exactly one; never abstain.", r.opts.Instructions, strings.Join(names, ", "))
}

func (r *Router) schema() map[string]any {
	names := make([]string, len(r.targets))
	for i, t := range r.targets {
		names[i] = string(t)
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"target": map[string]any{
				"type":        "string",
				"enum":        names,
				"description": "The single best-matching target.",
			},
			"confidence": map[string]any{
				"type":        "number",
				"description": "Confidence in the choice, 0 to 1.",
			},
			"rationale": map[string]any{
				"type":        "string",
				"description": "One sentence explaining the choice.",
			},
		},
		"required": []string{"target", "confidence", "rationale"},
	}
}

const defaultInstructions = `Classify the user's request by which system it concerns. Requests about issues, tickets, sprints or project tracking go to the issue tracker. Requests about commits, pull requests, branches or repositories go to the code host. If the request fits neither cleanly, pick the closest match anyway.`
