package aggregate

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/oracle"
)

// Mode selects how the aggregator treats the collection.
type Mode string

const (
	// ModeAnalysis scores each unit on the requested dimensions (1 to 10)
	// and reduces the per-unit scores into an overall assessment.
	ModeAnalysis Mode = "analysis"

	// ModeSummary condenses each unit independently and merges the partial
	// summaries into one coherent summary.
	ModeSummary Mode = "summary"
)

// FailurePolicy controls how per-unit map failures affect the run.
type FailurePolicy string

const (
	// AnnotateGaps keeps going when individual map calls fail and marks the
	// missing units in the reduce input, so the final output names its gaps.
	AnnotateGaps FailurePolicy = "annotate-gaps"

	// FailFast aborts the whole aggregation on the first map failure.
	FailFast FailurePolicy = "fail-fast"
)

// EmptyResult is returned for an empty unit collection. No model calls are
// made in that case.
const EmptyResult = "No items to aggregate."

// Options configures an Aggregator.
type Options struct {
	// Mode selects analysis or summary behavior. Defaults to ModeSummary.
	Mode Mode

	// FailurePolicy controls map-phase error handling. Defaults to AnnotateGaps.
	FailurePolicy FailurePolicy

	// Concurrency bounds the number of in-flight map calls. Defaults to 4.
	Concurrency int

	// Logger is the logger for aggregation progress. Defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// Aggregator condenses a collection of units into a single text via
// map-reduce: one independent model call per unit, then one reduce call over
// the partial outputs. The reduce phase runs even for a single unit, so the
// output shape does not depend on collection size.
type Aggregator struct {
	oracle oracle.Oracle
	opts   Options
}

// New creates a map-reduce Aggregator backed by the given oracle.
func New(o oracle.Oracle, optFns ...func(o *Options)) *Aggregator {
	opts := Options{
		Mode:          ModeSummary,
		FailurePolicy: AnnotateGaps,
		Concurrency:   4,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	return &Aggregator{oracle: o, opts: opts}
}

// Run executes the map-reduce over units. For ModeAnalysis, dimensions names
// the scoring dimensions; it is ignored for ModeSummary. An empty collection
// yields EmptyResult without any model call.
func (a *Aggregator) Run(ctx context.Context, units []Unit, dimensions []string) (string, error) {
	if len(units) == 0 {
		a.opts.Logger.Debug("aggregate.empty", "mode", a.opts.Mode)
		return EmptyResult, nil
	}

	a.opts.Logger.Info("aggregate.start", "mode", a.opts.Mode, "units", len(units), "concurrency", a.opts.Concurrency)

	partials := make([]string, len(units))
	failures := make([]error, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)

	for i, u := range units {
		g.Go(func() error {
			out, err := a.mapOne(gctx, u, dimensions)
			if err != nil {
				a.opts.Logger.Warn("aggregate.map.error", "unit", u.Label(i), "error", err)

				if a.opts.FailurePolicy == FailFast {
					return fmt.Errorf("map %s: %w", u.Label(i), err)
				}

				failures[i] = err

				return nil
			}

			partials[i] = out

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", core.NewRunError(core.FailureAggregation, "", "", err)
	}

	failed := 0

	for i := range units {
		if failures[i] != nil {
			failed++
			partials[i] = fmt.Sprintf("[%s could not be processed: %v]", units[i].Label(i), failures[i])
		}
	}

	if failed == len(units) {
		return "", core.NewRunError(core.FailureAggregation, "", "", fmt.Errorf("all %d map calls failed, first: %w", failed, firstError(failures)))
	}

	out, err := a.reduce(ctx, partials, dimensions)
	if err != nil {
		return "", core.NewRunError(core.FailureAggregation, "", "", fmt.Errorf("reduce: %w", err))
	}

	a.opts.Logger.Info("aggregate.done", "mode", a.opts.Mode, "units", len(units), "failed", failed)

	return out, nil
}

func (a *Aggregator) mapOne(ctx context.Context, u Unit, dimensions []string) (string, error) {
	resp, err := a.oracle.Invoke(ctx, oracle.Request{
		Instructions: a.mapInstructions(dimensions),
		Messages:     []oracle.Message{oracle.UserMessage(u.Content)},
	})
	if err != nil {
		return "", err
	}

	return resp.Text, nil
}

func (a *Aggregator) reduce(ctx context.Context, partials []string, dimensions []string) (string, error) {
	resp, err := a.oracle.Invoke(ctx, oracle.Request{
		Instructions: a.reduceInstructions(dimensions),
		Messages:     []oracle.Message{oracle.UserMessage(strings.Join(partials, "\n\n---\n\n"))},
	})
	if err != nil {
		return "", err
	}

	return resp.Text, nil
}

func (a *Aggregator) mapInstructions(dimensions []string) string {
	if a.opts.Mode == ModeAnalysis {
		return fmt.Sprintf(`You are given one work item. Assess it on each of the following dimensions, giving a score from 1 to 10 and a one-sentence justification per dimension: %s.
Format each line as "<dimension>: <score>/10 - <justification>".`, strings.Join(dimensions, ", "))
	}

	return `You are given one work item. Write a concise summary of it, keeping identifiers, decisions and outcomes. Do not add information that is not present in the item.`
}

func (a *Aggregator) reduceInstructions(dimensions []string) string {
	if a.opts.Mode == ModeAnalysis {
		return fmt.Sprintf(`You are given per-item assessments, each scoring the dimensions %s from 1 to 10, separated by "---". Produce one overall assessment: for every dimension give an aggregate score and name the items that drive it. Items marked as "could not be processed" are gaps; mention them explicitly instead of guessing their scores.`, strings.Join(dimensions, ", "))
	}

	return `You are given per-item summaries separated by "---". Merge them into one coherent summary, grouping related items and keeping identifiers. Items marked as "could not be processed" are gaps; mention them explicitly instead of inventing content for them.`
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}
