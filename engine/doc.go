// Package engine implements the plan-execute-replan loop that drives a run
// from an objective to a final answer.
//
// A run moves through a strictly sequential state machine: planning produces
// the initial step list, executing hands the first pending step to a
// tool-using model turn, and replanning either replaces the plan with the
// remaining work or concludes the run with a final answer. Replanning is the
// sole authority on termination; a configurable step ceiling exists only as a
// runaway safeguard.
//
// Engines are specialized by composition: the same loop is instantiated with
// a tool registry and a prompt set per domain rather than subclassed.
package engine
