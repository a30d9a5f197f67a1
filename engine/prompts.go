package engine

// PromptSet specializes an engine for a domain. The loop itself is shared;
// only the instructions handed to the model differ between domains.
type PromptSet struct {
	// Planner produces the initial step list for an objective.
	Planner string

	// Executor is the system instruction for the tool-using turn that works
	// on one step.
	Executor string

	// Replanner decides between continuing with remaining steps and
	// concluding with a final answer.
	Replanner string
}

// DefaultPrompts returns a domain-neutral prompt set.
func DefaultPrompts() PromptSet {
	return PromptSet{
		Planner: `For the given objective, come up with a simple step by step plan. Each step must be a self-contained task that, if executed correctly, moves toward the objective. Do not add superfluous steps; the result of the final step should be the final answer. Make sure each step has all the information needed.`,
		Executor: `You are a focused assistant working on one step of a larger plan. Use the available tools to complete the step, then report the outcome concisely. Do not work ahead on later steps.`,
		Replanner: `You revise the plan for an objective based on the work done so far. List only the steps that still need to be done; never repeat steps that are already completed. If the completed work already answers the objective, conclude with the final answer instead of more steps.`,
	}
}

// TrackerPrompts returns the prompt set for the issue-tracker domain.
func TrackerPrompts() PromptSet {
	ps := DefaultPrompts()
	ps.Executor = `You are an issue-tracker assistant working on one step of a larger plan. Use the available tools to search issues, analyze them or summarize them. Search results are kept in shared memory; pass the memory key reported by a search to the analysis and summary tools instead of copying issue content. Report the outcome of the step concisely and do not work ahead on later steps.`

	return ps
}

// CodeHostPrompts returns the prompt set for the code-hosting domain.
func CodeHostPrompts() PromptSet {
	ps := DefaultPrompts()
	ps.Executor = `You are a code-hosting assistant working on one step of a larger plan. Use the available tools to fetch commits and pull requests, analyze them or summarize them. Fetched results are kept in shared memory; pass the memory key reported by a fetch to the analysis and summary tools instead of copying content. Report the outcome of the step concisely and do not work ahead on later steps.`

	return ps
}
