// Package core defines the shared domain contracts of taskmesh: the run
// state carried through the plan-execute-replan loop, the merge-semantics
// shared-state store, progress events, the session container, the structured
// failure taxonomy and the execution contexts handed to engines and tools.
//
// Higher level packages (engine, router, aggregate, toolkit) depend on core
// only; core depends on nothing but the logging abstraction. Keeping the
// contracts here prevents cyclic dependencies between orchestration and tool
// packages.
package core
