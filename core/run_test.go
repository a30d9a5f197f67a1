package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStateLifecycle(t *testing.T) {
	run := NewRunState("summarize recent work", State{"boundary": "in"})

	assert.Equal(t, PhasePlanning, run.Phase)
	assert.Empty(t, run.Plan)
	assert.Empty(t, run.History)
	assert.False(t, run.Terminal())

	run.SetPlan([]string{"fetch items", "summarize items"})
	assert.Len(t, run.Plan, 2)

	run.RecordStep("fetch items", "retrieved 3 items", State{"src.call1": []any{"i1", "i2", "i3"}})
	assert.Len(t, run.History, 1)
	assert.Contains(t, run.SharedData, "src.call1")
	assert.Equal(t, "in", run.SharedData["boundary"])

	require.NoError(t, run.Conclude("done"))
	assert.True(t, run.Terminal())
	assert.Empty(t, run.Plan, "terminal replan empties the plan")
	assert.Equal(t, "done", run.FinalAnswer)
}

func TestRunStateConcludeExactlyOnce(t *testing.T) {
	run := NewRunState("obj", nil)
	require.NoError(t, run.Conclude("first"))

	err := run.Conclude("second")
	require.Error(t, err)
	assert.Equal(t, "first", run.FinalAnswer)
}

func TestRunStateSetPlanClearsStaleAnswer(t *testing.T) {
	run := NewRunState("obj", nil)
	run.FinalAnswer = "stale"
	run.SetPlan([]string{"step"})
	assert.Empty(t, run.FinalAnswer)
}

func TestRunStateCheckpointRoundTrip(t *testing.T) {
	run := NewRunState("objective", State{"seed": "v"})
	run.SetPlan([]string{"a", "b"})
	run.RecordStep("a", "ra", State{"tool.fc1": "data"})
	run.Phase = PhaseReplanning

	blob, err := run.Checkpoint()
	require.NoError(t, err)

	restored, err := RestoreRun(blob)
	require.NoError(t, err)

	assert.Equal(t, run.ID, restored.ID)
	assert.Equal(t, run.Objective, restored.Objective)
	assert.Equal(t, run.Phase, restored.Phase)
	assert.Equal(t, run.Plan, restored.Plan)
	assert.Equal(t, run.History, restored.History)
	assert.Equal(t, "data", restored.SharedData["tool.fc1"])
}

func TestRestoreRunInvalidBlob(t *testing.T) {
	_, err := RestoreRun([]byte("{not json"))
	require.Error(t, err)
}

func TestRunErrorTaxonomy(t *testing.T) {
	cause := errors.New("boom")
	err := NewRunError(FailurePlanning, "tracker", "", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, FailurePlanning, FailureKindOf(err))
	assert.Contains(t, err.Error(), "planning failure")
	assert.Contains(t, err.Error(), "tracker")

	wrapped := NewRunError(FailureExecution, "codehost", "fetch commits", cause)
	assert.Contains(t, wrapped.Error(), `step "fetch commits"`)
	assert.Equal(t, FailureKind(""), FailureKindOf(errors.New("plain")))
}
