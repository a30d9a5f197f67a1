package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/engine"
	"github.com/hupe1980/taskmesh/oracle"
)

// concludingEngine returns an engine whose scripted oracle plans one step,
// executes it and concludes with answer.
func concludingEngine(name, answer string) *engine.Engine {
	scripted := oracle.NewScriptedOracle()
	scripted.PushJSON(map[string]any{"steps": []string{"do the work"}})
	scripted.PushText("work done")
	scripted.PushJSON(engine.Decision{Action: "conclude", Answer: answer})

	return engine.New(name, scripted, nil, engine.DefaultPrompts())
}

func newTestRouter(t *testing.T, classifier oracle.Oracle) *Router {
	t.Helper()

	r, err := New(classifier, map[Target]*engine.Engine{
		TargetTracker:  concludingEngine("tracker", "tracker answer"),
		TargetCodeHost: concludingEngine("codehost", "codehost answer"),
	})
	require.NoError(t, err)

	return r
}

func TestRouterRoutesByMarker(t *testing.T) {
	tests := []struct {
		name       string
		request    string
		target     Target
		confidence float64
		answer     string
	}{
		{
			name:       "tracker marker",
			request:    "summarize open issues in REPO-A",
			target:     TargetTracker,
			confidence: 0.95,
			answer:     "tracker answer",
		},
		{
			name:       "codehost marker",
			request:    "what changed recently in REPO-B",
			target:     TargetCodeHost,
			confidence: 0.90,
			answer:     "codehost answer",
		},
		{
			name:       "no marker still picks one",
			request:    "tell me what happened last week",
			target:     TargetTracker,
			confidence: 0.55,
			answer:     "tracker answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := oracle.NewScriptedOracle()
			classifier.PushJSON(Decision{Target: tt.target, Confidence: tt.confidence, Rationale: "scripted"})

			r := newTestRouter(t, classifier)

			res, err := r.Route(context.Background(), nil, tt.request, nil, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.target, res.Decision.Target)
			assert.GreaterOrEqual(t, res.Decision.Confidence, tt.confidence)
			assert.Equal(t, tt.answer, res.Run.FinalAnswer)
			assert.True(t, res.Run.Terminal())
		})
	}
}

func TestRouterUnknownTargetFails(t *testing.T) {
	classifier := oracle.NewScriptedOracle()
	classifier.PushJSON(Decision{Target: "wiki", Confidence: 0.8, Rationale: "scripted"})

	r := newTestRouter(t, classifier)

	_, err := r.Route(context.Background(), nil, "anything", nil, nil)
	require.Error(t, err)
	assert.Equal(t, core.FailureRouting, core.FailureKindOf(err))
}

func TestRouterClassifierErrorFails(t *testing.T) {
	classifier := oracle.NewScriptedOracle()
	classifier.PushError(&oracle.ModelError{Provider: "scripted", Err: assert.AnError})

	r := newTestRouter(t, classifier)

	_, err := r.Route(context.Background(), nil, "anything", nil, nil)
	require.Error(t, err)
	assert.Equal(t, core.FailureRouting, core.FailureKindOf(err))
}

func TestRouterSeedAndFinalStateJoinAtBoundary(t *testing.T) {
	classifier := oracle.NewScriptedOracle()
	classifier.PushJSON(Decision{Target: TargetTracker, Confidence: 1, Rationale: "scripted"})

	r := newTestRouter(t, classifier)

	seed := core.State{"caller.ctx": "from outside"}

	res, err := r.Route(context.Background(), nil, "anything", seed, nil)
	require.NoError(t, err)

	// The seed is passed into the delegated run and comes back out unchanged.
	assert.Equal(t, "from outside", res.Run.SharedData["caller.ctx"])

	// The classifier call itself never sees or mutates run state.
	require.Len(t, classifier.Calls(), 1)
}

func TestRouterRequiresEngines(t *testing.T) {
	_, err := New(oracle.NewScriptedOracle(), nil)
	require.Error(t, err)
}

func TestRouterSchemaEnumMatchesTargets(t *testing.T) {
	r := newTestRouter(t, oracle.NewScriptedOracle())

	assert.Equal(t, []Target{TargetCodeHost, TargetTracker}, r.Targets())

	props := r.schema()["properties"].(map[string]any)
	enum := props["target"].(map[string]any)["enum"].([]string)
	assert.Equal(t, []string{"codehost", "tracker"}, enum)
}
