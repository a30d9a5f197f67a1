package taskmesh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/engine"
	"github.com/hupe1980/taskmesh/oracle"
	"github.com/hupe1980/taskmesh/router"
	"github.com/hupe1980/taskmesh/session"
	"github.com/hupe1980/taskmesh/toolkit"
)

type scriptedTrackerClient struct {
	items []toolkit.Item
}

func (s *scriptedTrackerClient) Search(ctx context.Context, query string, start, limit int) ([]toolkit.Item, error) {
	return s.items, nil
}

func TestAskTrackerEndToEnd(t *testing.T) {
	scripted := oracle.NewScriptedOracle()
	// Classification.
	scripted.PushJSON(router.Decision{Target: router.TargetTracker, Confidence: 0.97, Rationale: "issue question"})
	// Plan.
	scripted.PushJSON(map[string]any{"steps": []string{"search open issues", "summarize them"}})
	// Step 1: search via tool, then report.
	scripted.PushToolCall("call1", "tracker_search", `{"query":"project = PROJ AND status = Open","limit":10}`)
	scripted.PushText("Stored the open issues in shared memory.")
	// Replan: one step left.
	scripted.PushJSON(engine.Decision{Action: "continue", Steps: []string{"summarize them"}})
	// Step 2: summarize via tool (map, map, reduce), then report.
	scripted.PushToolCall("call2", "summarize_content", `{"memory_key":"tracker_search.call1"}`)
	scripted.PushText("partial summary one")
	scripted.PushText("partial summary two")
	scripted.PushText("Both issues concern the login flow.")
	scripted.PushText("Summarized the issues.")
	// Replan: conclude.
	scripted.PushJSON(engine.Decision{Action: "conclude", Answer: "Both issues concern the login flow."})

	cfg := config.Default()
	cfg.Run.MapConcurrency = 1 // deterministic script order

	store := session.NewInMemoryStore()

	mesh, err := New(func(o *Options) {
		o.Config = cfg
		o.Oracle = scripted
		o.SessionStore = store
		o.TrackerClient = &scriptedTrackerClient{items: []toolkit.Item{
			{Key: "PROJ-1", Summary: "login broken"},
			{Key: "PROJ-2", Summary: "login slow"},
		}}
	})
	require.NoError(t, err)

	answer, err := mesh.Ask(context.Background(), "sess1", "summarize the open issues in PROJ")
	require.NoError(t, err)
	assert.Equal(t, "Both issues concern the login flow.", answer)

	// The run's shared data is merged back into the stored session.
	sess, err := store.Get("sess1")
	require.NoError(t, err)

	stored, ok := sess.GetState("tracker_search.call1")
	require.True(t, ok)
	assert.Len(t, stored, 2)

	// Progress events were recorded in order, starting with the routing notice.
	events := sess.GetEvents()
	require.NotEmpty(t, events)
	assert.Equal(t, "router", events[0].Author)
	assert.Contains(t, events[0].Text, "tracker")
}

func TestAskSessionStateCarriesOver(t *testing.T) {
	scripted := oracle.NewScriptedOracle()

	// First request fetches and stores items.
	scripted.PushJSON(router.Decision{Target: router.TargetTracker, Confidence: 0.9, Rationale: "scripted"})
	scripted.PushJSON(map[string]any{"steps": []string{"search issues"}})
	scripted.PushToolCall("call1", "tracker_search", `{"query":"project = PROJ"}`)
	scripted.PushText("stored")
	scripted.PushJSON(engine.Decision{Action: "conclude", Answer: "fetched"})

	// Second request summarizes the items fetched by the first one.
	scripted.PushJSON(router.Decision{Target: router.TargetTracker, Confidence: 0.9, Rationale: "scripted"})
	scripted.PushJSON(map[string]any{"steps": []string{"summarize the earlier search"}})
	scripted.PushToolCall("call2", "summarize_content", `{"memory_key":"tracker_search.call1"}`)
	scripted.PushText("partial")
	scripted.PushText("one issue about login")
	scripted.PushText("summarized")
	scripted.PushJSON(engine.Decision{Action: "conclude", Answer: "one issue about login"})

	cfg := config.Default()
	cfg.Run.MapConcurrency = 1

	mesh, err := New(func(o *Options) {
		o.Config = cfg
		o.Oracle = scripted
		o.TrackerClient = &scriptedTrackerClient{items: []toolkit.Item{{Key: "PROJ-1", Summary: "login broken"}}}
	})
	require.NoError(t, err)

	_, err = mesh.Ask(context.Background(), "sess1", "fetch the PROJ issues")
	require.NoError(t, err)

	answer, err := mesh.Ask(context.Background(), "sess1", "now summarize what you fetched")
	require.NoError(t, err)
	assert.Equal(t, "one issue about login", answer)
}

type deltaRecordingStore struct {
	*session.InMemoryStore
	deltas []core.State
}

func (s *deltaRecordingStore) ApplyDelta(sessionID string, delta core.State) error {
	s.deltas = append(s.deltas, delta)
	return s.InMemoryStore.ApplyDelta(sessionID, delta)
}

func TestAskPersistsOnlyRunDelta(t *testing.T) {
	scripted := oracle.NewScriptedOracle()
	scripted.PushJSON(router.Decision{Target: router.TargetTracker, Confidence: 0.9, Rationale: "scripted"})
	scripted.PushJSON(map[string]any{"steps": []string{"search issues"}})
	scripted.PushToolCall("call1", "tracker_search", `{"query":"project = PROJ"}`)
	scripted.PushText("stored")
	scripted.PushJSON(engine.Decision{Action: "conclude", Answer: "fetched"})

	store := &deltaRecordingStore{InMemoryStore: session.NewInMemoryStore()}
	require.NoError(t, store.ApplyDelta("sess1", core.State{"earlier.call0": "kept"}))
	store.deltas = nil

	mesh, err := New(func(o *Options) {
		o.Config = config.Default()
		o.Oracle = scripted
		o.SessionStore = store
		o.TrackerClient = &scriptedTrackerClient{items: []toolkit.Item{{Key: "PROJ-1", Summary: "login broken"}}}
	})
	require.NoError(t, err)

	_, err = mesh.Ask(context.Background(), "sess1", "fetch the PROJ issues")
	require.NoError(t, err)

	// The seed snapshot taken from the session is not written back; only the
	// key this run contributed is.
	require.Len(t, store.deltas, 1)
	assert.Equal(t, []string{"tracker_search.call1"}, store.deltas[0].Keys())
}

func TestAskWithNoticesStreams(t *testing.T) {
	scripted := oracle.NewScriptedOracle()
	scripted.PushJSON(router.Decision{Target: router.TargetCodeHost, Confidence: 0.8, Rationale: "scripted"})
	scripted.PushJSON(map[string]any{"steps": []string{"report"}})
	scripted.PushText("nothing to do")
	scripted.PushJSON(engine.Decision{Action: "conclude", Answer: "done"})

	mesh, err := New(func(o *Options) {
		o.Oracle = scripted
	})
	require.NoError(t, err)

	notices := make(chan core.Event, 32)

	answer, err := mesh.AskWithNotices(context.Background(), "sess1", "what changed in REPO-B", notices)
	require.NoError(t, err)
	assert.Equal(t, "done", answer)

	close(notices)

	var authors []string
	for ev := range notices {
		authors = append(authors, ev.Author)
	}

	require.NotEmpty(t, authors)
	assert.Equal(t, "router", authors[0])
	assert.Contains(t, authors, "codehost")
}

func TestAskClassifierFailure(t *testing.T) {
	scripted := oracle.NewScriptedOracle()
	scripted.PushError(&oracle.ModelError{Provider: "scripted", Err: assert.AnError})

	mesh, err := New(func(o *Options) {
		o.Oracle = scripted
	})
	require.NoError(t, err)

	_, err = mesh.Ask(context.Background(), "sess1", "anything")
	require.Error(t, err)
	assert.Equal(t, core.FailureRouting, core.FailureKindOf(err))
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Oracle.Provider = "cohere"

	_, err := New(func(o *Options) {
		o.Config = cfg
	})
	require.Error(t, err)
}
