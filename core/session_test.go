package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStateAndEvents(t *testing.T) {
	sess := NewSession("s1")

	sess.SetState("pref", "terse")
	v, ok := sess.GetState("pref")
	require.True(t, ok)
	assert.Equal(t, "terse", v)

	sess.MergeState(State{"a": 1, "b": 2})
	snap := sess.Snapshot()
	assert.Len(t, snap, 3)

	// snapshot is isolated from the session
	snap["c"] = 3
	_, ok = sess.GetState("c")
	assert.False(t, ok)

	sess.AddEvent(NewEvent("r1", "tool", "retrieved 3 items"))
	events := sess.GetEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "retrieved 3 items", events[0].Text)
}

func TestSessionClone(t *testing.T) {
	sess := NewSession("s1")
	sess.SetState("k", "v")
	sess.AddEvent(NewEvent("r1", "engine", "planning"))

	clone := sess.Clone()
	clone.SetState("k", "changed")
	clone.AddEvent(NewEvent("r1", "engine", "executing"))

	v, _ := sess.GetState("k")
	assert.Equal(t, "v", v)
	assert.Len(t, sess.GetEvents(), 1)
}

func TestRunContextNotify(t *testing.T) {
	sess := NewSession("s1")
	run := NewRunState("obj", nil)
	notices := make(chan Event, 4)
	rc := NewRunContext(context.Background(), sess, run, notices, nil)

	rc.Notify("tool", "first")
	rc.Notify("tool", "second")

	ev1 := <-notices
	ev2 := <-notices
	assert.Equal(t, "first", ev1.Text)
	assert.Equal(t, "second", ev2.Text)
	assert.Equal(t, run.ID, ev1.RunID)

	// order preserved in the session history too
	events := sess.GetEvents()
	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].Text)
}

func TestRunContextNotifyWithoutObserver(t *testing.T) {
	sess := NewSession("s1")
	rc := NewRunContext(context.Background(), sess, NewRunState("obj", nil), nil, nil)

	// must not block or panic
	rc.Notify("engine", "no consumer")
	assert.Len(t, sess.GetEvents(), 1)
}

func TestToolContextPatchIsolation(t *testing.T) {
	rc := NewRunContext(context.Background(), NewSession("s1"), NewRunState("obj", nil), nil, nil)
	view := State{"existing": "x"}
	tc := NewToolContext(rc, "fc1", view)

	v, ok := tc.GetState("existing")
	require.True(t, ok)
	assert.Equal(t, "x", v)

	key := tc.StateKey("tracker_search")
	assert.Equal(t, "tracker_search.fc1", key)

	tc.SetState(key, []string{"t1"})
	staged, ok := tc.GetState(key)
	require.True(t, ok)
	assert.Equal(t, []string{"t1"}, staged)

	// writes stay in the patch, the view is untouched
	_, ok = view[key]
	assert.False(t, ok)
	assert.Len(t, tc.Patch(), 1)
}
