package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMergeCommutativeAcrossNamespaces(t *testing.T) {
	base := State{"seed": "s"}
	p1 := State{StateKey("tracker_search", "fc1"): []string{"a", "b"}}
	p2 := State{StateKey("codehost_commits", "fc2"): 42}

	ab := base.Merge(p1).Merge(p2)
	ba := base.Merge(p2).Merge(p1)

	assert.Equal(t, ab, ba)
	assert.Len(t, ab, 3)
}

func TestStateMergeLastWriteWinsPerKey(t *testing.T) {
	s := State{"k": 1}
	merged := s.Merge(State{"k": 2})

	assert.Equal(t, 2, merged["k"])
	// original untouched: merges are copy-on-write
	assert.Equal(t, 1, s["k"])
}

func TestStateMergeAssociative(t *testing.T) {
	s := State{"a": 1}
	p1 := State{"b": 2}
	p2 := State{"c": 3}

	left := s.Merge(p1).Merge(p2)
	right := s.Merge(p1.Merge(p2))

	assert.Equal(t, left, right)
}

func TestStateCloneIsolation(t *testing.T) {
	s := State{"a": 1}
	c := s.Clone()
	c["b"] = 2

	_, ok := s["b"]
	require.False(t, ok)
}

func TestStateKey(t *testing.T) {
	assert.Equal(t, "tracker_search.fc-123", StateKey("tracker_search", "fc-123"))
}

func TestStateDiff(t *testing.T) {
	seed := State{"a.1": "seed", "b.1": []any{"x"}}
	after := seed.Merge(State{"c.1": "new", "a.1": "changed"})

	delta := after.Diff(seed)

	assert.Equal(t, State{"a.1": "changed", "c.1": "new"}, delta)
	assert.Equal(t, after, seed.Merge(delta))
}
