package core

import (
	"fmt"
	"reflect"
	"sort"
)

// State is the shared key/value space threaded through a run. Producers
// contribute whole patches that are merged key-wise; keys are namespaced by
// producer (see StateKey) so distinct producers never collide and the merge
// is commutative across them. Within a single key the last write wins, which
// by the namespacing convention means only a producer overwrites its own
// prior value.
//
// State values must be JSON-serializable to keep run checkpoints opaque-blob
// round-trippable.
type State map[string]any

// StateKey builds the canonical producer-namespaced key "<producer>.<callID>".
// Tools use their name as producer and the function call ID as callID so
// concurrent invocations of the same tool write to distinct keys.
func StateKey(producer, callID string) string {
	return fmt.Sprintf("%s.%s", producer, callID)
}

// Merge returns a new State holding the key-wise union of s and patch. Keys
// present in patch overwrite the same key in s. Neither input is mutated, so
// callers can treat the operation as a single compare-and-set style update.
// Merge is associative, and commutative across patches with disjoint key sets.
func (s State) Merge(patch State) State {
	merged := make(State, len(s)+len(patch))
	for k, v := range s {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// Keys returns the sorted key set of the state.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Diff returns the patch that, merged into base, yields s: every key whose
// value is new or changed relative to base. Keys present only in base are not
// reported; patches add and overwrite, they never delete.
func (s State) Diff(base State) State {
	delta := make(State)
	for k, v := range s {
		old, exists := base[k]
		if !exists || !reflect.DeepEqual(old, v) {
			delta[k] = v
		}
	}
	return delta
}

// Clone returns a shallow copy of the state. Values are shared; producers
// must not mutate values after contributing them.
func (s State) Clone() State {
	c := make(State, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}
