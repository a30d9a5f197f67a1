package toolkit

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/taskmesh/aggregate"
)

// UnitsFromMemory converts a shared-memory value into aggregation units. It
// recognizes the typed collections the retrieval tools store; anything else
// degrades to a generic text rendering, so analysis still works on values a
// checkpoint round-trip has reduced to plain JSON shapes.
func UnitsFromMemory(value any) []aggregate.Unit {
	switch v := value.(type) {
	case nil:
		return nil
	case []aggregate.Unit:
		return v
	case []Item:
		units := make([]aggregate.Unit, 0, len(v))
		for _, item := range v {
			units = append(units, ItemUnit(item))
		}
		return units
	case []Commit:
		units := make([]aggregate.Unit, 0, len(v))
		for _, c := range v {
			units = append(units, CommitUnit(c))
		}
		return units
	case []PullRequest:
		units := make([]aggregate.Unit, 0, len(v))
		for _, pr := range v {
			units = append(units, PullRequestUnit(pr))
		}
		return units
	case []any:
		units := make([]aggregate.Unit, 0, len(v))
		for _, item := range v {
			units = append(units, genericUnit(item))
		}
		return units
	case string:
		return []aggregate.Unit{aggregate.TextUnit(v)}
	default:
		return []aggregate.Unit{genericUnit(v)}
	}
}

func genericUnit(value any) aggregate.Unit {
	if s, ok := value.(string); ok {
		return aggregate.TextUnit(s)
	}

	blob, err := json.Marshal(value)
	if err != nil {
		return aggregate.TextUnit(fmt.Sprintf("%v", value))
	}

	u := aggregate.TextUnit(string(blob))

	// Keep the item identifier as the label when the JSON shape carries one.
	if m, ok := value.(map[string]any); ok {
		if key, ok := m["key"].(string); ok && key != "" {
			u.Metadata = map[string]string{"key": key}
		}
	}

	return u
}

func toStringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
