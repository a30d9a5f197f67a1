package aggregate

import "fmt"

// Unit is one normalized item of content handed to the aggregator: a ticket,
// a commit, a pull request or arbitrary text, flattened to a content string
// plus metadata. Units are created on demand from raw external data and
// discarded after the run; nothing here persists.
type Unit struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TextUnit wraps plain text as a Unit.
func TextUnit(text string) Unit {
	return Unit{Content: text}
}

// Label returns a short identifier for the unit used in gap annotations and
// logging: the "key" metadata entry if present, else a positional label.
func (u Unit) Label(index int) string {
	if key, ok := u.Metadata["key"]; ok && key != "" {
		return key
	}
	return fmt.Sprintf("item %d", index+1)
}
