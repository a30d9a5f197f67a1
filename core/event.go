package core

import (
	"time"

	"github.com/google/uuid"
)

// Event is a human-readable progress notice emitted during a run ("retrieved
// 12 items", "map-reduce analysis complete"). Events flow one-way through the
// run's observer channel: ordered, at most once per occurrence, no
// acknowledgment. Consumers may ignore them entirely without affecting
// correctness. After emission an event is immutable.
type Event struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates a progress notice authored by author for the given run.
func NewEvent(runID, author, text string) Event {
	return Event{
		ID:        NewID(),
		RunID:     runID,
		Author:    author,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// NewID generates a new unique identifier for runs, events and tool calls.
func NewID() string { return uuid.NewString() }
