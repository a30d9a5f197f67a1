package core

import (
	"sync"
	"time"
)

// Session is the explicit, caller-owned container joining consecutive
// requests: key/value state passed into runs and read back out, plus the
// ordered history of progress events. It is safe for concurrent access and
// never lives in package-level globals; callers pass it by reference into the
// Router or an Engine.
type Session struct {
	ID      string    `json:"id"`
	State   State     `json:"state"`
	Events  []Event   `json:"events"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
	mu      sync.RWMutex
}

// NewSession creates a new empty session with the given ID.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{ID: id, State: State{}, Events: []Event{}, Created: now, Updated: now}
}

// GetState returns the value and existence flag for a state key.
func (s *Session) GetState(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.State[key]
	return v, ok
}

// SetState sets a single key/value pair, updating the Updated timestamp.
func (s *Session) SetState(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State[key] = value
	s.Updated = time.Now()
}

// MergeState merges a whole patch into the session state in one step.
func (s *Session) MergeState(patch State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = s.State.Merge(patch)
	s.Updated = time.Now()
}

// Snapshot returns a copy of the session state safe to hand to a run.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State.Clone()
}

// AddEvent appends a progress event to the history.
func (s *Session) AddEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, ev)
	s.Updated = time.Now()
}

// GetEvents returns a copy of the full event slice.
func (s *Session) GetEvents() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]Event, len(s.Events))
	copy(events, s.Events)
	return events
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{
		ID:      s.ID,
		State:   s.State.Clone(),
		Events:  make([]Event, len(s.Events)),
		Created: s.Created,
		Updated: s.Updated,
	}
	copy(clone.Events, s.Events)
	return clone
}

// SessionStore persists sessions, their evolving state and run checkpoints.
type SessionStore interface {
	Create(id string) (*Session, error)
	Get(id string) (*Session, error)
	AppendEvent(sessionID string, event Event) error
	ApplyDelta(sessionID string, delta State) error

	// SaveCheckpoint stores an opaque run checkpoint blob for later resumption.
	SaveCheckpoint(sessionID, runID string, blob []byte) error
	// LoadCheckpoint returns a previously stored checkpoint blob.
	LoadCheckpoint(sessionID, runID string) ([]byte, error)
}
