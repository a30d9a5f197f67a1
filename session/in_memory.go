package session

import (
	"fmt"
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

// InMemoryStore is a volatile SessionStore implementation storing sessions
// and run checkpoints in process local maps. It is safe for concurrent access
// and best suited for tests or ephemeral demos. Each returned session is
// cloned to prevent external mutation of internal state.
type InMemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*core.Session
	checkpoints map[string][]byte
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:    make(map[string]*core.Session),
		checkpoints: make(map[string][]byte),
	}
}

// Create forces the creation (or overwriting) of a session with the given id.
func (s *InMemoryStore) Create(sessionID string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSessionLocked(sessionID).Clone(), nil
}

// Get returns an existing session (clone) or creates a new one lazily.
func (s *InMemoryStore) Get(sessionID string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess.Clone(), nil
	}
	return s.createSessionLocked(sessionID).Clone(), nil
}

// AppendEvent adds an event to an existing or newly created session.
func (s *InMemoryStore) AppendEvent(sessionID string, ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = s.createSessionLocked(sessionID)
	}
	sess.AddEvent(ev)
	return nil
}

// ApplyDelta merges a whole state patch into the session state.
func (s *InMemoryStore) ApplyDelta(sessionID string, delta core.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = s.createSessionLocked(sessionID)
	}
	sess.MergeState(delta)
	return nil
}

// SaveCheckpoint stores an opaque run checkpoint blob under the session/run
// pair, overwriting any earlier checkpoint of the same run.
func (s *InMemoryStore) SaveCheckpoint(sessionID, runID string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(blob))
	copy(stored, blob)

	s.checkpoints[checkpointKey(sessionID, runID)] = stored

	return nil
}

// LoadCheckpoint returns a previously stored checkpoint blob.
func (s *InMemoryStore) LoadCheckpoint(sessionID, runID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blob, ok := s.checkpoints[checkpointKey(sessionID, runID)]
	if !ok {
		return nil, fmt.Errorf("no checkpoint for session %s run %s", sessionID, runID)
	}

	out := make([]byte, len(blob))
	copy(out, blob)

	return out, nil
}

// createSessionLocked allocates and stores a new session; caller must already
// hold the write lock.
func (s *InMemoryStore) createSessionLocked(sessionID string) *core.Session {
	sess := core.NewSession(sessionID)
	s.sessions[sessionID] = sess
	return sess
}

func checkpointKey(sessionID, runID string) string {
	return sessionID + "/" + runID
}
