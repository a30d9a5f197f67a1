package core

import (
	"context"

	"github.com/hupe1980/taskmesh/logging"
)

// RunContext carries the execution scope of one run: the ambient cancellation
// context, identifiers, the mutable run state, the session, and the optional
// observer channel for progress notices. A run proceeds strictly
// sequentially, so RunContext itself needs no locking; only the observer
// channel may be consumed concurrently.
type RunContext struct {
	Context   context.Context
	SessionID string
	Run       *RunState
	Session   *Session
	Notices   chan<- Event

	*loggerAdapter
}

// NewRunContext constructs a RunContext. Logger and notices may be nil; a nil
// notices channel silently drops progress events.
func NewRunContext(
	ctx context.Context,
	sess *Session,
	run *RunState,
	notices chan<- Event,
	logger logging.Logger,
) *RunContext {
	sessionID := ""
	if sess != nil {
		sessionID = sess.ID
	}
	return &RunContext{
		Context:       ctx,
		SessionID:     sessionID,
		Run:           run,
		Session:       sess,
		Notices:       notices,
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// Notify forwards a progress notice to the observer channel and records it on
// the session. Emission preserves order and never requires acknowledgment;
// with no observer configured the notice is history-only. The channel send is
// non-blocking: a slow or absent reader drops the notice rather than stalling
// the run.
func (rc *RunContext) Notify(author, text string) {
	runID := ""
	if rc.Run != nil {
		runID = rc.Run.ID
	}
	ev := NewEvent(runID, author, text)

	if rc.Session != nil {
		rc.Session.AddEvent(ev)
	}
	if rc.Notices == nil {
		return
	}
	select {
	case rc.Notices <- ev:
	default:
		rc.LogDebug("notify.dropped", "author", author)
	}
}

// WithContext returns a copy of the RunContext bound to ctx. Used to apply
// per-step timeouts without disturbing the parent scope.
func (rc *RunContext) WithContext(ctx context.Context) *RunContext {
	c := *rc
	c.Context = ctx
	return &c
}
