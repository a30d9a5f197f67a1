// Package taskmesh provides a high-level façade over the routed
// plan-execute-replan engines. Most applications interact with this package
// by:
//  1. Creating a TaskMesh via New() (optionally overriding the config,
//     oracle, clients or stores)
//  2. Asking questions with Ask, or AskWithNotices for live progress events
//
// The façade wires the issue-tracker and code-host engines behind a router
// that classifies every request, and joins run results back into the
// caller-owned session. All defaults are safe for local development; a
// production deployment typically supplies a durable session store and a
// structured logger.
package taskmesh

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/taskmesh/aggregate"
	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/engine"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/oracle"
	anthropicoracle "github.com/hupe1980/taskmesh/oracle/anthropic"
	openaioracle "github.com/hupe1980/taskmesh/oracle/openai"
	"github.com/hupe1980/taskmesh/router"
	"github.com/hupe1980/taskmesh/session"
	"github.com/hupe1980/taskmesh/tool"
	"github.com/hupe1980/taskmesh/toolkit"
)

// Options configures a TaskMesh instance.
type Options struct {
	// Config is the runtime configuration. Defaults to config.Default().
	Config *config.Config

	// Oracle overrides the model client built from Config.
	Oracle oracle.Oracle

	// TrackerClient overrides the issue-tracker client built from Config.
	TrackerClient toolkit.TrackerClient

	// CodeHostClient overrides the code-host client built from Config.
	CodeHostClient toolkit.CodeHostClient

	// SessionStore persists sessions and checkpoints. Defaults to in-memory.
	SessionStore core.SessionStore

	// Logger defaults to a logger built from Config's logging section.
	Logger logging.Logger
}

// TaskMesh is the high-level façade aggregating the router, its engines and
// the session store.
type TaskMesh struct {
	opts   Options
	router *router.Router
	store  core.SessionStore
	logger logging.Logger
}

// New creates a TaskMesh with optional overrides. Any unset dependency is
// built from the configuration.
func New(optFns ...func(o *Options)) (*TaskMesh, error) {
	opts := Options{
		Config:       config.Default(),
		SessionStore: session.NewInMemoryStore(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := opts.Config

	logger := opts.Logger
	if logger == nil {
		logger = logging.New(&logging.Config{
			Level:  logging.ParseLevel(cfg.Logging.Level),
			Format: cfg.Logging.Format,
		})
	}

	o := opts.Oracle
	if o == nil {
		built, err := buildOracle(cfg)
		if err != nil {
			return nil, err
		}
		o = built
	}

	trackerClient := opts.TrackerClient
	if trackerClient == nil {
		trackerClient = toolkit.NewHTTPTrackerClient(cfg.Tracker.BaseURL, cfg.Tracker.Token())
	}

	codeHostClient := opts.CodeHostClient
	if codeHostClient == nil {
		codeHostClient = toolkit.NewHTTPCodeHostClient(cfg.CodeHost.Token(), func(o *toolkit.HTTPCodeHostClientOptions) {
			if cfg.CodeHost.BaseURL != "" {
				o.BaseURL = cfg.CodeHost.BaseURL
			}
		})
	}

	aggOpts := func(ao *aggregate.Options) {
		ao.Concurrency = cfg.Run.MapConcurrency
		ao.Logger = logger
	}

	engOpts := func(eo *engine.Options) {
		eo.MaxSteps = cfg.Run.MaxSteps
		eo.PerStepTimeout = cfg.Run.PerStepTimeout.Std()
		eo.MaxToolTurns = cfg.Run.MaxToolTurns
		eo.Logger = logger
	}

	trackerEngine := engine.New(
		"tracker",
		o,
		tool.NewRegistry(toolkit.TrackerTools(trackerClient, o, aggOpts)...),
		engine.TrackerPrompts(),
		engOpts,
	)

	codeHostEngine := engine.New(
		"codehost",
		o,
		tool.NewRegistry(toolkit.CodeHostTools(codeHostClient, o, aggOpts)...),
		engine.CodeHostPrompts(),
		engOpts,
	)

	rt, err := router.New(o, map[router.Target]*engine.Engine{
		router.TargetTracker:  trackerEngine,
		router.TargetCodeHost: codeHostEngine,
	}, func(ro *router.Options) {
		ro.Logger = logger
	})
	if err != nil {
		return nil, err
	}

	return &TaskMesh{
		opts:   opts,
		router: rt,
		store:  opts.SessionStore,
		logger: logger,
	}, nil
}

// Router exposes the underlying router for callers that need classification
// without delegation.
func (m *TaskMesh) Router() *router.Router { return m.router }

// Ask routes the request, runs it to completion and returns the final
// answer. Session state accumulated by earlier requests under the same
// sessionID is passed into the run and the run's resulting shared data is
// merged back afterwards.
func (m *TaskMesh) Ask(ctx context.Context, sessionID, request string) (string, error) {
	return m.AskWithNotices(ctx, sessionID, request, nil)
}

// AskWithNotices is Ask with a live progress stream. Notices are emitted in
// order and never block the run; the caller owns the channel and may stop
// reading at any time (unread notices are dropped), or pass nil to disable.
func (m *TaskMesh) AskWithNotices(ctx context.Context, sessionID, request string, notices chan<- core.Event) (string, error) {
	sess, err := m.store.Get(sessionID)
	if err != nil {
		return "", fmt.Errorf("load session %s: %w", sessionID, err)
	}

	priorEvents := len(sess.GetEvents())
	seed := sess.Snapshot()

	res, err := m.router.Route(ctx, sess, request, seed, notices)

	// Persist whatever the run produced, even on failure, so the session
	// history and a resumable checkpoint survive the error.
	if res != nil && res.Run != nil {
		if storeErr := m.persistRun(sessionID, sess, res.Run, seed, priorEvents); storeErr != nil {
			m.logger.Error("taskmesh.persist.error", "session_id", sessionID, "run_id", res.Run.ID, "error", storeErr)
		}
	}

	if err != nil {
		return "", err
	}

	return res.Run.FinalAnswer, nil
}

func (m *TaskMesh) persistRun(sessionID string, sess *core.Session, run *core.RunState, seed core.State, priorEvents int) error {
	// The run's shared data starts from the session seed; only what the run
	// added or changed is this run's delta.
	if err := m.store.ApplyDelta(sessionID, run.SharedData.Diff(seed)); err != nil {
		return err
	}

	// The run worked on a session clone; only the events it added are new.
	events := sess.GetEvents()
	for _, ev := range events[priorEvents:] {
		if err := m.store.AppendEvent(sessionID, ev); err != nil {
			return err
		}
	}

	blob, err := run.Checkpoint()
	if err != nil {
		return err
	}

	return m.store.SaveCheckpoint(sessionID, run.ID, blob)
}

func buildOracle(cfg *config.Config) (oracle.Oracle, error) {
	apiKey := ""
	if cfg.Oracle.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.Oracle.APIKeyEnv)
	}

	var ora oracle.Oracle
	switch strings.ToLower(cfg.Oracle.Provider) {
	case "openai":
		ora = openaioracle.New(func(o *openaioracle.Options) {
			if cfg.Oracle.Model != "" {
				o.Model = cfg.Oracle.Model
			}
			o.APIKey = apiKey
		})
	case "anthropic":
		ora = anthropicoracle.New(func(o *anthropicoracle.Options) {
			if cfg.Oracle.Model != "" {
				o.Model = anthropic.Model(cfg.Oracle.Model)
			}
			o.APIKey = apiKey
		})
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Oracle.Provider)
	}

	return oracle.WithTimeout(ora, cfg.Oracle.Timeout.Std()), nil
}
