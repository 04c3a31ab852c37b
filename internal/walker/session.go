// Package walker implements the core of forge: the tree walk driver, the
// node behavior dispatcher, the child selector, the action-node executor,
// the retry controller, and single-action invocation.
//
// Keeps the same division of responsibility as an executor loop over a
// DAG of steps (an outer loop that commits state and fires callbacks
// around a per-node dispatch, an inner fan-out that races sibling tasks
// against a timeout), adapted to a strict node-to-node tree walk.
package walker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/forgewalk/forge/internal/evaluator"
	"github.com/forgewalk/forge/internal/logging"
	"github.com/forgewalk/forge/internal/state"
	"github.com/forgewalk/forge/pkg/forge"
)

// Session drives a walk of a ForgeTree to completion. WalkTree may be
// called again on the same Session once a previous call has returned
// (Manager does this to resume a session by ID); overlapping calls are
// not supported. The observable getters remain valid afterward.
type Session struct {
	id     string
	tree   forge.ForgeTree
	deps   forge.Dependencies
	eval   *evaluator.Evaluator
	pool   *Pool
	logger *slog.Logger

	mu     sync.Mutex
	status forge.WalkStatus
	cancel context.CancelFunc
}

// Option configures a Session at construction.
type Option func(*Session)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithPoolSize bounds the number of concurrently in-flight action
// goroutines across the whole session (not just one node); see pool.go.
func WithPoolSize(size int) Option {
	return func(s *Session) { s.pool = NewPool(size) }
}

// New creates a Session bound to tree and deps, identified by id. The
// session is Initialized until WalkTree is called.
func New(id string, tree forge.ForgeTree, deps forge.Dependencies, opts ...Option) *Session {
	s := &Session{
		id:     id,
		tree:   tree,
		deps:   deps,
		status: forge.StatusInitialized,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pool == nil {
		s.pool = NewPool(64)
	}
	s.eval = evaluator.New(deps.Evaluator, deps.External, s)
	return s
}

var _ forge.ITreeSession = (*Session)(nil)

// SessionID returns the identifier this session's state is namespaced
// under.
func (s *Session) SessionID() string { return s.id }

// Status returns the current or final walk status.
func (s *Session) Status() forge.WalkStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) setStatus(status forge.WalkStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// CancelWalkTree requests cooperative cancellation of an in-flight walk.
// Safe to call before, during, or after a walk.
func (s *Session) CancelWalkTree() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// GetOutput returns the committed ActionResponse for actionKey, if any
// response has been committed for it. State read failures are swallowed
// and surfaced as absence.
func (s *Session) GetOutput(ctx context.Context, actionKey string) (forge.ActionResponse, bool, error) {
	return s.readResponse(ctx, actionKey)
}

// GetLastActionResponse returns the response for the action named by the
// LTA state key, if one has been committed.
func (s *Session) GetLastActionResponse(ctx context.Context) (forge.ActionResponse, bool, error) {
	actionKey, ok, err := s.GetLastTreeAction(ctx)
	if err != nil || !ok {
		return nil, false, nil
	}
	return s.readResponse(ctx, actionKey)
}

// GetCurrentTreeNode returns the node key named by the CTN state key, if
// the walk has committed at least one node.
func (s *Session) GetCurrentTreeNode(ctx context.Context) (string, bool, error) {
	b, ok, err := s.deps.State.Get(ctx, s.id, state.CTNKey())
	if err != nil || !ok {
		return "", false, nil
	}
	return string(b), true, nil
}

// GetLastTreeAction returns the action key named by the LTA state key, if
// one has been committed.
func (s *Session) GetLastTreeAction(ctx context.Context) (string, bool, error) {
	b, ok, err := s.deps.State.Get(ctx, s.id, state.LTAKey())
	if err != nil || !ok {
		return "", false, nil
	}
	return string(b), true, nil
}

func (s *Session) readResponse(ctx context.Context, actionKey string) (forge.ActionResponse, bool, error) {
	b, ok, err := s.deps.State.Get(ctx, s.id, state.ActionResponseKey(actionKey))
	if err != nil || !ok {
		return nil, false, nil
	}
	var resp forge.ActionResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, false, nil
	}
	return resp, true, nil
}

// commitCTN persists the node the walk is about to visit, before
// BeforeVisitNode fires.
func (s *Session) commitCTN(ctx context.Context, nodeKey string) error {
	if err := s.deps.State.Set(ctx, s.id, state.CTNKey(), []byte(nodeKey)); err != nil {
		return forge.NewErrorf(forge.ErrCodeStore, "commit CTN for node %s: %s", nodeKey, err.Error()).
			WithCause(err).WithNode(nodeKey)
	}
	return nil
}

// commitResponse persists resp under actionKey's response key, then the
// LTA pointer — the response write always happens-before the LTA
// write, so a crash between the two never makes LTA point at an
// uncommitted response.
func (s *Session) commitResponse(ctx context.Context, actionKey string, resp forge.ActionResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return forge.NewErrorf(forge.ErrCodeFailed, "marshal response for action %s: %s", actionKey, err.Error()).
			WithCause(err).WithAction(actionKey)
	}
	if err := s.deps.State.Set(ctx, s.id, state.ActionResponseKey(actionKey), b); err != nil {
		return forge.NewErrorf(forge.ErrCodeStore, "commit response for action %s: %s", actionKey, err.Error()).
			WithCause(err).WithAction(actionKey)
	}
	if err := s.deps.State.Set(ctx, s.id, state.LTAKey(), []byte(actionKey)); err != nil {
		return forge.NewErrorf(forge.ErrCodeStore, "commit LTA for action %s: %s", actionKey, err.Error()).
			WithCause(err).WithAction(actionKey)
	}
	return nil
}

func (s *Session) logCtx(ctx context.Context, nodeKey, actionKey string) context.Context {
	return logging.WithIDs(ctx, s.id, nodeKey, actionKey)
}
