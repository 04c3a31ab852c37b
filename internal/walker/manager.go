package walker

import (
	"context"
	"sync"

	"github.com/forgewalk/forge/pkg/forge"
)

// Manager tracks one *Session per session ID across its lifetime so a
// host (the MCP surface, the cron scheduler, a CLI resume command) can
// start, rehydrate, or query a session by ID without holding a
// reference to the Session value itself.
type Manager struct {
	deps forge.Dependencies
	opts []Option

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager whose sessions all share deps and opts.
func NewManager(deps forge.Dependencies, opts ...Option) *Manager {
	return &Manager{
		deps:     deps,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// StartOrResume runs WalkTree for sessionID against tree, creating the
// backing Session on first use and reusing it (so rehydration and
// cancellation remain correct) on every subsequent call for the same
// session ID.
func (m *Manager) StartOrResume(ctx context.Context, sessionID string, tree forge.ForgeTree, startKey string) (forge.WalkStatus, error) {
	sess := m.getOrCreate(sessionID, tree)
	return sess.WalkTree(ctx, startKey)
}

// Resume satisfies scheduler.Resumer.
func (m *Manager) Resume(ctx context.Context, sessionID string, tree forge.ForgeTree, startKey string) (forge.WalkStatus, error) {
	return m.StartOrResume(ctx, sessionID, tree, startKey)
}

// Get returns the tracked session for sessionID, if this Manager has
// seen it before. A session that only ever existed in a prior process
// (known solely through durable state) is not visible here until
// StartOrResume creates a fresh in-memory Session for it.
func (m *Manager) Get(sessionID string) (forge.ITreeSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// Cancel requests cancellation of a tracked session's in-progress walk,
// if any. Reports false if the session is unknown.
func (m *Manager) Cancel(sessionID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.CancelWalkTree()
	return true
}

// Shutdown waits for every tracked session's pool goroutines (one
// retry controller per in-flight action) to drain. Intended for
// graceful process exit. An action invocation abandoned after its
// timeout keeps running in its own goroutine, outside the pool, and is
// not waited for.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.pool.Wait()
	}
}

func (m *Manager) getOrCreate(sessionID string, tree forge.ForgeTree) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		return s
	}
	s := New(sessionID, tree, m.deps, m.opts...)
	m.sessions[sessionID] = s
	return s
}
