package mcpserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgewalk/forge/pkg/forge"
)

type mockManager struct {
	startOrResumeFn func(ctx context.Context, sessionID string, tree forge.ForgeTree, startKey string) (forge.WalkStatus, error)
	sessions        map[string]forge.ITreeSession
	cancelled       map[string]bool
}

func newMockManager() *mockManager {
	return &mockManager{sessions: map[string]forge.ITreeSession{}, cancelled: map[string]bool{}}
}

func (m *mockManager) StartOrResume(ctx context.Context, sessionID string, tree forge.ForgeTree, startKey string) (forge.WalkStatus, error) {
	if m.startOrResumeFn != nil {
		return m.startOrResumeFn(ctx, sessionID, tree, startKey)
	}
	return forge.StatusRanToCompletion, nil
}

func (m *mockManager) Get(sessionID string) (forge.ITreeSession, bool) {
	s, ok := m.sessions[sessionID]
	return s, ok
}

func (m *mockManager) Cancel(sessionID string) bool {
	if _, ok := m.sessions[sessionID]; !ok {
		return false
	}
	m.cancelled[sessionID] = true
	return true
}

func TestNewServer(t *testing.T) {
	s := NewServer(ServerDeps{Manager: newMockManager()})
	require.NotNil(t, s)
	assert.NotNil(t, s.mcpServer)
	assert.NotNil(t, s.logger)
}

func TestToolRegistration(t *testing.T) {
	s := NewServer(ServerDeps{Manager: newMockManager()})

	tools := s.mcpServer.ListTools()
	require.Len(t, tools, 3)

	for _, name := range []string{"forge_walk", "forge_status", "forge_cancel"} {
		tool := s.mcpServer.GetTool(name)
		assert.NotNil(t, tool, "tool %s should be registered", name)
	}
}
