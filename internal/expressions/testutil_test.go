package expressions

import (
	"context"

	"github.com/forgewalk/forge/pkg/forge"
)

// fakeSession is a minimal forge.ITreeSession for exercising BuildScope
// and the executors that consume it, without a real walker.Session.
type fakeSession struct {
	id           string
	node         string
	nodeOK       bool
	lastAction   string
	lastActionOK bool
	lastResponse forge.ActionResponse
	lastRespOK   bool
}

func (s *fakeSession) WalkTree(ctx context.Context, startKey string) (forge.WalkStatus, error) {
	return forge.StatusRanToCompletion, nil
}
func (s *fakeSession) CancelWalkTree()        {}
func (s *fakeSession) Status() forge.WalkStatus { return forge.StatusRanToCompletion }
func (s *fakeSession) GetOutput(ctx context.Context, actionKey string) (forge.ActionResponse, bool, error) {
	return nil, false, nil
}
func (s *fakeSession) GetLastActionResponse(ctx context.Context) (forge.ActionResponse, bool, error) {
	return s.lastResponse, s.lastRespOK, nil
}
func (s *fakeSession) GetCurrentTreeNode(ctx context.Context) (string, bool, error) {
	return s.node, s.nodeOK, nil
}
func (s *fakeSession) GetLastTreeAction(ctx context.Context) (string, bool, error) {
	return s.lastAction, s.lastActionOK, nil
}
func (s *fakeSession) SessionID() string { return s.id }

var _ forge.ITreeSession = (*fakeSession)(nil)
