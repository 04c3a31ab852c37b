package evaluator

import (
	"context"
	"reflect"

	"github.com/forgewalk/forge/pkg/forge"
)

// fakeSession is a minimal forge.ITreeSession stand-in so evaluator
// tests can control exactly what CurrentTreeNode/LastTreeAction/
// LastActionResponse report without a real walker.Session.
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

// fakeExpressionExecutor lets a test control exactly what the "C#|"
// expression path returns, without compiling real expr-lang source.
type fakeExpressionExecutor struct {
	result any
	err    error
	calls  int
}

func (f *fakeExpressionExecutor) Execute(ctx context.Context, source string, knownType reflect.Type, session forge.ITreeSession) (any, error) {
	f.calls++
	return f.result, f.err
}

// fakeExternalExecutor records the payload and ctx it was called with,
// so tests can assert on session-scoping behavior.
type fakeExternalExecutor struct {
	result   any
	err      error
	lastCtx  context.Context
	lastPayload string
}

func (f *fakeExternalExecutor) Execute(ctx context.Context, payload string) (any, error) {
	f.lastCtx = ctx
	f.lastPayload = payload
	return f.result, f.err
}

var _ forge.ExternalExecutor = (*fakeExternalExecutor)(nil)
var _ forge.ExpressionExecutor = (*fakeExpressionExecutor)(nil)
