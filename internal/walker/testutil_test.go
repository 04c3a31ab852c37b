package walker

import (
	"github.com/forgewalk/forge/internal/actions"
	"github.com/forgewalk/forge/internal/expressions"
	"github.com/forgewalk/forge/pkg/forge"
)

// fakeAction adapts a plain closure to forge.Action, so each test can
// define its action behavior inline instead of a named type per case.
type fakeAction struct {
	forge.BaseAction
	run func(forge.ActionContext) (forge.ActionResponse, error)
}

func (a *fakeAction) RunAction(ctx forge.ActionContext) (forge.ActionResponse, error) {
	return a.run(ctx)
}

// defineAction registers a closure-backed action under name, with an
// optional nil InputType (the map[string]any shape every test here
// uses).
func defineAction(t testingT, reg *actions.Registry, name string, run func(forge.ActionContext) (forge.ActionResponse, error)) {
	err := reg.RegisterDefinition(&forge.ActionDefinition{
		Name:      name,
		InputType: nil,
		New:       func() forge.Action { return &fakeAction{run: run} },
	})
	if err != nil {
		t.Fatalf("register action %q: %v", name, err)
	}
}

// testingT is the subset of *testing.T defineAction needs, so it can
// be called from table-driven helpers without importing testing twice.
type testingT interface {
	Fatalf(format string, args ...any)
}

// newTestDeps builds a forge.Dependencies wired the way cmd/forge wires
// one: a real expr-lang evaluator over an in-memory state store and the
// given registry, with no external executors unless the caller adds
// them.
func newTestDeps(st forge.ForgeState, reg *actions.Registry) forge.Dependencies {
	return forge.Dependencies{
		State:     st,
		Registry:  reg,
		Evaluator: expressions.NewExprExecutor(),
	}
}

// countingAction fails the first `failures` calls and succeeds on every
// call after them, counting attempts by ordinal rather than timestamp.
func countingAction(failures int, okResp forge.ActionResponse, failErr error) func(forge.ActionContext) (forge.ActionResponse, error) {
	attempt := 0
	return func(ctx forge.ActionContext) (forge.ActionResponse, error) {
		attempt++
		if attempt <= failures {
			return nil, failErr
		}
		return okResp, nil
	}
}

func blockingAction(done <-chan struct{}) func(forge.ActionContext) (forge.ActionResponse, error) {
	return func(ctx forge.ActionContext) (forge.ActionResponse, error) {
		select {
		case <-done:
			return forge.ActionResponse{"status": "ok"}, nil
		case <-ctx.Ctx.Done():
			return nil, ctx.Ctx.Err()
		}
	}
}
