package actions

import (
	"reflect"
	"time"

	"github.com/forgewalk/forge/pkg/forge"
)

// CoreActions returns the minimal action set every registry carries
// regardless of domain: a pass-through no-op useful for leaf summary
// nodes and test trees, and a cancellable sleep useful for exercising
// timeouts and retries deterministically.
func CoreActions() []NamedAction {
	return []NamedAction{
		&coreNoopAction{},
		&coreSleepAction{},
	}
}

// --- core.noop ---

type coreNoopAction struct {
	forge.BaseAction
}

func (a *coreNoopAction) Name() string           { return "core.noop" }
func (a *coreNoopAction) InputType() reflect.Type { return nil }

func (a *coreNoopAction) RunAction(ctx forge.ActionContext) (forge.ActionResponse, error) {
	params := asMap(ctx.Input)
	if len(params) == 0 {
		return forge.ActionResponse{"ok": true}, nil
	}
	resp := make(forge.ActionResponse, len(params))
	for k, v := range params {
		resp[k] = v
	}
	return resp, nil
}

// --- core.sleep ---

type coreSleepAction struct {
	forge.BaseAction
}

func (a *coreSleepAction) Name() string           { return "core.sleep" }
func (a *coreSleepAction) InputType() reflect.Type { return nil }

func (a *coreSleepAction) RunAction(ctx forge.ActionContext) (forge.ActionResponse, error) {
	params := asMap(ctx.Input)
	ms := int64(floatParam(params, "durationMs", 0))
	if ms <= 0 {
		return forge.ActionResponse{"slept_ms": int64(0)}, nil
	}

	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C:
		return forge.ActionResponse{"slept_ms": ms}, nil
	case <-ctx.Ctx.Done():
		return nil, ctx.Ctx.Err()
	}
}
