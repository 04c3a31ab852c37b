package walker

import (
	"context"

	"github.com/forgewalk/forge/pkg/forge"
)

type invokeResult struct {
	resp forge.ActionResponse
	err  error
}

// invokeSingleAction runs one action attempt and commits its response on
// success. deadlineCtx is the shared action-level deadline
// context the retry controller derived once (or the walker token
// unmodified, if the action's timeout is infinite); walkerCtx is the
// undecorated walker-level token, used to tell a genuine cancellation
// apart from deadlineCtx's own timeout firing.
func (s *Session) invokeSingleAction(deadlineCtx, walkerCtx context.Context, nodeKey, actionKey string, ta forge.TreeAction, def *forge.ActionDefinition) (forge.ActionResponse, error) {
	input, err := s.eval.Evaluate(deadlineCtx, ta.Input, def.InputType)
	if err != nil {
		return nil, err
	}
	rawProps, err := s.eval.Evaluate(deadlineCtx, anyMap(ta.Properties), nil)
	if err != nil {
		return nil, err
	}
	props, _ := rawProps.(map[string]any)

	if len(def.InputSchema) > 0 && s.deps.Validator != nil {
		if err := s.deps.Validator.ValidateInput(input, def.InputSchema); err != nil {
			return nil, err
		}
	}

	// A linked cancellation source is only meaningful when
	// continuationOnTimeout is set: that's the one case the action's own
	// in-flight work needs to be told to stop independently of the
	// walker-wide token.
	invokeCtx := walkerCtx
	signalTimeout := func() {}
	if ta.ContinuationOnTimeout {
		var cancel context.CancelFunc
		invokeCtx, cancel = context.WithCancel(walkerCtx)
		signalTimeout = cancel
	}

	actionCtx := forge.ActionContext{
		Ctx:         invokeCtx,
		SessionID:   s.id,
		NodeKey:     nodeKey,
		ActionKey:   actionKey,
		ActionName:  ta.ActionName,
		Input:       input,
		Properties:  props,
		UserContext: s.deps.UserContext,
		Token:       s.id,
		State:       s.deps.State,
	}

	instance := def.New()
	resultCh := make(chan invokeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- invokeResult{err: forge.NewErrorf(forge.ErrCodePanic, "action panicked: %v", r)}
			}
		}()
		resp, err := instance.RunAction(actionCtx)
		resultCh <- invokeResult{resp: resp, err: err}
	}()

	select {
	case <-deadlineCtx.Done():
		if walkerCtx.Err() != nil {
			return nil, walkerCtx.Err()
		}
		if ta.ContinuationOnTimeout {
			signalTimeout()
			resp := forge.SyntheticResponse(forge.StatusTimeoutOnAction)
			if err := s.commitResponse(walkerCtx, actionKey, resp); err != nil {
				return nil, err
			}
			return resp, nil
		}
		return nil, forge.NewErrorf(forge.ErrCodeActionTimeout,
			"action %s (%s) on node %s exceeded its timeout", actionKey, ta.ActionName, nodeKey).
			WithNode(nodeKey).WithAction(actionKey)

	case res := <-resultCh:
		if res.err != nil {
			return nil, res.err
		}
		if err := s.commitResponse(walkerCtx, actionKey, res.resp); err != nil {
			return nil, err
		}
		return res.resp, nil
	}
}
