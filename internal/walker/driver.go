package walker

import (
	"context"
	"errors"

	"github.com/forgewalk/forge/pkg/forge"
)

// WalkTree runs the walk to a terminal status, starting from startKey.
// Calls on one Session must not overlap; a later call after an earlier
// one returned resumes from the state already committed.
func (s *Session) WalkTree(ctx context.Context, startKey string) (forge.WalkStatus, error) {
	walkCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel() // ensure stragglers observe cancellation on every exit path

	s.setStatus(forge.StatusRunning)

	current := startKey
	started := false

	for current != "" {
		if err := walkCtx.Err(); err != nil {
			status := forge.StatusCancelled
			if !started {
				status = forge.StatusCancelledBeforeExecution
			}
			s.setStatus(status)
			return status, err
		}

		node, ok := s.tree.Nodes[current]
		if !ok {
			err := forge.NewErrorf(forge.ErrCodeFailed, "unknown node key %q", current).WithNode(current)
			s.setStatus(forge.StatusFailed)
			return forge.StatusFailed, err
		}

		if err := s.commitCTN(walkCtx, current); err != nil {
			s.setStatus(forge.StatusFailed)
			return forge.StatusFailed, err
		}

		nodeCtx := s.logCtx(walkCtx, current, "")

		rawProps, err := s.eval.Evaluate(nodeCtx, anyMap(node.Properties), nil)
		if err != nil {
			return s.terminate(err, started)
		}
		props, _ := rawProps.(map[string]any)

		if cb := s.deps.Callbacks.BeforeVisitNode; cb != nil {
			if err := cb(nodeCtx, s.id, current, props, s.deps.UserContext, s.id); err != nil {
				status, rerr := s.terminate(err, started)
				return status, rerr
			}
		}

		started = true

		next, visitErr := s.visitNode(nodeCtx, current, node)

		if cb := s.deps.Callbacks.AfterVisitNode; cb != nil {
			cb(nodeCtx, s.id, current, props, s.deps.UserContext, s.id)
		}

		if visitErr != nil {
			return s.terminate(visitErr, started)
		}

		current = next
	}

	s.setStatus(forge.StatusRanToCompletion)
	return forge.StatusRanToCompletion, nil
}

// terminate maps err to its walk-level status, sets it, and returns it.
// NoChildMatched is reported as a successful terminal outcome: the
// caller gets a nil error.
func (s *Session) terminate(err error, started bool) (forge.WalkStatus, error) {
	status := mapError(err, started)
	s.setStatus(status)
	if status == forge.StatusRanToCompletionNoChild {
		return status, nil
	}
	return status, err
}

func mapError(err error, started bool) forge.WalkStatus {
	if errors.Is(err, context.Canceled) {
		if !started {
			return forge.StatusCancelledBeforeExecution
		}
		return forge.StatusCancelled
	}

	var fe *forge.ForgeError
	if errors.As(err, &fe) {
		switch fe.Code {
		case forge.ErrCodeActionTimeout:
			return forge.StatusTimeoutOnAction
		case forge.ErrCodeNodeTimeout:
			return forge.StatusTimeoutOnNode
		case forge.ErrCodeNoChildMatched:
			return forge.StatusRanToCompletionNoChild
		case forge.ErrCodeEvaluateDynamicProperty:
			return forge.StatusFailedEvaluateDynamicProp
		}
	}
	return forge.StatusFailed
}

// anyMap widens a map[string]any to the `any` the evaluator expects for
// schema values, passing nil through unchanged rather than a typed nil
// map (which the evaluator's switch would otherwise box as non-nil).
func anyMap(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}
