package walker

import (
	"context"
	"time"

	"github.com/forgewalk/forge/internal/state"
	"github.com/forgewalk/forge/pkg/forge"
)

// pendingAction is one action this node still needs to run, resolved
// against the registry.
type pendingAction struct {
	key string
	ta  forge.TreeAction
	def *forge.ActionDefinition
}

// runActionNode implements the action-node executor: for each action,
// either short-circuit when a response was already committed for it
// (rehydration after a crash) or resolve it against the registry and
// schedule it; then race the whole fan-out against the node-level
// timeout.
func (s *Session) runActionNode(ctx context.Context, nodeKey string, node forge.TreeNode) error {
	toRun, err := s.resolvePendingActions(ctx, nodeKey, node)
	if err != nil {
		return err
	}
	if len(toRun) == 0 {
		return nil
	}

	nodeTimeoutMs, err := s.evalTimeout(ctx, node.Timeout)
	if err != nil {
		return err
	}

	nodeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultCh := make(chan error, len(toRun))
	for _, p := range toRun {
		p := p
		actionCtx := s.logCtx(nodeCtx, nodeKey, p.key)
		if err := s.pool.Go(nodeCtx, func() error {
			return s.runRetryController(actionCtx, nodeKey, p.key, p.ta, p.def)
		}, func(err error) { resultCh <- err }); err != nil {
			resultCh <- err
		}
	}

	var timerC <-chan time.Time
	if nodeTimeoutMs >= 0 {
		timer := time.NewTimer(time.Duration(nodeTimeoutMs) * time.Millisecond)
		defer timer.Stop()
		timerC = timer.C
	}

	remaining := len(toRun)
	for remaining > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timerC:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return forge.NewErrorf(forge.ErrCodeNodeTimeout,
				"node %s timed out after %dms waiting on %d action(s)", nodeKey, nodeTimeoutMs, remaining).
				WithNode(nodeKey)
		case err := <-resultCh:
			remaining--
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// resolvePendingActions walks a node's actions in schema order,
// short-circuiting any whose response was already committed by a prior
// attempt and repairing LTA for the first such skip if it's missing
// (this resolves the "once per fan-out vs. every skip" open question in
// favor of once — see DESIGN.md). Actions naming an unknown registry
// entry are silently skipped.
func (s *Session) resolvePendingActions(ctx context.Context, nodeKey string, node forge.TreeNode) ([]pendingAction, error) {
	var toRun []pendingAction
	repaired := false

	for _, actionKey := range node.OrderedActionKeys() {
		ta := node.Actions[actionKey]

		_, exists, _ := s.deps.State.Get(ctx, s.id, state.ActionResponseKey(actionKey))
		if exists {
			if !repaired {
				if _, ltaOK, _ := s.deps.State.Get(ctx, s.id, state.LTAKey()); !ltaOK {
					if err := s.deps.State.Set(ctx, s.id, state.LTAKey(), []byte(actionKey)); err != nil {
						return nil, forge.NewErrorf(forge.ErrCodeStore,
							"repair LTA for rehydrated action %s: %s", actionKey, err.Error()).
							WithCause(err).WithNode(nodeKey).WithAction(actionKey)
					}
				}
				repaired = true
			}
			continue
		}

		def, ok := s.deps.Registry.Get(ta.ActionName)
		if !ok {
			continue
		}
		toRun = append(toRun, pendingAction{key: actionKey, ta: ta, def: def})
	}

	return toRun, nil
}
