package walker

import (
	"context"
	"reflect"

	"github.com/forgewalk/forge/pkg/forge"
)

var actionResponseType = reflect.TypeOf(forge.ActionResponse{})

// visitNode implements the node behavior dispatcher: Leaf nodes have no
// children and only ever commit a single summary response, Action nodes
// run their fan-out before selecting a child, and every other node type
// (Selection, or unspecified) only selects.
func (s *Session) visitNode(ctx context.Context, nodeKey string, node forge.TreeNode) (string, error) {
	switch node.Type {
	case forge.NodeTypeLeaf:
		return "", s.visitLeaf(ctx, nodeKey, node)
	case forge.NodeTypeAction:
		if err := s.runActionNode(ctx, nodeKey, node); err != nil {
			return "", err
		}
		return s.selectChild(ctx, node)
	default:
		return s.selectChild(ctx, node)
	}
}

// visitLeaf handles the one piece of Leaf-node behavior that matters: a
// Leaf carrying exactly one action named ReservedLeafSummaryAction has
// that action's input evaluated with known type ActionResponse and
// committed directly as its response. Any other Leaf shape is a plain
// terminal with no side effect.
func (s *Session) visitLeaf(ctx context.Context, nodeKey string, node forge.TreeNode) error {
	if len(node.Actions) != 1 {
		return nil
	}
	for _, actionKey := range node.OrderedActionKeys() {
		ta := node.Actions[actionKey]
		if ta.ActionName != forge.ReservedLeafSummaryAction {
			return nil
		}
		val, err := s.eval.Evaluate(s.logCtx(ctx, nodeKey, actionKey), ta.Input, actionResponseType)
		if err != nil {
			return err
		}
		resp, _ := val.(forge.ActionResponse)
		if resp == nil {
			resp = forge.ActionResponse{}
		}
		return s.commitResponse(ctx, actionKey, resp)
	}
	return nil
}
