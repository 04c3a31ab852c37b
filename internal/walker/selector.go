package walker

import (
	"context"
	"reflect"
	"strings"

	"github.com/forgewalk/forge/internal/logging"
	"github.com/forgewalk/forge/pkg/forge"
)

var boolType = reflect.TypeOf(false)

// selectChild implements the child selector: iterate childSelector in
// schema order, returning the first child whose guard is empty (an
// unconditional default) or evaluates truthy. A node with no selectors
// at all is a terminal leaf; a node with selectors none of which match
// raises NoChildMatched, which the walk driver treats as a successful
// terminal outcome (RanToCompletion_NoChildMatched).
func (s *Session) selectChild(ctx context.Context, node forge.TreeNode) (string, error) {
	if len(node.Children) == 0 {
		return "", nil
	}

	for _, sel := range node.Children {
		guard := strings.TrimSpace(sel.ShouldSelect)
		if guard == "" {
			if sel.Child != "" {
				return sel.Child, nil
			}
			continue
		}

		val, err := s.eval.Evaluate(ctx, sel.ShouldSelect, boolType)
		if err != nil {
			return "", err
		}
		if b, ok := val.(bool); ok && b {
			return sel.Child, nil
		}
	}

	return "", forge.NewError(forge.ErrCodeNoChildMatched, "no child selector matched").
		WithNode(logging.NodeKey(ctx))
}
