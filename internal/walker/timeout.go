package walker

import (
	"context"
	"reflect"

	"github.com/forgewalk/forge/pkg/forge"
)

var int64Type = reflect.TypeOf(int64(0))

// evalTimeout resolves a TreeNode.timeout or TreeAction.timeout value to
// a millisecond count. Absent (nil) resolves to -1 (infinite). A plain
// integer is used verbatim; a string is evaluated as an expression
// with known type int64.
func (s *Session) evalTimeout(ctx context.Context, raw any) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return -1, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		val, err := s.eval.Evaluate(ctx, v, int64Type)
		if err != nil {
			return 0, err
		}
		switch n := val.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case float64:
			return int64(n), nil
		default:
			return 0, forge.NewErrorf(forge.ErrCodeEvaluateDynamicProperty,
				"timeout expression %q did not evaluate to a number", v)
		}
	default:
		return -1, nil
	}
}
