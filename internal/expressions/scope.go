package expressions

import (
	"context"

	"github.com/forgewalk/forge/pkg/forge"
)

// BuildScope assembles the variable environment an expression body
// evaluates against: the current node, the last committed action, and
// its response — a single flat environment suited to expr-lang/CEL
// variable resolution. The tree walk has no step-output map to walk;
// only the single most-recently-committed response is addressable.
func BuildScope(ctx context.Context, session forge.ITreeSession) map[string]any {
	scope := map[string]any{
		"node":         "",
		"lastAction":   "",
		"lastResponse": map[string]any{},
	}
	if session == nil {
		return scope
	}

	if node, ok, err := session.GetCurrentTreeNode(ctx); err == nil && ok {
		scope["node"] = node
	}
	if actionKey, ok, err := session.GetLastTreeAction(ctx); err == nil && ok {
		scope["lastAction"] = actionKey
	}
	if resp, ok, err := session.GetLastActionResponse(ctx); err == nil && ok {
		scope["lastResponse"] = deepCopyMap(map[string]any(resp))
	}

	return scope
}

// deepCopyMap creates a deep copy of a map[string]any, so expression
// engines never observe (or mutate) the session's own response data.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = deepCopyAny(v)
	}
	return cp
}

func deepCopyAny(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = deepCopyAny(item)
		}
		return cp
	default:
		return v
	}
}
