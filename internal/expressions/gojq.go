package expressions

import (
	"context"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/forgewalk/forge/pkg/forge"
)

// GoJQExecutor implements forge.ExternalExecutor under the "jq|"
// prefix, for reshaping the prior action's response into a new
// TreeAction input or TreeNode property. Includes a $ENV sandbox and
// double-checked-locking compiled-code cache; the evaluation input is
// the session scope map (node, lastAction, lastResponse).
type GoJQExecutor struct {
	session func(ctx context.Context) map[string]any

	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewGoJQExecutor creates a GoJQExecutor whose jq input document is
// built by scopeFn on every evaluation.
func NewGoJQExecutor(scopeFn func(ctx context.Context) map[string]any) *GoJQExecutor {
	return &GoJQExecutor{session: scopeFn, cache: make(map[string]*gojq.Code)}
}

func (e *GoJQExecutor) Execute(ctx context.Context, payload string) (any, error) {
	if payload == "" {
		return nil, forge.NewError(forge.ErrCodeValidation, "empty jq expression")
	}

	code, err := e.getOrCompile(payload)
	if err != nil {
		return nil, err
	}

	input := normalizeForJQ(e.session(ctx))
	iter := code.RunWithContext(ctx, input)

	var results []any
	for {
		val, ok := iter.Next()
		if !ok {
			break
		}
		if jqErr, isErr := val.(error); isErr {
			return nil, forge.NewErrorf(forge.ErrCodeEvaluateDynamicProperty,
				"jq evaluation failed for %q: %s", payload, jqErr.Error()).WithCause(jqErr)
		}
		results = append(results, val)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

func (e *GoJQExecutor) getOrCompile(expression string) (*gojq.Code, error) {
	e.mu.RLock()
	if code, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return code, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.cache[expression]; ok {
		return code, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, forge.NewErrorf(forge.ErrCodeValidation,
			"jq parse error in %q: %s", expression, err.Error()).WithCause(err)
	}

	code, err := gojq.Compile(query,
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, forge.NewErrorf(forge.ErrCodeValidation,
			"jq compile error in %q: %s", expression, err.Error()).WithCause(err)
	}

	e.cache[expression] = code
	return code, nil
}

// normalizeForJQ converts Go native numeric types to float64, matching
// jq's native number handling.
func normalizeForJQ(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = normalizeForJQ(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = normalizeForJQ(vv)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case int32:
		return float64(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}

var _ forge.ExternalExecutor = (*GoJQExecutor)(nil)
