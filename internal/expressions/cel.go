package expressions

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/forgewalk/forge/pkg/forge"
)

// CELExecutor implements forge.ExternalExecutor under the "cel|"
// prefix, for guard expressions an author prefers to write in CEL
// rather than the default expr-lang grammar. Sandboxed environment
// and double-checked-locking program cache, with the activation built
// from the session scope.
type CELExecutor struct {
	env     *cel.Env
	session func(ctx context.Context) map[string]any

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewCELExecutor creates a CELExecutor whose activation is built by
// scopeFn on every evaluation (typically BuildScope bound to a
// session).
func NewCELExecutor(scopeFn func(ctx context.Context) map[string]any) (*CELExecutor, error) {
	env, err := cel.NewEnv(
		cel.Variable("node", cel.StringType),
		cel.Variable("lastAction", cel.StringType),
		cel.Variable("lastResponse", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &CELExecutor{env: env, session: scopeFn, cache: make(map[string]cel.Program)}, nil
}

func (e *CELExecutor) Execute(ctx context.Context, payload string) (any, error) {
	if payload == "" {
		return nil, forge.NewError(forge.ErrCodeValidation, "empty CEL expression")
	}

	prg, err := e.getOrCompile(payload)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.Eval(e.session(ctx))
	if err != nil {
		return nil, forge.NewErrorf(forge.ErrCodeEvaluateDynamicProperty,
			"CEL evaluation failed for %q: %s", payload, err.Error()).WithCause(err)
	}
	return out.Value(), nil
}

func (e *CELExecutor) getOrCompile(expression string) (cel.Program, error) {
	e.mu.RLock()
	if prg, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return prg, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.cache[expression]; ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, forge.NewErrorf(forge.ErrCodeValidation,
			"CEL compile error in %q: %s", expression, issues.Err().Error()).WithCause(issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, forge.NewErrorf(forge.ErrCodeValidation,
			"CEL program error for %q: %s", expression, err.Error()).WithCause(err)
	}

	e.cache[expression] = prg
	return prg, nil
}

var _ forge.ExternalExecutor = (*CELExecutor)(nil)
