package expressions

import (
	"context"
	"reflect"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/forgewalk/forge/pkg/forge"
)

// ExprExecutor implements forge.ExpressionExecutor using expr-lang/expr
// for the default "C#|" / "C#<Typename>|" expression body. Thread-safe:
// compiled *vm.Program objects are cached and reused across goroutines,
// with a per-expression double-checked-locking compile path and the
// evaluation target built from the session-derived scope plus a
// knownType coercion step.
type ExprExecutor struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewExprExecutor creates a new ExprExecutor.
func NewExprExecutor() *ExprExecutor {
	return &ExprExecutor{cache: make(map[string]*vm.Program)}
}

func (e *ExprExecutor) Execute(ctx context.Context, source string, knownType reflect.Type, session forge.ITreeSession) (any, error) {
	if source == "" {
		return nil, forge.NewError(forge.ErrCodeValidation, "empty expression")
	}

	env := BuildScope(ctx, session)

	prg, err := e.getOrCompile(source, env)
	if err != nil {
		return nil, err
	}

	out, err := vm.Run(prg, env)
	if err != nil {
		return nil, forge.NewErrorf(forge.ErrCodeEvaluateDynamicProperty,
			"expr evaluation failed for %q: %s", source, err.Error()).WithCause(err)
	}

	if knownType == nil {
		return out, nil
	}
	return coerceTo(out, knownType)
}

func (e *ExprExecutor) getOrCompile(source string, env map[string]any) (*vm.Program, error) {
	e.mu.RLock()
	if prg, ok := e.cache[source]; ok {
		e.mu.RUnlock()
		return prg, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.cache[source]; ok {
		return prg, nil
	}

	prg, err := expr.Compile(source, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, forge.NewErrorf(forge.ErrCodeValidation,
			"expr compile error in %q: %s", source, err.Error()).WithCause(err)
	}

	e.cache[source] = prg
	return prg, nil
}

// coerceTo converts out to t when they aren't already the same type,
// covering the common numeric/string/bool widenings expr-lang returns.
func coerceTo(out any, t reflect.Type) (any, error) {
	if out == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(out)
	if rv.Type() == t {
		return out, nil
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t).Interface(), nil
	}
	return out, nil
}

var _ forge.ExpressionExecutor = (*ExprExecutor)(nil)
