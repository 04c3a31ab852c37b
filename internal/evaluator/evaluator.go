package evaluator

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/forgewalk/forge/pkg/forge"
)

// Evaluator implements forge's dynamic property evaluation contract
// against an injected expression executor, a set of prefix-matched
// external executors, and the session they both read prior responses
// through.
type Evaluator struct {
	Expression forge.ExpressionExecutor
	External   forge.ExternalExecutors
	Session    forge.ITreeSession
}

// New creates an Evaluator bound to a session's dependencies.
func New(expr forge.ExpressionExecutor, external forge.ExternalExecutors, session forge.ITreeSession) *Evaluator {
	return &Evaluator{Expression: expr, External: external, Session: session}
}

// Evaluate resolves schemaValue recursively, honoring knownType when
// non-nil. Any failure other than context cancellation is wrapped as a
// forge.ForgeError with code ErrCodeEvaluateDynamicProperty.
func (e *Evaluator) Evaluate(ctx context.Context, schemaValue any, knownType reflect.Type) (any, error) {
	out, err := e.evaluate(ctx, schemaValue, knownType)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	var fe *forge.ForgeError
	if errors.As(err, &fe) && fe.Code == forge.ErrCodeEvaluateDynamicProperty {
		return nil, err
	}
	typeName := "<inferred>"
	if knownType != nil {
		typeName = knownType.String()
	}
	return nil, forge.NewErrorf(forge.ErrCodeEvaluateDynamicProperty,
		"failed to evaluate %v (knownType=%s): %s", schemaValue, typeName, err.Error()).
		WithCause(err)
}

func (e *Evaluator) evaluate(ctx context.Context, schemaValue any, knownType reflect.Type) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if schemaValue == nil {
		return nil, nil
	}

	switch v := schemaValue.(type) {
	case string:
		return e.evaluateString(ctx, v, knownType)
	case map[string]any:
		return e.evaluateObject(ctx, v, knownType)
	case []any:
		return e.evaluateArray(ctx, v, knownType)
	default:
		return coerceScalar(v, knownType)
	}
}

func (e *Evaluator) evaluateString(ctx context.Context, s string, knownType reflect.Type) (any, error) {
	if parsed, ok := parseExpressionPrefix(s); ok {
		t := knownType
		if t == nil {
			if resolved, ok := resolvePrimitiveType(parsed.typeName); ok {
				t = resolved
			}
		}
		result, err := e.Expression.Execute(ctx, parsed.body, t, e.Session)
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	for prefix, executor := range e.External {
		if payload, ok := externalExecutorPrefix(s, prefix); ok {
			execCtx := ctx
			if e.Session != nil {
				execCtx = forge.WithSession(ctx, e.Session)
			}
			result, err := executor.Execute(execCtx, payload)
			if err != nil {
				return nil, err
			}
			if knownType != nil {
				return coerceScalar(result, knownType)
			}
			return result, nil
		}
	}

	return s, nil
}

func (e *Evaluator) evaluateObject(ctx context.Context, obj map[string]any, knownType reflect.Type) (any, error) {
	if knownType == nil {
		out := make(map[string]any, len(obj))
		for k, v := range obj {
			ev, err := e.evaluate(ctx, v, nil)
			if err != nil {
				return nil, err
			}
			out[k] = ev
		}
		return out, nil
	}

	if knownType.Kind() == reflect.Map {
		elemType := knownType.Elem()
		out := reflect.MakeMapWithSize(knownType, len(obj))
		for k, v := range obj {
			ev, err := e.evaluate(ctx, v, elemType)
			if err != nil {
				return nil, err
			}
			out.SetMapIndex(reflect.ValueOf(k), reflect.ValueOf(ev).Convert(elemType))
		}
		return out.Interface(), nil
	}

	structType := knownType
	if structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("known type %s cannot receive an object-shaped value", knownType)
	}

	instance := reflect.New(structType).Elem()
	for k, v := range obj {
		ft, ok := fieldType(structType, k)
		if !ok {
			continue // schema carries a field the known type doesn't declare
		}
		ev, err := e.evaluate(ctx, v, ft)
		if err != nil {
			return nil, err
		}
		assignField(instance, structType, k, ev)
	}

	if knownType.Kind() == reflect.Ptr {
		ptr := reflect.New(structType)
		ptr.Elem().Set(instance)
		return ptr.Interface(), nil
	}
	return instance.Interface(), nil
}

func (e *Evaluator) evaluateArray(ctx context.Context, arr []any, knownType reflect.Type) (any, error) {
	if knownType == nil {
		out := make([]any, len(arr))
		for i, v := range arr {
			ev, err := e.evaluate(ctx, v, nil)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	}

	if knownType.Kind() != reflect.Slice && knownType.Kind() != reflect.Array {
		return nil, fmt.Errorf("known type %s cannot receive an array-shaped value", knownType)
	}
	elemType := knownType.Elem()
	out := reflect.MakeSlice(reflect.SliceOf(elemType), len(arr), len(arr))
	for i, v := range arr {
		ev, err := e.evaluate(ctx, v, elemType)
		if err != nil {
			return nil, err
		}
		out.Index(i).Set(reflect.ValueOf(ev).Convert(elemType))
	}
	return out.Interface(), nil
}

// assignField sets the named field on instance (a settable struct
// Value of type structType) to value, converting when the dynamic type
// doesn't already match.
func assignField(instance reflect.Value, structType reflect.Type, key string, value any) {
	d := descriptorFor(structType)
	f, ok := d.fields[key]
	if !ok {
		return
	}
	fv := instance.FieldByIndex(f.Index)
	if !fv.CanSet() {
		return
	}
	if value == nil {
		return
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(fv.Type()) {
		fv.Set(rv)
		return
	}
	if rv.Type().ConvertibleTo(fv.Type()) {
		fv.Set(rv.Convert(fv.Type()))
	}
}
