package evaluator

import (
	"fmt"
	"reflect"
	"strconv"
)

// coerceScalar converts a decoded-JSON scalar (string, float64, bool,
// or nil) to knownType. Returns v unchanged when knownType is nil.
func coerceScalar(v any, knownType reflect.Type) (any, error) {
	if knownType == nil || v == nil {
		return v, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(knownType) {
		return v, nil
	}
	if rv.Type().ConvertibleTo(knownType) && isNumericKind(rv.Kind()) && isNumericKind(knownType.Kind()) {
		return rv.Convert(knownType).Interface(), nil
	}

	switch knownType.Kind() {
	case reflect.String:
		return fmt.Sprintf("%v", v), nil
	case reflect.Bool:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			b, err := strconv.ParseBool(t)
			if err != nil {
				return nil, fmt.Errorf("cannot coerce %q to bool: %w", t, err)
			}
			return b, nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch t := v.(type) {
		case float64:
			return reflect.ValueOf(t).Convert(knownType).Interface(), nil
		case string:
			n, err := strconv.ParseInt(t, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot coerce %q to %s: %w", t, knownType, err)
			}
			return reflect.ValueOf(n).Convert(knownType).Interface(), nil
		}
	case reflect.Float32, reflect.Float64:
		switch t := v.(type) {
		case string:
			f, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot coerce %q to %s: %w", t, knownType, err)
			}
			return reflect.ValueOf(f).Convert(knownType).Interface(), nil
		}
	}

	return nil, fmt.Errorf("cannot coerce value of type %T to %s", v, knownType)
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
