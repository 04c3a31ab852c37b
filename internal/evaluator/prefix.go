// Package evaluator implements the dynamic property evaluator:
// recursive resolution of schema values that may embed expressions,
// against either a known Go type or an inferred one.
package evaluator

import (
	"reflect"
	"strings"
)

const exprPrefix = "C#"

// parsedExpression is the result of stripping a "C#|..." or
// "C#<Typename>|..." prefix from a schema string.
type parsedExpression struct {
	typeName string // "" if no explicit <Typename> was present
	body     string
}

// parseExpressionPrefix recognizes the expression-prefix grammar. ok is
// false if s does not begin with "C#".
func parseExpressionPrefix(s string) (parsedExpression, bool) {
	if !strings.HasPrefix(s, exprPrefix) {
		return parsedExpression{}, false
	}
	rest := s[len(exprPrefix):]

	var typeName string
	if strings.HasPrefix(rest, "<") {
		close := strings.Index(rest, ">")
		if close == -1 {
			return parsedExpression{}, false
		}
		typeName = rest[1:close]
		rest = rest[close+1:]
	}

	if !strings.HasPrefix(rest, "|") {
		return parsedExpression{}, false
	}
	return parsedExpression{typeName: typeName, body: rest[1:]}, true
}

// primitiveTypes is the built-in primitive-type namespace Typename
// resolves against: a standard numeric/boolean/string namespace.
var primitiveTypes = map[string]reflect.Type{
	"String":  reflect.TypeOf(""),
	"Boolean": reflect.TypeOf(false),
	"Bool":    reflect.TypeOf(false),
	"Int":     reflect.TypeOf(int(0)),
	"Int32":   reflect.TypeOf(int32(0)),
	"Int64":   reflect.TypeOf(int64(0)),
	"Float":   reflect.TypeOf(float64(0)),
	"Float32": reflect.TypeOf(float32(0)),
	"Float64": reflect.TypeOf(float64(0)),
	"Double":  reflect.TypeOf(float64(0)),
}

// resolvePrimitiveType resolves a Typename to a reflect.Type, or
// (nil, false) if it isn't one of the known primitives.
func resolvePrimitiveType(name string) (reflect.Type, bool) {
	t, ok := primitiveTypes[name]
	return t, ok
}

// externalExecutorPrefix reports whether s begins with prefix (the
// session's external-executor map key) and returns the payload after
// it. External-executor prefixes are matched whole, e.g. a registered
// "vault|" matches "vault|db_password".
func externalExecutorPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return "", false
	}
	return s[len(prefix):], true
}
