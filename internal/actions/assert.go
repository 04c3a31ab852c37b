package actions

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/forgewalk/forge/internal/validation"
	"github.com/forgewalk/forge/pkg/forge"
)

// AssertActions returns the assertion builtin set: equality, substring
// containment, regex matching, and JSON Schema validation, each
// returning a forge.ForgeError on failure rather than panicking.
func AssertActions(validator *validation.JSONSchemaValidator) []NamedAction {
	return []NamedAction{
		&assertEqualsAction{},
		&assertContainsAction{},
		&assertMatchesAction{},
		&assertSchemaAction{validator: validator},
	}
}

// normalizeJSON converts Go numeric types to float64 for consistent
// deep-equal comparison: JSON unmarshaling produces float64 for numbers,
// so this normalizes int/int64/int32/json.Number values coming straight
// from schema literals or action input before reflect.DeepEqual runs.
func normalizeJSON(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case int32:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return v
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeJSON(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeJSON(item)
		}
		return out
	default:
		return v
	}
}

var passResponse = forge.ActionResponse{"pass": true}

// --- assert.equals ---

type assertEqualsAction struct {
	forge.BaseAction
}

func (a *assertEqualsAction) Name() string           { return "assert.equals" }
func (a *assertEqualsAction) InputType() reflect.Type { return nil }

func (a *assertEqualsAction) RunAction(ctx forge.ActionContext) (forge.ActionResponse, error) {
	params := asMap(ctx.Input)
	expected := normalizeJSON(params["expected"])
	actual := normalizeJSON(params["actual"])

	if reflect.DeepEqual(expected, actual) {
		return passResponse, nil
	}

	msg := stringParam(params, "message", "assertion failed: values are not equal")
	return nil, forge.NewError(forge.ErrCodeAssertionFailed, msg).
		WithDetails(map[string]any{"expected": params["expected"], "actual": params["actual"]}).
		WithAction(ctx.ActionKey).WithNode(ctx.NodeKey)
}

// --- assert.contains ---

type assertContainsAction struct {
	forge.BaseAction
}

func (a *assertContainsAction) Name() string           { return "assert.contains" }
func (a *assertContainsAction) InputType() reflect.Type { return nil }

func (a *assertContainsAction) RunAction(ctx forge.ActionContext) (forge.ActionResponse, error) {
	params := asMap(ctx.Input)
	haystack := params["haystack"]
	needle := params["needle"]

	msg := stringParam(params, "message", "assertion failed: value not found")
	fail := func() (forge.ActionResponse, error) {
		return nil, forge.NewError(forge.ErrCodeAssertionFailed, msg).
			WithDetails(map[string]any{"haystack": haystack, "needle": needle}).
			WithAction(ctx.ActionKey).WithNode(ctx.NodeKey)
	}

	switch hs := haystack.(type) {
	case string:
		if strings.Contains(hs, fmt.Sprintf("%v", needle)) {
			return passResponse, nil
		}
		return fail()
	case []any:
		normalizedNeedle := normalizeJSON(needle)
		for _, item := range hs {
			if reflect.DeepEqual(normalizeJSON(item), normalizedNeedle) {
				return passResponse, nil
			}
		}
		return fail()
	default:
		return nil, forge.NewErrorf(forge.ErrCodeValidation,
			"assert.contains: haystack must be string or array, got %T", haystack).
			WithAction(ctx.ActionKey).WithNode(ctx.NodeKey)
	}
}

// --- assert.matches ---

type assertMatchesAction struct {
	forge.BaseAction
}

func (a *assertMatchesAction) Name() string           { return "assert.matches" }
func (a *assertMatchesAction) InputType() reflect.Type { return nil }

func (a *assertMatchesAction) RunAction(ctx forge.ActionContext) (forge.ActionResponse, error) {
	params := asMap(ctx.Input)
	value := stringParam(params, "value", "")
	pattern := stringParam(params, "pattern", "")

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, forge.NewErrorf(forge.ErrCodeValidation, "invalid regex pattern: %s", err).
			WithAction(ctx.ActionKey).WithNode(ctx.NodeKey)
	}

	if !re.MatchString(value) {
		msg := stringParam(params, "message", "assertion failed: value does not match pattern")
		return nil, forge.NewError(forge.ErrCodeAssertionFailed, msg).
			WithDetails(map[string]any{"value": value, "pattern": pattern}).
			WithAction(ctx.ActionKey).WithNode(ctx.NodeKey)
	}

	return forge.ActionResponse{"pass": true, "matches": re.FindString(value)}, nil
}

// --- assert.schema ---

type assertSchemaAction struct {
	forge.BaseAction
	validator *validation.JSONSchemaValidator
}

func (a *assertSchemaAction) Name() string           { return "assert.schema" }
func (a *assertSchemaAction) InputType() reflect.Type { return nil }

func (a *assertSchemaAction) RunAction(ctx forge.ActionContext) (forge.ActionResponse, error) {
	params := asMap(ctx.Input)
	data, ok := params["data"].(map[string]any)
	if !ok {
		return nil, forge.NewError(forge.ErrCodeValidation, "assert.schema: data must be an object").
			WithAction(ctx.ActionKey).WithNode(ctx.NodeKey)
	}

	schemaBytes, err := json.Marshal(params["schema"])
	if err != nil {
		return nil, forge.NewErrorf(forge.ErrCodeValidation, "failed to serialize schema: %s", err).
			WithCause(err).WithAction(ctx.ActionKey).WithNode(ctx.NodeKey)
	}

	if err := a.validator.ValidateInput(data, schemaBytes); err != nil {
		msg := stringParam(params, "message", "assertion failed: data does not match schema")
		details := map[string]any{"error": err.Error()}
		var fe *forge.ForgeError
		if ferr, ok := err.(*forge.ForgeError); ok {
			fe = ferr
		}
		if fe != nil && fe.Details != nil {
			details["violations"] = fe.Details["violations"]
		}
		return nil, forge.NewError(forge.ErrCodeAssertionFailed, msg).WithDetails(details).
			WithAction(ctx.ActionKey).WithNode(ctx.NodeKey)
	}

	return passResponse, nil
}
