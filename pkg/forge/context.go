package forge

import (
	"context"
	"reflect"
)

// ActionContext is everything an action implementation receives for a
// single invocation. It is assembled fresh for every attempt.
type ActionContext struct {
	Ctx         context.Context
	SessionID   string
	NodeKey     string
	ActionKey   string
	ActionName  string
	Input       any
	Properties  map[string]any
	UserContext any
	Token       string
	State       ForgeState
}

// Action is the capability a host-supplied action type implements.
// RunAction performs the unit of work and returns the durable response
// to persist for this invocation, or an error for the retry controller
// to classify.
type Action interface {
	RunAction(ctx ActionContext) (ActionResponse, error)
}

// BaseAction is the marker every host action type must embed for the
// registry loader to accept it. It carries no behavior of its own.
type BaseAction struct{}

// ActionDefinition is what the action registry holds for a registered
// action name: a factory that produces a fresh Action instance per
// invocation, plus the declared Go type of its input (used by the
// dynamic property evaluator to coerce TreeAction.Input).
type ActionDefinition struct {
	Name      string
	New       func() Action
	InputType reflect.Type
	// InputSchema is an optional JSON Schema document; when set and a
	// Dependencies.Validator is configured, every invocation's
	// evaluated input is validated against it before the ActionContext
	// is constructed. Nil means no validation.
	InputSchema []byte
}

// InputValidator validates an action's evaluated input against an
// ActionDefinition's declared JSON Schema. Optional: a walk runs fine
// with no validator configured, in which case InputSchema is ignored.
type InputValidator interface {
	ValidateInput(data any, schema []byte) error
}

// ActionRegistry resolves an action name to its definition. Unknown
// names are not an error at this layer — the node executor silently
// skips unresolved action names, so callers must check the bool.
type ActionRegistry interface {
	Get(name string) (*ActionDefinition, bool)
}

// ForgeState is the durable key/value capability a session uses to
// survive process crashes. Gets that miss must return (nil, false, nil):
// a missing key is not an error. Sets must propagate any underlying
// failure to the caller; the walker treats state-write failure as fatal.
type ForgeState interface {
	Get(ctx context.Context, sessionID, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, sessionID, key string, value []byte) error
}

// ExpressionExecutor evaluates one `C#|...`/`C#<T>|...` expression body
// against the session's current state. Receives the session itself so
// expressions can read prior action responses and the current node.
type ExpressionExecutor interface {
	Execute(ctx context.Context, source string, knownType reflect.Type, session ITreeSession) (any, error)
}

// ExternalExecutor handles one prefix-matched, non-expression schema
// string by transforming its suffix into a value directly, without
// going through the expression compiler.
type ExternalExecutor interface {
	Execute(ctx context.Context, payload string) (any, error)
}

// ExternalExecutors maps a recognized prefix (e.g. "cel|", "jq|",
// "vault|") to the executor that should handle strings carrying it.
type ExternalExecutors map[string]ExternalExecutor

// Callbacks are host-supplied hooks the walker invokes around every
// node visit. Either may be nil. Exceptions they raise propagate and
// fail the walk.
type Callbacks struct {
	BeforeVisitNode func(ctx context.Context, sessionID, nodeKey string, properties map[string]any, userContext any, token string) error
	AfterVisitNode  func(ctx context.Context, sessionID, nodeKey string, properties map[string]any, userContext any, token string)
}

// Dependencies bundles everything a walk needs beyond the tree itself.
type Dependencies struct {
	State       ForgeState
	Registry    ActionRegistry
	Evaluator   ExpressionExecutor
	External    ExternalExecutors
	Callbacks   Callbacks
	UserContext any
	// Validator optionally checks an action's evaluated input against
	// its ActionDefinition.InputSchema before invocation. Nil disables
	// this check entirely.
	Validator InputValidator
	// DependenciesValue is exposed to the ExpressionExecutor as opaque
	// context beyond the session itself.
	DependenciesValue any
}
